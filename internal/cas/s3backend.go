// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

// S3Backend is an alternative object layer backed by S3 — an
// [EXPANSION] of pkg/archive/s3Backend.go's bare config stub into a
// working backend. It uses the same two-level fan-out as FSBackend,
// just as the S3 object key (objects/<xx>/<yyyy>) instead of a
// filesystem path, so callers never see a difference across backends.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend builds a backend against bucket, storing objects under
// <prefix>/objects/<xx>/<yyyy>. Credentials and region come from the
// standard AWS SDK config chain (env vars, shared config, IAM role).
func NewS3Backend(ctx context.Context, bucket, prefix string) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "load AWS config")
	}
	return &S3Backend{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (sb *S3Backend) key(d [digest.Size]byte) string {
	dir, name := fanOutKey(d)
	if sb.prefix == "" {
		return "objects/" + dir + "/" + name
	}
	return sb.prefix + "/objects/" + dir + "/" + name
}

func (sb *S3Backend) Put(ctx context.Context, d [digest.Size]byte, b []byte) error {
	existing, err := sb.Get(ctx, d)
	if err == nil {
		if bytes.Equal(existing, b) {
			return nil
		}
		return errs.New(errs.DigestCollision, "S3 object %s does not match digest %x", sb.key(d), d)
	}
	if !errs.Is(err, errs.NotFound) {
		return err
	}

	_, err = sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.key(d)),
		Body:   bytes.NewReader(b),
		// S3's If-None-Match "*" support is inconsistent across
		// providers; the read-then-write check above plus the index
		// layer's own serialization is what actually protects INV-002
		// here, same as FSBackend's rename-then-recheck fallback.
	})
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "put S3 object %s", sb.key(d))
	}
	return nil
}

func (sb *S3Backend) Get(ctx context.Context, d [digest.Size]byte) ([]byte, error) {
	out, err := sb.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.key(d)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, errs.New(errs.NotFound, "object %x not found", d)
		}
		return nil, errs.Wrap(errs.StoragePrecondition, err, "get S3 object %s", sb.key(d))
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "read S3 object body %s", sb.key(d))
	}
	return b, nil
}

func (sb *S3Backend) Exists(ctx context.Context, d [digest.Size]byte) (bool, error) {
	_, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.key(d)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, errs.Wrap(errs.StoragePrecondition, err, "head S3 object %s", sb.key(d))
	}
	return true, nil
}
