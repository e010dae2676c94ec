// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"context"
	"time"

	"github.com/latentcollapse/hlx-core/pkg/log"
)

type queryTimingKey struct{}

// queryHooks satisfies sqlhooks.Hooks, logging every index query the
// same way internal/repository/hooks.go does for the job database.
type queryHooks struct{}

func (h *queryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("cas index query %s %q", query, args)
	return context.WithValue(ctx, queryTimingKey{}, time.Now()), nil
}

func (h *queryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimingKey{}).(time.Time); ok {
		log.Debugf("cas index query took %s", time.Since(begin))
	}
	return ctx, nil
}
