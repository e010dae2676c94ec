// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/latentcollapse/hlx-core/internal/errs"
)

// Metadata is one row of the index layer (spec.md §3/§4.6), keyed by
// handle string. MetadataJSON is an opaque extensions blob (bindings,
// tags) the store never interprets.
type Metadata struct {
	Handle       string `db:"handle"`
	Name         string `db:"name"`
	Stage        string `db:"stage"`
	EntryPoint   string `db:"entry_point"`
	WorkgroupX   uint32 `db:"workgroup_x"`
	WorkgroupY   uint32 `db:"workgroup_y"`
	WorkgroupZ   uint32 `db:"workgroup_z"`
	Size         int64  `db:"size"`
	CreatedAt    int64  `db:"created_at"`
	SourceHash   string `db:"source_hash"`
	MetadataJSON string `db:"metadata_json"`
}

// QueryFilter narrows query() to rows matching every non-empty field
// (spec.md §4.6). WorkgroupSet distinguishes "don't filter on
// workgroup" from the valid all-zero workgroup.
type QueryFilter struct {
	Name         string
	Stage        string
	WorkgroupX   uint32
	WorkgroupY   uint32
	WorkgroupZ   uint32
	WorkgroupSet bool
	Limit        uint32
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// upsertMetadata inserts the row for handle or, if it exists, overwrites
// its caller-supplied columns (name, stage, entry point, workgroup
// size, source hash, metadata JSON); size and created_at keep the
// values of the first insert. Grounded on jobQuery.go's squirrel
// builder style generalized to sqlite's INSERT ... ON CONFLICT upsert
// syntax.
func upsertMetadata(ctx context.Context, db *sqlx.DB, m Metadata) error {
	q, args, err := psql.Insert("objects").
		Columns("handle", "name", "stage", "entry_point", "workgroup_x", "workgroup_y", "workgroup_z",
			"size", "created_at", "source_hash", "metadata_json").
		Values(m.Handle, m.Name, m.Stage, m.EntryPoint, m.WorkgroupX, m.WorkgroupY, m.WorkgroupZ,
			m.Size, m.CreatedAt, m.SourceHash, m.MetadataJSON).
		Suffix(`ON CONFLICT(handle) DO UPDATE SET
			name=excluded.name, stage=excluded.stage, entry_point=excluded.entry_point,
			workgroup_x=excluded.workgroup_x, workgroup_y=excluded.workgroup_y, workgroup_z=excluded.workgroup_z,
			source_hash=excluded.source_hash, metadata_json=excluded.metadata_json`).
		ToSql()
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "build upsert query")
	}
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "upsert metadata for %s", m.Handle)
	}
	return nil
}

func getMetadata(ctx context.Context, db *sqlx.DB, handle string) (Metadata, error) {
	q, args, err := psql.Select("handle", "name", "stage", "entry_point", "workgroup_x", "workgroup_y", "workgroup_z",
		"size", "created_at", "source_hash", "metadata_json").
		From("objects").Where(sq.Eq{"handle": handle}).ToSql()
	if err != nil {
		return Metadata{}, errs.Wrap(errs.StoragePrecondition, err, "build get query")
	}
	var m Metadata
	if err := db.GetContext(ctx, &m, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Metadata{}, errs.New(errs.NotFound, "metadata for %s not found", handle)
		}
		return Metadata{}, errs.Wrap(errs.StoragePrecondition, err, "get metadata for %s", handle)
	}
	return m, nil
}

// queryMetadata applies f and returns matching rows handle-ascending
// (the tie-break deterministic order spec.md §4.6 requires).
func queryMetadata(ctx context.Context, db *sqlx.DB, f QueryFilter) ([]Metadata, error) {
	b := psql.Select("handle", "name", "stage", "entry_point", "workgroup_x", "workgroup_y", "workgroup_z",
		"size", "created_at", "source_hash", "metadata_json").
		From("objects")
	if f.Name != "" {
		b = b.Where(sq.Eq{"name": f.Name})
	}
	if f.Stage != "" {
		b = b.Where(sq.Eq{"stage": f.Stage})
	}
	if f.WorkgroupSet {
		b = b.Where(sq.Eq{"workgroup_x": f.WorkgroupX, "workgroup_y": f.WorkgroupY, "workgroup_z": f.WorkgroupZ})
	}
	b = b.OrderBy("handle ASC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "build query")
	}
	var rows []Metadata
	if err := db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "query metadata")
	}
	return rows, nil
}

// listHandles returns up to limit handles in insertion (rowid) order.
func listHandles(ctx context.Context, db *sqlx.DB, limit uint32) ([]string, error) {
	b := psql.Select("handle").From("objects").OrderBy("rowid ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "build list query")
	}
	var handles []string
	if err := db.SelectContext(ctx, &handles, q, args...); err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "list handles")
	}
	return handles, nil
}

// indexStats is count(*) and sum(size) over the index.
func indexStats(ctx context.Context, db *sqlx.DB) (count int64, totalBytes int64, err error) {
	q, args, err := psql.Select("COUNT(*)", "COALESCE(SUM(size), 0)").From("objects").ToSql()
	if err != nil {
		return 0, 0, errs.Wrap(errs.StoragePrecondition, err, "build stats query")
	}
	row := db.QueryRowContext(ctx, q, args...)
	if err := row.Scan(&count, &totalBytes); err != nil {
		return 0, 0, errs.Wrap(errs.StoragePrecondition, err, "scan stats")
	}
	return count, totalBytes, nil
}
