// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3drv "github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/latentcollapse/hlx-core/internal/errs"
)

//go:embed migrations/sqlite3/*
var migrationFiles embed.FS

var sqliteDriverRegistered bool

// connectIndex opens the sqlite metadata index at dsn, wrapped with
// sqlhooks for query instrumentation exactly as
// internal/repository/dbConnection.go does for the job database, and
// runs pending migrations. One *sqlx.DB per Store (no package-level
// singleton — spec.md §9).
func connectIndex(dsn string) (*sqlx.DB, error) {
	driverName := "sqlite3"
	if !sqliteDriverRegistered {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3drv.SQLiteDriver{}, &queryHooks{}))
		sqliteDriverRegistered = true
	}
	driverName = "sqlite3WithHooks"

	db, err := sqlx.Open(driverName, fmt.Sprintf("%s?_foreign_keys=on", dsn))
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "open sqlite index %s", dsn)
	}
	// sqlite does not multithread; more than one connection would just
	// contend on the same file lock (internal/repository/dbConnection.go
	// makes the identical argument for the job database).
	db.SetMaxOpenConns(1)

	if err := migrateIndex(db.DB, dsn); err != nil {
		return nil, err
	}
	return db, nil
}

func migrateIndex(db *sql.DB, dsn string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "init migration driver")
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "build migrator")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errs.Wrap(errs.StoragePrecondition, err, "apply migrations")
	}
	return nil
}
