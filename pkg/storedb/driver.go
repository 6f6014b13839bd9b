// Package storedb owns every piece of the kernel that touches a per-store
// catalog database: driver selection, the Schema Migration Runner (spec
// §4.5), and the sqlx-backed queries that load products and the modifier
// graph into the pure in-memory types pkg/storeext and pkg/modifier
// consume. The kernel library packages never import database/sql
// directly — this package is the single I/O boundary named in spec §5.
package storedb

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names a supported storedb backend, matching StoreProfile.database.type
// (spec §6).
type Driver string

const (
	SQLite Driver = "sqlite3"
	MySQL  Driver = "mysql"
)

// Open dispatches to the sqlx driver named by driver over connectionString.
// Both drivers are registered via blank import above; database/sql alone is
// never reached for multi-row scans (SPEC_FULL §11).
func Open(driver Driver, connectionString string) (*sqlx.DB, error) {
	switch driver {
	case SQLite, "":
		return openSQLite(connectionString)
	case MySQL:
		return sqlx.Open("mysql", connectionString)
	default:
		return nil, fmt.Errorf("storedb: unsupported driver %q", driver)
	}
}

// openSQLite applies the same connection discipline as the pack's
// reference SQLite store (brutalist/internal/store.Store.Open): a single
// writer connection and WAL journaling, since SQLite only supports one
// writer at a time and the Migration Runner's scripts already serialize
// through one *sqlx.DB per store (spec §5: "accessed through a single
// connection").
func openSQLite(connectionString string) (*sqlx.DB, error) {
	db, err := sqlx.Open(string(SQLite), connectionString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storedb: applying %q: %w", pragma, err)
		}
	}
	return db, nil
}
