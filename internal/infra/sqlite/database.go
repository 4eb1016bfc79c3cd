/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kentakayama/inventory-gateway/internal/config"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite database described by cfg and creates the augmentation tables.
func InitDB(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}

	busyTimeout := cfg.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	db, err := sql.Open(driver, dsn(driver, cfg.Path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	maxOpen := cfg.MaxOpenConns
	if isMemory(cfg.Path) || maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(min(maxOpen, 5))

	// NOTE: journal_mode is persistent per DB file and returns a row.
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", strings.TrimSuffix(p, ";"), err)
		}
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// createSchema creates all necessary database tables.
func createSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	-- Software titles curated as open source.
	-- software_title_id refers to the upstream inventory and is not validated locally.
	CREATE TABLE IF NOT EXISTS open_source_software (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		software_title_id INTEGER UNIQUE NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_open_source_software_name ON open_source_software(name);

	-- Free-text remark per software title. An empty remark is a stored value.
	CREATE TABLE IF NOT EXISTS software_remarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		software_title_id INTEGER UNIQUE NOT NULL,
		remark TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	// Execute schema using transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// dsn carries the per-connection pragmas in the connection string, since a PRAGMA
// executed through the pool only reaches whichever connection ran it. Transactions
// take the write lock at BEGIN so concurrent upserts wait on busy_timeout.
func dsn(driver, path string, busyTimeout int) string {
	if isMemory(path) {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if driver == "sqlite" {
		return path + sep + fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate", busyTimeout)
	}
	return path + sep + fmt.Sprintf("_busy_timeout=%d&_foreign_keys=on&_txlock=immediate", busyTimeout)
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
