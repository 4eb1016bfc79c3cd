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
	"time"

	"github.com/kentakayama/inventory-gateway/internal/domain/model"
)

// OpenSourceFlagRepository handles open-source flag persistence.
type OpenSourceFlagRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOpenSourceFlagRepository(db *sql.DB) *OpenSourceFlagRepository {
	return &OpenSourceFlagRepository{db: db, now: time.Now}
}

// List returns every flag ordered by name.
func (r *OpenSourceFlagRepository) List(ctx context.Context) ([]model.OpenSourceFlag, error) {
	const q = `
		SELECT id, software_title_id, name, created_at, updated_at
		FROM open_source_software
		ORDER BY name ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query open source flags: %w", err)
	}
	defer rows.Close()

	flags := []model.OpenSourceFlag{}
	for rows.Next() {
		var f model.OpenSourceFlag
		if err := rows.Scan(&f.ID, &f.SoftwareTitleID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan open source flag: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open source flags: %w", err)
	}
	return flags, nil
}

// Upsert inserts the flag for softwareTitleID, or replaces its name and bumps updated_at.
func (r *OpenSourceFlagRepository) Upsert(ctx context.Context, softwareTitleID int64, name string) (*model.OpenSourceFlag, error) {
	const upsert = `
		INSERT INTO open_source_software (software_title_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(software_title_id) DO UPDATE
		SET name = excluded.name, updated_at = excluded.updated_at
	`
	const q = `
		SELECT id, software_title_id, name, created_at, updated_at
		FROM open_source_software
		WHERE software_title_id = ?
		LIMIT 1
	`
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsert, softwareTitleID, name, now, now); err != nil {
		return nil, fmt.Errorf("upsert open source flag %d: %w", softwareTitleID, err)
	}

	var f model.OpenSourceFlag
	row := tx.QueryRowContext(ctx, q, softwareTitleID)
	if err := row.Scan(&f.ID, &f.SoftwareTitleID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan open source flag %d: %w", softwareTitleID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open source flag %d: %w", softwareTitleID, err)
	}
	return &f, nil
}

// DeleteBySoftwareTitleID removes the flag and reports whether a row existed.
func (r *OpenSourceFlagRepository) DeleteBySoftwareTitleID(ctx context.Context, softwareTitleID int64) (bool, error) {
	const q = `
		DELETE FROM open_source_software
		WHERE software_title_id = ?
	`
	res, err := r.db.ExecContext(ctx, q, softwareTitleID)
	if err != nil {
		return false, fmt.Errorf("delete open source flag %d: %w", softwareTitleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for open source flag %d: %w", softwareTitleID, err)
	}
	return n > 0, nil
}
