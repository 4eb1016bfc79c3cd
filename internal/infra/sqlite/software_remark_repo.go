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

// SoftwareRemarkRepository handles software remark persistence.
type SoftwareRemarkRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSoftwareRemarkRepository(db *sql.DB) *SoftwareRemarkRepository {
	return &SoftwareRemarkRepository{db: db, now: time.Now}
}

// List returns every remark. Callers must not rely on the order.
func (r *SoftwareRemarkRepository) List(ctx context.Context) ([]model.SoftwareRemark, error) {
	const q = `
		SELECT id, software_title_id, remark, created_at, updated_at
		FROM software_remarks
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query software remarks: %w", err)
	}
	defer rows.Close()

	remarks := []model.SoftwareRemark{}
	for rows.Next() {
		var m model.SoftwareRemark
		if err := rows.Scan(&m.ID, &m.SoftwareTitleID, &m.Remark, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan software remark: %w", err)
		}
		remarks = append(remarks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate software remarks: %w", err)
	}
	return remarks, nil
}

// Upsert writes remark for softwareTitleID, overwriting any previous value including with "".
func (r *SoftwareRemarkRepository) Upsert(ctx context.Context, softwareTitleID int64, remark string) (*model.SoftwareRemark, error) {
	const upsert = `
		INSERT INTO software_remarks (software_title_id, remark, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(software_title_id) DO UPDATE
		SET remark = excluded.remark, updated_at = excluded.updated_at
	`
	const q = `
		SELECT id, software_title_id, remark, created_at, updated_at
		FROM software_remarks
		WHERE software_title_id = ?
		LIMIT 1
	`
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsert, softwareTitleID, remark, now, now); err != nil {
		return nil, fmt.Errorf("upsert software remark %d: %w", softwareTitleID, err)
	}

	var m model.SoftwareRemark
	row := tx.QueryRowContext(ctx, q, softwareTitleID)
	if err := row.Scan(&m.ID, &m.SoftwareTitleID, &m.Remark, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan software remark %d: %w", softwareTitleID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit software remark %d: %w", softwareTitleID, err)
	}
	return &m, nil
}
