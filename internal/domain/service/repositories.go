/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/kentakayama/inventory-gateway/internal/domain/model"
)

// OpenSourceFlagRepository defines the interface for open-source flag persistence.
type OpenSourceFlagRepository interface {
	List(ctx context.Context) ([]model.OpenSourceFlag, error)
	Upsert(ctx context.Context, softwareTitleID int64, name string) (*model.OpenSourceFlag, error)
	DeleteBySoftwareTitleID(ctx context.Context, softwareTitleID int64) (bool, error)
}

// SoftwareRemarkRepository defines the interface for software remark persistence.
type SoftwareRemarkRepository interface {
	List(ctx context.Context) ([]model.SoftwareRemark, error)
	Upsert(ctx context.Context, softwareTitleID int64, remark string) (*model.SoftwareRemark, error)
}
