/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// SoftwareRemark is a free-text annotation of an upstream software title.
// An empty Remark is a stored value, not the absence of a row.
type SoftwareRemark struct {
	ID              int64     `json:"id" cbor:"id"`
	SoftwareTitleID int64     `json:"software_title_id" cbor:"software_title_id"`
	Remark          string    `json:"remark" cbor:"remark"`
	CreatedAt       time.Time `json:"created_at" cbor:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" cbor:"updated_at"`
}
