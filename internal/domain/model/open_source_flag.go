/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// OpenSourceFlag marks an upstream software title as open source.
// At most one flag exists per SoftwareTitleID.
type OpenSourceFlag struct {
	ID              int64     `json:"id" cbor:"id"`
	SoftwareTitleID int64     `json:"software_title_id" cbor:"software_title_id"`
	Name            string    `json:"name" cbor:"name"`
	CreatedAt       time.Time `json:"created_at" cbor:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" cbor:"updated_at"`
}
