/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// AnnotatedTitle is an upstream software title joined with the local augmentation tables.
// Remark is nil when no remark row exists.
type AnnotatedTitle struct {
	SoftwareTitle
	OpenSource bool    `json:"open_source" cbor:"open_source"`
	Remark     *string `json:"remark" cbor:"remark"`
	Vendor     string  `json:"vendor,omitempty" cbor:"vendor,omitempty"`
}

// RemarkText returns the remark, treating a missing row as empty.
func (a AnnotatedTitle) RemarkText() string {
	if a.Remark == nil {
		return ""
	}
	return *a.Remark
}
