/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// AugmentationSnapshot is the full content of both local tables at one point in time.
type AugmentationSnapshot struct {
	Flags   []OpenSourceFlag
	Remarks []SoftwareRemark
}
