/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import "errors"

var (
	ErrNotFound         = errors.New("item not found")
	ErrValidation       = errors.New("validation failed")
	ErrStorage          = errors.New("storage unavailable")
	ErrUpstream         = errors.New("upstream request failed")
	ErrExportInProgress = errors.New("export already in progress")
)
