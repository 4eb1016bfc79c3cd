/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := NewSetFrom[int64](1, 2, 2, 3)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(4))

	s.Delete(2)
	s.Add(4)
	assert.False(t, s.Has(2))
	assert.True(t, s.Has(4))
	assert.Equal(t, 3, s.Len())

	empty := NewSet[string]()
	assert.False(t, empty.Has(""))
	assert.Zero(t, empty.Len())
}
