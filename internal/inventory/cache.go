/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package inventory

import "sync"

// VendorCache maps software title id to resolved vendor for the lifetime of one operation.
// Entries are never invalidated.
type VendorCache struct {
	mu      sync.RWMutex
	vendors map[int64]string
}

func NewVendorCache() *VendorCache {
	return &VendorCache{vendors: map[int64]string{}}
}

func (c *VendorCache) Get(softwareTitleID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vendors[softwareTitleID]
	return v, ok
}

func (c *VendorCache) Put(softwareTitleID int64, vendor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vendors[softwareTitleID] = vendor
}

func (c *VendorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vendors)
}
