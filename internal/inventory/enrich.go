/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package inventory

import (
	"context"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// UnknownVendor is reported when a title has no versions or its vendor could not be resolved.
const UnknownVendor = "Unknown"

// VendorLookup resolves the vendor of one software version.
type VendorLookup interface {
	LookupVendor(ctx context.Context, versionID int64) (string, error)
}

// Enricher fills in vendors in fixed-size batches with a fixed pause between batches.
// Lookups from all concurrent Enrich calls share one semaphore of BatchSize slots, so
// list views and exports together never have more than BatchSize lookups in flight.
type Enricher struct {
	lookup     VendorLookup
	batchSize  int
	batchDelay time.Duration
	inFlight   *semaphore.Weighted
	clock      Clock
	logger     *zap.Logger
}

type EnricherOption func(*Enricher)

func WithClock(c Clock) EnricherOption {
	return func(e *Enricher) { e.clock = c }
}

func WithLogger(l *zap.Logger) EnricherOption {
	return func(e *Enricher) { e.logger = l }
}

func NewEnricher(lookup VendorLookup, cfg config.EnrichConfig, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		lookup:     lookup,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		clock:      RealClock{},
		logger:     zap.NewNop(),
	}
	if e.batchSize <= 0 {
		e.batchSize = 20
	}
	for _, opt := range opts {
		opt(e)
	}
	e.inFlight = semaphore.NewWeighted(int64(e.batchSize))
	return e
}

// BatchProgress is called after batch (1-based) of batches has settled.
type BatchProgress func(batch, batches int)

// Enrich sets Vendor on every title in place. Cached titles and titles without versions
// are resolved without a lookup; the rest are looked up batch by batch. A failed lookup
// yields UnknownVendor and is not cached. Only cancellation of ctx aborts enrichment.
func (e *Enricher) Enrich(ctx context.Context, titles []model.AnnotatedTitle, cache *VendorCache, progress BatchProgress) error {
	if cache == nil {
		cache = NewVendorCache()
	}

	var pending []int
	for i := range titles {
		if v, ok := cache.Get(titles[i].ID); ok {
			titles[i].Vendor = v
			continue
		}
		if _, ok := titles[i].FirstVersionID(); !ok {
			titles[i].Vendor = UnknownVendor
			continue
		}
		pending = append(pending, i)
	}

	batches := (len(pending) + e.batchSize - 1) / e.batchSize
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b > 0 {
			if err := e.clock.Sleep(ctx, e.batchDelay); err != nil {
				return err
			}
		}

		lo := b * e.batchSize
		hi := min(lo+e.batchSize, len(pending))

		// Each goroutine writes only its own element.
		var g errgroup.Group
		for _, idx := range pending[lo:hi] {
			g.Go(func() error {
				titles[idx].Vendor = e.resolve(ctx, titles[idx].SoftwareTitle, cache)
				return nil
			})
		}
		_ = g.Wait()

		if progress != nil {
			progress(b+1, batches)
		}
	}
	return ctx.Err()
}

func (e *Enricher) resolve(ctx context.Context, t model.SoftwareTitle, cache *VendorCache) string {
	versionID, _ := t.FirstVersionID()
	if err := e.inFlight.Acquire(ctx, 1); err != nil {
		return UnknownVendor
	}
	vendor, err := e.lookup.LookupVendor(ctx, versionID)
	e.inFlight.Release(1)
	if err != nil {
		e.logger.Warn("vendor lookup failed",
			zap.Int64("software_title_id", t.ID),
			zap.Int64("version_id", versionID),
			zap.Error(err),
		)
		return UnknownVendor
	}
	if vendor == "" {
		vendor = UnknownVendor
	}
	cache.Put(t.ID, vendor)
	return vendor
}
