/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"go.uber.org/zap"
)

const exportPageSize = 500

// Phase is the state of an Exporter.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetchingTitles
	PhaseEnrichingVendors
	PhaseBuildingCSV
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetchingTitles:
		return "fetching_titles"
	case PhaseEnrichingVendors:
		return "enriching_vendors"
	case PhaseBuildingCSV:
		return "building_csv"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Progress reports the current phase. Batch and Batches are set while enriching vendors.
type Progress struct {
	Phase   Phase
	Batch   int
	Batches int
}

// TitleSource lists every upstream software title matching q.
type TitleSource interface {
	ListAllSoftwareTitles(ctx context.Context, q upstream.TitlesQuery) ([]model.SoftwareTitle, error)
}

// SnapshotSource returns the full augmentation tables.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*model.AugmentationSnapshot, error)
}

// ExportOptions narrows an export. A nil Cache gets a fresh cache scoped to the export.
type ExportOptions struct {
	Query string
	Cache *VendorCache
}

// Exporter produces the CSV export. One export runs at a time per Exporter.
type Exporter struct {
	titles     TitleSource
	snapshots  SnapshotSource
	enricher   *Enricher
	logger     *zap.Logger
	onProgress func(Progress)

	mu       sync.Mutex
	progress Progress
	running  bool
}

type ExporterOption func(*Exporter)

func WithProgress(fn func(Progress)) ExporterOption {
	return func(x *Exporter) { x.onProgress = fn }
}

func WithExportLogger(l *zap.Logger) ExporterOption {
	return func(x *Exporter) { x.logger = l }
}

func NewExporter(titles TitleSource, snapshots SnapshotSource, enricher *Enricher, opts ...ExporterOption) *Exporter {
	x := &Exporter{
		titles:    titles,
		snapshots: snapshots,
		enricher:  enricher,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Phase returns the current state.
func (x *Exporter) Phase() Phase {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.progress.Phase
}

// Export writes the CSV of all titles to w and returns the number of data rows.
// Nothing is written to w unless the whole export succeeds.
func (x *Exporter) Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error) {
	if err := x.begin(); err != nil {
		return 0, err
	}
	defer x.set(Progress{Phase: PhaseIdle})

	start := time.Now()
	rows, buf, err := x.build(ctx, opts)
	if err != nil {
		x.logger.Error("export failed", zap.Error(err))
		return 0, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}

	x.logger.Info("export complete", zap.Int("rows", rows), zap.Duration("elapsed", time.Since(start)))
	return rows, nil
}

func (x *Exporter) build(ctx context.Context, opts ExportOptions) (int, *bytes.Buffer, error) {
	x.set(Progress{Phase: PhaseFetchingTitles})
	titles, err := x.titles.ListAllSoftwareTitles(ctx, upstream.TitlesQuery{PerPage: exportPageSize, Query: opts.Query})
	if err != nil {
		return 0, nil, fmt.Errorf("fetch titles: %w", err)
	}
	snap, err := x.snapshots.Snapshot(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch augmentation snapshot: %w", err)
	}
	annotated := Join(titles, NewIndex(snap))

	x.set(Progress{Phase: PhaseEnrichingVendors})
	cache := opts.Cache
	if cache == nil {
		cache = NewVendorCache()
	}
	err = x.enricher.Enrich(ctx, annotated, cache, func(batch, batches int) {
		x.set(Progress{Phase: PhaseEnrichingVendors, Batch: batch, Batches: batches})
	})
	if err != nil {
		return 0, nil, fmt.Errorf("enrich vendors: %w", err)
	}

	x.set(Progress{Phase: PhaseBuildingCSV})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, annotated); err != nil {
		return 0, nil, fmt.Errorf("build csv: %w", err)
	}
	return len(annotated), &buf, nil
}

func (x *Exporter) begin() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.running {
		return domain.ErrExportInProgress
	}
	x.running = true
	return nil
}

func (x *Exporter) set(p Progress) {
	x.mu.Lock()
	x.progress = p
	if p.Phase == PhaseIdle {
		x.running = false
	}
	fn := x.onProgress
	x.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}
