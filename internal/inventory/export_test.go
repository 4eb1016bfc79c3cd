/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package inventory

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_ExportsEveryRowDespiteFailedLookup(t *testing.T) {
	const n, failing = 45, int64(13)
	lookup := &fakeLookup{fail: map[int64]bool{failing: true}}
	enricher := NewEnricher(lookup, config.EnrichConfig{BatchSize: 20}, WithClock(&fakeClock{}))

	empty := ""
	snap := &model.AugmentationSnapshot{
		Flags:   []model.OpenSourceFlag{{SoftwareTitleID: 1, Name: "title-1"}},
		Remarks: []model.SoftwareRemark{{SoftwareTitleID: 2, Remark: "needs review"}, {SoftwareTitleID: 3, Remark: empty}},
	}

	var phases []Phase
	x := NewExporter(staticTitles{titles: titlesWithVersions(n)}, staticSnapshot{snap: snap}, enricher,
		WithProgress(func(p Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
		}))

	var out bytes.Buffer
	rows, err := x.Export(context.Background(), &out, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, n, rows)
	assert.Equal(t, PhaseIdle, x.Phase())
	assert.Equal(t, []Phase{PhaseFetchingTitles, PhaseEnrichingVendors, PhaseBuildingCSV, PhaseIdle}, phases)

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, n+1)
	assert.Equal(t, csvHeader, records[0])

	for i, rec := range records[1:] {
		id := int64(i + 1)
		if id == failing {
			assert.Equal(t, UnknownVendor, rec[5])
		} else {
			assert.Equal(t, vendorFor(id), rec[5])
		}
	}
	assert.Equal(t, "yes", records[1][6])
	assert.Equal(t, "no", records[2][6])
	assert.Equal(t, "needs review", records[2][7])
	assert.Equal(t, "", records[3][7])
	assert.Equal(t, "", records[4][7])
}

func TestExporter_FailureWritesNothing(t *testing.T) {
	enricher := NewEnricher(&fakeLookup{}, config.EnrichConfig{BatchSize: 20}, WithClock(&fakeClock{}))

	cases := map[string]*Exporter{
		"titles":   NewExporter(staticTitles{err: domain.ErrUpstream}, staticSnapshot{}, enricher),
		"snapshot": NewExporter(staticTitles{titles: titlesWithVersions(2)}, staticSnapshot{err: domain.ErrStorage}, enricher),
	}
	for name, x := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := x.Export(context.Background(), &out, ExportOptions{})
			require.Error(t, err)
			assert.Zero(t, out.Len())
			assert.Equal(t, PhaseIdle, x.Phase())
		})
	}
}

func TestExporter_CancelledDuringEnrichment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enricher := NewEnricher(lookupFunc(func(ctx context.Context, _ int64) (string, error) {
		cancel()
		return "", ctx.Err()
	}), config.EnrichConfig{BatchSize: 1}, WithClock(&fakeClock{}))
	x := NewExporter(staticTitles{titles: titlesWithVersions(3)}, staticSnapshot{}, enricher)

	var out bytes.Buffer
	_, err := x.Export(ctx, &out, ExportOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
	assert.Equal(t, PhaseIdle, x.Phase())
}

// blockingTitles parks ListAllSoftwareTitles until release is closed.
type blockingTitles struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingTitles) ListAllSoftwareTitles(ctx context.Context, q upstream.TitlesQuery) ([]model.SoftwareTitle, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestExporter_RejectsConcurrentExport(t *testing.T) {
	src := &blockingTitles{started: make(chan struct{}), release: make(chan struct{})}
	enricher := NewEnricher(&fakeLookup{}, config.EnrichConfig{BatchSize: 20}, WithClock(&fakeClock{}))
	x := NewExporter(src, staticSnapshot{}, enricher)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		var out bytes.Buffer
		_, firstErr = x.Export(context.Background(), &out, ExportOptions{})
	}()

	<-src.started
	assert.Equal(t, PhaseFetchingTitles, x.Phase())

	var out bytes.Buffer
	_, err := x.Export(context.Background(), &out, ExportOptions{})
	assert.True(t, errors.Is(err, domain.ErrExportInProgress))

	close(src.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, PhaseIdle, x.Phase())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "enriching_vendors", PhaseEnrichingVendors.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
