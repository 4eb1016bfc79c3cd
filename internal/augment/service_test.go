/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package augment

import (
	"context"
	"errors"
	"testing"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.InitDB(context.Background(), config.DBConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.CloseDB(db) })
	return NewService(sqlite.NewOpenSourceFlagRepository(db), sqlite.NewSoftwareRemarkRepository(db), nil)
}

func TestService_UpsertFlagUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.UpsertFlag(ctx, FlagInput{SoftwareTitleID: 42, Name: "curl"})
	require.NoError(t, err)
	_, err = svc.UpsertFlag(ctx, FlagInput{SoftwareTitleID: 42, Name: "curl 8"})
	require.NoError(t, err)

	flags, err := svc.ListFlags(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "curl 8", flags[0].Name)
}

func TestService_UpsertFlagValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cases := map[string]FlagInput{
		"missing id":   {Name: "curl"},
		"missing name": {SoftwareTitleID: 42},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpsertFlag(ctx, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := svc.UpsertFlag(ctx, FlagInput{Name: "curl"})
	assert.Contains(t, err.Error(), "software_title_id is required")

	flags, err := svc.ListFlags(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags, "rejected writes must not change state")
}

func TestService_SoftwareTitleIDIsOpaque(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	flag, err := svc.UpsertFlag(ctx, FlagInput{SoftwareTitleID: -7, Name: "imported"})
	require.NoError(t, err)
	assert.Equal(t, int64(-7), flag.SoftwareTitleID)

	remark, err := svc.UpsertRemark(ctx, RemarkInput{SoftwareTitleID: -7, Remark: "legacy id"})
	require.NoError(t, err)
	assert.Equal(t, int64(-7), remark.SoftwareTitleID)
}

func TestService_DeleteFlagTwice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.UpsertFlag(ctx, FlagInput{SoftwareTitleID: 42, Name: "curl"})
	require.NoError(t, err)

	deleted, err := svc.DeleteFlag(ctx, 42)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteFlag(ctx, 42)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestService_UpsertRemark(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.UpsertRemark(ctx, RemarkInput{Remark: "orphan"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpsertRemark(ctx, RemarkInput{SoftwareTitleID: 42, Remark: "needs review"})
	require.NoError(t, err)
	saved, err := svc.UpsertRemark(ctx, RemarkInput{SoftwareTitleID: 42, Remark: ""})
	require.NoError(t, err)
	assert.Equal(t, "", saved.Remark)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Flags)
	require.Len(t, snap.Remarks, 1)
	assert.Equal(t, "", snap.Remarks[0].Remark)
}

type failingFlags struct{}

func (failingFlags) List(context.Context) ([]model.OpenSourceFlag, error) {
	return nil, errors.New("disk I/O error")
}

func (failingFlags) Upsert(context.Context, int64, string) (*model.OpenSourceFlag, error) {
	return nil, errors.New("disk I/O error")
}

func (failingFlags) DeleteBySoftwareTitleID(context.Context, int64) (bool, error) {
	return false, errors.New("disk I/O error")
}

func TestService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingFlags{}, nil, nil)

	_, err := svc.ListFlags(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = svc.UpsertFlag(ctx, FlagInput{SoftwareTitleID: 1, Name: "curl"})
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = svc.DeleteFlag(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = svc.Snapshot(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
