/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package inventory joins upstream software titles with the local augmentation tables
// and exports the result.
package inventory

import (
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/util"
)

// Index answers flag and remark lookups by software title id in constant time.
type Index struct {
	flagged util.Set[int64]
	remarks map[int64]string
}

// NewIndex builds an index from a full augmentation snapshot. A nil snapshot yields an empty index.
func NewIndex(snap *model.AugmentationSnapshot) *Index {
	ix := &Index{
		flagged: util.NewSet[int64](),
		remarks: map[int64]string{},
	}
	if snap == nil {
		return ix
	}
	for _, f := range snap.Flags {
		ix.flagged.Add(f.SoftwareTitleID)
	}
	for _, r := range snap.Remarks {
		ix.remarks[r.SoftwareTitleID] = r.Remark
	}
	return ix
}

func (ix *Index) IsOpenSource(softwareTitleID int64) bool {
	return ix.flagged.Has(softwareTitleID)
}

// Remark returns the stored remark and whether a remark row exists.
func (ix *Index) Remark(softwareTitleID int64) (string, bool) {
	r, ok := ix.remarks[softwareTitleID]
	return r, ok
}

// Join attaches flag status and remark to each title, preserving order.
func Join(titles []model.SoftwareTitle, ix *Index) []model.AnnotatedTitle {
	out := make([]model.AnnotatedTitle, 0, len(titles))
	for _, t := range titles {
		a := model.AnnotatedTitle{
			SoftwareTitle: t,
			OpenSource:    ix.IsOpenSource(t.ID),
		}
		if r, ok := ix.Remark(t.ID); ok {
			a.Remark = &r
		}
		out = append(out, a)
	}
	return out
}
