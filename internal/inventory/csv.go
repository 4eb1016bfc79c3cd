/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package inventory

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/kentakayama/inventory-gateway/internal/domain/model"
)

var csvHeader = []string{"id", "name", "source", "versions", "hosts_count", "vendor", "open_source", "remark"}

// WriteCSV writes one header row and one row per title.
// A missing remark and an empty remark both render as an empty cell.
func WriteCSV(w io.Writer, titles []model.AnnotatedTitle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range titles {
		versions := make([]string, 0, len(t.Versions))
		for _, v := range t.Versions {
			versions = append(versions, v.Version)
		}
		openSource := "no"
		if t.OpenSource {
			openSource = "yes"
		}
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Name,
			t.Source,
			strings.Join(versions, ", "),
			strconv.FormatInt(t.HostsCount, 10),
			t.Vendor,
			openSource,
			t.RemarkText(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
