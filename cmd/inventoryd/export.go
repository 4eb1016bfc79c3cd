/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kentakayama/inventory-gateway/internal/infra/augmentapi"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"github.com/kentakayama/inventory-gateway/internal/inventory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCmd(load loadFunc) *cobra.Command {
	var (
		out   string
		query string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the annotated software inventory as CSV",
		Long: `Fetches every software title from the upstream API, joins the flags and
remarks served by a running gateway (augment_api.base_url), resolves vendors
in throttled batches and writes the CSV to --out or stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			up, err := upstream.NewClient(cfg.Upstream, logger.Named("upstream"))
			if err != nil {
				return err
			}
			if up.BaseURL() == nil {
				return errors.New("upstream.base_url is required for export")
			}
			augment, err := augmentapi.NewClient(cfg.AugmentAPI, logger.Named("augment_api"))
			if err != nil {
				return err
			}

			enricher := inventory.NewEnricher(up, cfg.Enrich, inventory.WithLogger(logger.Named("enrich")))
			exporter := inventory.NewExporter(up, augment, enricher,
				inventory.WithExportLogger(logger.Named("export")),
				inventory.WithProgress(func(p inventory.Progress) {
					if p.Batches > 0 {
						logger.Info("export progress", zap.Stringer("phase", p.Phase), zap.Int("batch", p.Batch), zap.Int("batches", p.Batches))
						return
					}
					logger.Info("export progress", zap.Stringer("phase", p.Phase))
				}),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var buf bytes.Buffer
			rows, err := exporter.Export(ctx, &buf, inventory.ExportOptions{Query: query})
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Info("export written", zap.String("path", out), zap.Int("rows", rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&query, "query", "", "only export titles matching this search")
	return cmd
}
