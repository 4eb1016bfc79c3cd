/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/augment"
	"github.com/kentakayama/inventory-gateway/internal/infra/sqlite"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"github.com/kentakayama/inventory-gateway/internal/inventory"
	"github.com/kentakayama/inventory-gateway/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := sqlite.InitDB(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer sqlite.CloseDB(db)
			logger.Info("database ready", zap.String("driver", cfg.DB.Driver), zap.String("path", cfg.DB.Path))

			up, err := upstream.NewClient(cfg.Upstream, logger.Named("upstream"))
			if err != nil {
				return err
			}
			if up.BaseURL() == nil {
				logger.Warn("upstream.base_url is not set; software listing, export and proxy are disabled")
			}

			svc := augment.NewService(sqlite.NewOpenSourceFlagRepository(db), sqlite.NewSoftwareRemarkRepository(db), logger.Named("augment"))
			enricher := inventory.NewEnricher(up, cfg.Enrich, inventory.WithLogger(logger.Named("enrich")))

			srv, err := server.New(*cfg, server.Deps{
				DB:       db,
				Augment:  svc,
				Upstream: up,
				Enricher: enricher,
				Exporter: inventory.NewExporter(up, svc, enricher, inventory.WithExportLogger(logger.Named("export"))),
				Logger:   logger.Named("http"),
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.ListenAndServe)
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			})
			return g.Wait()
		},
	}
}
