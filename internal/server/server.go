/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/augment"
	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"github.com/kentakayama/inventory-gateway/internal/inventory"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer serves from.
type Deps struct {
	DB       Pinger
	Augment  *augment.Service
	Upstream *upstream.Client
	Enricher *inventory.Enricher
	Exporter *inventory.Exporter
	Logger   *zap.Logger
}

// Server wires the HTTP listener and request handling stack.
type Server struct {
	cfg     config.Config
	handler *handler
	http    *http.Server
	logger  *zap.Logger
}

// New constructs a Server using the provided configuration.
func New(cfg config.Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Augment == nil {
		return nil, errors.New("server: augmentation service is required")
	}
	if deps.Upstream == nil {
		return nil, errors.New("server: upstream client is required")
	}
	if deps.Enricher == nil {
		deps.Enricher = inventory.NewEnricher(deps.Upstream, cfg.Enrich, inventory.WithLogger(logger))
	}
	if deps.Exporter == nil {
		deps.Exporter = inventory.NewExporter(deps.Upstream, deps.Augment, deps.Enricher, inventory.WithExportLogger(logger))
	}

	h, err := newHandler(deps, logger)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           withMiddleware(h, cfg.CORS, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		handler: h,
		http:    httpSrv,
		logger:  logger,
	}, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("inventory gateway listening", zap.String("addr", s.http.Addr))

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully takes down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
