/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/kentakayama/inventory-gateway/internal/augment"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"github.com/kentakayama/inventory-gateway/internal/infra/upstream"
	"github.com/kentakayama/inventory-gateway/internal/inventory"
	"go.uber.org/zap"
)

const (
	maxRequestBodyBytes = 1 << 20

	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
	contentTypeCSV  = "text/csv; charset=utf-8"

	defaultPerPage = 20
	maxPerPage     = 500
	healthTimeout  = 2 * time.Second
)

var errMalformedBody = errors.New("malformed request body")

type handler struct {
	db       Pinger
	augment  *augment.Service
	upstream *upstream.Client
	enricher *inventory.Enricher
	exporter *inventory.Exporter
	proxy    http.Handler
	mux      *http.ServeMux
	logger   *zap.Logger
}

type responseSpec struct {
	status      int
	body        []byte
	contentType string
	headers     map[string]string
}

type errorResponse struct {
	Error string `json:"error" cbor:"error"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted" cbor:"deleted"`
}

type healthResponse struct {
	Status string `json:"status" cbor:"status"`
}

type softwarePage struct {
	Titles         []model.AnnotatedTitle `json:"software_titles" cbor:"software_titles"`
	Count          int64                  `json:"count" cbor:"count"`
	HasNextResults bool                   `json:"has_next_results" cbor:"has_next_results"`
}

func newHandler(deps Deps, logger *zap.Logger) (*handler, error) {
	h := &handler{
		db:       deps.DB,
		augment:  deps.Augment,
		upstream: deps.Upstream,
		enricher: deps.Enricher,
		exporter: deps.Exporter,
		logger:   logger,
	}

	if base := deps.Upstream.BaseURL(); base != nil {
		h.proxy = newUpstreamProxy(base, deps.Upstream.Transport(), h.proxyError)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/open-source", h.listFlags)
	mux.HandleFunc("POST /api/open-source", h.upsertFlag)
	mux.HandleFunc("DELETE /api/open-source/{software_title_id}", h.deleteFlag)
	mux.HandleFunc("GET /api/software-remarks", h.listRemarks)
	mux.HandleFunc("POST /api/software-remarks", h.upsertRemark)
	mux.HandleFunc("GET /api/software", h.listSoftware)
	mux.HandleFunc("GET /api/export.csv", h.exportCSV)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("/api/v1/", h.forward)
	h.mux = mux

	return h, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *handler) listFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.augment.ListFlags(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeValue(w, r, http.StatusOK, flags)
}

func (h *handler) upsertFlag(w http.ResponseWriter, r *http.Request) {
	var in augment.FlagInput
	if err := h.decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	flag, err := h.augment.UpsertFlag(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeValue(w, r, http.StatusOK, flag)
}

func (h *handler) deleteFlag(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("software_title_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: software_title_id must be an integer, got %q", domain.ErrValidation, raw))
		return
	}
	deleted, err := h.augment.DeleteFlag(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeValue(w, r, http.StatusOK, deleteResponse{Deleted: deleted})
}

func (h *handler) listRemarks(w http.ResponseWriter, r *http.Request) {
	remarks, err := h.augment.ListRemarks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeValue(w, r, http.StatusOK, remarks)
}

func (h *handler) upsertRemark(w http.ResponseWriter, r *http.Request) {
	var in augment.RemarkInput
	if err := h.decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	remark, err := h.augment.UpsertRemark(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeValue(w, r, http.StatusOK, remark)
}

// listSoftware serves one upstream page joined with the augmentation tables.
// With vendors=true the page is enriched through the shared throttle.
func (h *handler) listSoftware(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil || page < 0 {
		h.writeError(w, r, fmt.Errorf("%w: page must be a non-negative integer", domain.ErrValidation))
		return
	}
	perPage, err := intParam(q.Get("per_page"), defaultPerPage)
	if err != nil || perPage < 1 || perPage > maxPerPage {
		h.writeError(w, r, fmt.Errorf("%w: per_page must be between 1 and %d", domain.ErrValidation, maxPerPage))
		return
	}
	withVendors, _ := strconv.ParseBool(q.Get("vendors"))

	ctx := callerContext(r)
	titles, err := h.upstream.ListSoftwareTitles(ctx, upstream.TitlesQuery{
		Page:     page,
		PerPage:  perPage,
		Query:    q.Get("query"),
		OrderKey: q.Get("order_key"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := h.augment.Snapshot(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	annotated := inventory.Join(titles.Titles, inventory.NewIndex(snap))
	if withVendors {
		if err := h.enricher.Enrich(ctx, annotated, inventory.NewVendorCache(), nil); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	h.writeValue(w, r, http.StatusOK, softwarePage{
		Titles:         annotated,
		Count:          titles.Count,
		HasNextResults: titles.HasNextResults,
	})
}

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.exporter.Export(callerContext(r), &buf, inventory.ExportOptions{Query: r.URL.Query().Get("query")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("software-inventory-%s.csv", time.Now().UTC().Format("20060102"))
	h.writeResponse(w, responseSpec{
		status:      http.StatusOK,
		body:        buf.Bytes(),
		contentType: contentTypeCSV,
		headers: map[string]string{
			"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": filename}),
			"X-Export-Rows":       strconv.Itoa(rows),
		},
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			h.writeValue(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	h.writeValue(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *handler) forward(w http.ResponseWriter, r *http.Request) {
	if h.proxy == nil {
		h.writeError(w, r, upstream.ErrNotConfigured)
		return
	}
	h.proxy.ServeHTTP(w, r)
}

func (h *handler) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, fmt.Errorf("%w: %w", domain.ErrUpstream, err))
}

// decodeBody reads at most maxRequestBodyBytes and decodes JSON, or CBOR when the
// request declares application/cbor.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %w: body exceeds %d bytes", domain.ErrValidation, errMalformedBody, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %w: %w", domain.ErrValidation, errMalformedBody, err)
	}
	if err := r.Body.Close(); err != nil {
		h.logger.Warn("failed closing request body", zap.Error(err))
	}

	if isMediaType(r.Header.Get("Content-Type"), contentTypeCBOR) {
		err = cbor.Unmarshal(body, v)
	} else {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		return fmt.Errorf("%w: %w: %w", domain.ErrValidation, errMalformedBody, err)
	}
	return nil
}

// writeValue encodes v as CBOR when the client accepts application/cbor and as JSON otherwise.
func (h *handler) writeValue(w http.ResponseWriter, r *http.Request, status int, v any) {
	var (
		body        []byte
		contentType string
		err         error
	)
	if acceptsCBOR(r) {
		body, err = cbor.Marshal(v)
		contentType = contentTypeCBOR
	} else {
		body, err = json.Marshal(v)
		contentType = contentTypeJSON
	}
	if err != nil {
		h.logger.Error("failed encoding response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.writeResponse(w, responseSpec{status: status, body: body, contentType: contentType})
}

// writeError maps err onto a status code and writes {"error": ...}.
// Server-side failures are logged in full and reported by status text only.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
		msg = http.StatusText(status)
	}
	h.writeValue(w, r, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, upstream.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeResponse(w http.ResponseWriter, spec responseSpec) {
	for k, v := range defaultHeaders {
		w.Header().Set(k, v)
	}
	for k, v := range spec.headers {
		w.Header().Set(k, v)
	}

	if len(spec.body) > 0 {
		w.Header().Set("Content-Type", spec.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(spec.body)))
		w.WriteHeader(spec.status)
		if _, err := w.Write(spec.body); err != nil {
			h.logger.Warn("failed writing response body", zap.Error(err))
		}
		return
	}

	w.WriteHeader(spec.status)
}

var defaultHeaders = map[string]string{
	"Cache-Control":           "no-store",
	"X-Content-Type-Options":  "nosniff",
	"Content-Security-Policy": "default-src 'none'",
	"Referrer-Policy":         "no-referrer",
}

// callerContext carries the caller's bearer token through to upstream requests.
func callerContext(r *http.Request) context.Context {
	if token := upstream.BearerTokenFromHeader(r.Header.Get("Authorization")); token != "" {
		return upstream.WithBearerToken(r.Context(), token)
	}
	return r.Context()
}

func acceptsCBOR(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isMediaType(part, contentTypeCBOR) {
			return true
		}
	}
	return false
}

func isMediaType(header, want string) bool {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(header))
	return err == nil && mt == want
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
