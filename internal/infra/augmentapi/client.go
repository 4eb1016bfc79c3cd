/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package augmentapi is a client of a running gateway's augmentation API.
package augmentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/augment"
	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 1 << 10
	maxResponseBody = 32 << 20

	openSourcePath = "/api/open-source"
	remarksPath    = "/api/software-remarks"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.AugmentAPIConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("augmentation API base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse augmentation API URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Client) ListFlags(ctx context.Context) ([]model.OpenSourceFlag, error) {
	var flags []model.OpenSourceFlag
	if err := c.do(ctx, http.MethodGet, openSourcePath, nil, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}

func (c *Client) ListRemarks(ctx context.Context) ([]model.SoftwareRemark, error) {
	var remarks []model.SoftwareRemark
	if err := c.do(ctx, http.MethodGet, remarksPath, nil, &remarks); err != nil {
		return nil, err
	}
	return remarks, nil
}

// Snapshot fetches both augmentation tables.
func (c *Client) Snapshot(ctx context.Context) (*model.AugmentationSnapshot, error) {
	flags, err := c.ListFlags(ctx)
	if err != nil {
		return nil, err
	}
	remarks, err := c.ListRemarks(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AugmentationSnapshot{Flags: flags, Remarks: remarks}, nil
}

func (c *Client) UpsertFlag(ctx context.Context, in augment.FlagInput) (*model.OpenSourceFlag, error) {
	var flag model.OpenSourceFlag
	if err := c.do(ctx, http.MethodPost, openSourcePath, in, &flag); err != nil {
		return nil, err
	}
	return &flag, nil
}

// DeleteFlag reports whether a flag existed for softwareTitleID.
func (c *Client) DeleteFlag(ctx context.Context, softwareTitleID int64) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	path := openSourcePath + "/" + strconv.FormatInt(softwareTitleID, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

func (c *Client) UpsertRemark(ctx context.Context, in augment.RemarkInput) (*model.SoftwareRemark, error) {
	var remark model.SoftwareRemark
	if err := c.do(ctx, http.MethodPost, remarksPath, in, &remark); err != nil {
		return nil, err
	}
	return &remark, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	// JoinPath keeps any path prefix of the base URL.
	u := c.baseURL.JoinPath(path)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrStorage, method, u.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("augmentation API request",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a 4xx response to ErrValidation and anything else to ErrStorage,
// carrying the server's {"error": ...} message when there is one.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := string(bytes.TrimSpace(raw))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		msg = e.Error
	}

	sentinel := domain.ErrStorage
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		sentinel = domain.ErrValidation
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, msg)
}
