/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/kentakayama/inventory-gateway/internal/domain/model"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "inventory-gateway/upstream-client"
	defaultPerPage   = 100
	maxErrorBody     = 1 << 10
	maxResponseBody  = 32 << 20

	softwareTitlesPath   = "/api/v1/fleet/software/titles"
	softwareVersionsPath = "/api/v1/fleet/software/versions/"
)

// ErrNotConfigured is returned by every call when no upstream base URL was configured.
var ErrNotConfigured = errors.New("upstream base URL is not configured")

// Client reads the software inventory of record from the upstream device-management API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	userAgent  string
	logger     *zap.Logger
}

// TitlesQuery selects one page of software titles. Page is zero-based.
type TitlesQuery struct {
	Page     int
	PerPage  int
	Query    string
	OrderKey string
}

func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	if cfg.BaseURL == "" {
		return c, nil
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream URL: %w", err)
	}
	c.baseURL = base

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if base.Scheme == "https" && cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	return c, nil
}

// BaseURL returns the configured upstream root, or nil.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// Transport returns the round tripper used for upstream calls so that other
// upstream traffic shares its TLS settings. It is nil when no base URL is configured.
func (c *Client) Transport() http.RoundTripper {
	if c.httpClient == nil {
		return nil
	}
	return c.httpClient.Transport
}

// ListSoftwareTitles fetches one page of software titles.
func (c *Client) ListSoftwareTitles(ctx context.Context, q TitlesQuery) (*model.SoftwareTitlesPage, error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(max(q.Page, 0)))
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	values.Set("per_page", strconv.Itoa(perPage))
	if q.Query != "" {
		values.Set("query", q.Query)
	}
	orderKey := q.OrderKey
	if orderKey == "" {
		orderKey = "name"
	}
	values.Set("order_key", orderKey)

	var resp softwareTitlesResponse
	if err := c.getJSON(ctx, softwareTitlesPath, values, &resp); err != nil {
		return nil, fmt.Errorf("list software titles: %w", err)
	}

	page := &model.SoftwareTitlesPage{
		Titles:         make([]model.SoftwareTitle, 0, len(resp.SoftwareTitles)),
		Count:          resp.Count,
		HasNextResults: resp.Meta.HasNextResults,
	}
	for _, t := range resp.SoftwareTitles {
		page.Titles = append(page.Titles, t.toModel())
	}
	return page, nil
}

// ListAllSoftwareTitles follows pagination until the upstream reports no further results.
func (c *Client) ListAllSoftwareTitles(ctx context.Context, q TitlesQuery) ([]model.SoftwareTitle, error) {
	var titles []model.SoftwareTitle
	for page := 0; ; page++ {
		q.Page = page
		p, err := c.ListSoftwareTitles(ctx, q)
		if err != nil {
			return nil, err
		}
		titles = append(titles, p.Titles...)
		if !p.HasNextResults || len(p.Titles) == 0 {
			return titles, nil
		}
	}
}

// GetSoftwareVersion fetches the detail of one software version, including its vendor.
func (c *Client) GetSoftwareVersion(ctx context.Context, id int64) (*model.SoftwareVersion, error) {
	var resp softwareVersionResponse
	if err := c.getJSON(ctx, softwareVersionsPath+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, fmt.Errorf("get software version %d: %w", id, err)
	}
	v := resp.Software.toModel()
	return &v, nil
}

// LookupVendor resolves the vendor of a software version.
func (c *Client) LookupVendor(ctx context.Context, versionID int64) (string, error) {
	v, err := c.GetSoftwareVersion(ctx, versionID)
	if err != nil {
		return "", err
	}
	return v.Vendor, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.baseURL == nil {
		return ErrNotConfigured
	}

	// JoinPath keeps any path prefix of the base URL.
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token := c.bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: perform request: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream request",
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %s", domain.ErrUpstream, domain.ErrNotFound, u.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: unexpected status %s: %s", domain.ErrUpstream, resp.Status, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrUpstream, err)
	}
	return nil
}

func (c *Client) bearerToken(ctx context.Context) string {
	if token := BearerTokenFromContext(ctx); token != "" {
		return token
	}
	return c.token
}

type bearerTokenKey struct{}

// WithBearerToken attaches a caller's token so upstream requests run with the caller's identity.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

func BearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}

// BearerTokenFromHeader extracts the token of an "Authorization: Bearer <token>" header value.
func BearerTokenFromHeader(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
