/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/kentakayama/inventory-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.UpstreamConfig{BaseURL: srv.URL, Token: "config-token"}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_ListSoftwareTitles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, softwareTitlesPath, r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "curl", r.URL.Query().Get("query"))
		assert.Equal(t, "name", r.URL.Query().Get("order_key"))
		assert.Equal(t, "Bearer config-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"count": 1,
			"software_titles": [{
				"id": 42, "name": "curl", "source": "deb_packages", "hosts_count": 12, "versions_count": 2,
				"versions": [{"id": 100, "version": "8.5.0", "vulnerabilities": ["CVE-2024-0001"]}, {"id": 101, "version": "7.88.1", "vulnerabilities": null}]
			}],
			"meta": {"has_next_results": false, "has_previous_results": true}
		}`)
	})

	page, err := c.ListSoftwareTitles(context.Background(), TitlesQuery{Page: 2, PerPage: 50, Query: "curl"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
	assert.False(t, page.HasNextResults)
	require.Len(t, page.Titles, 1)

	title := page.Titles[0]
	assert.Equal(t, int64(42), title.ID)
	assert.Equal(t, "deb_packages", title.Source)
	require.Len(t, title.Versions, 2)
	assert.Equal(t, int64(100), title.Versions[0].ID)
	assert.Equal(t, []string{"CVE-2024-0001"}, title.Versions[0].Vulnerabilities)
}

func TestClient_ListAllSoftwareTitlesFollowsPages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "0":
			fmt.Fprint(w, `{"count": 3, "software_titles": [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}], "meta": {"has_next_results": true}}`)
		case "1":
			fmt.Fprint(w, `{"count": 3, "software_titles": [{"id": 3, "name": "c"}], "meta": {"has_next_results": false}}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	titles, err := c.ListAllSoftwareTitles(context.Background(), TitlesQuery{PerPage: 2})
	require.NoError(t, err)
	require.Len(t, titles, 3)
	assert.Equal(t, int64(3), titles[2].ID)
}

func TestClient_GetSoftwareVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, softwareVersionsPath+"100", r.URL.Path)
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"software": {"id": 100, "name": "curl", "version": "8.5.0", "vendor": "curl project", "vulnerabilities": [{"cve": "CVE-2024-0001"}]}}`)
	})

	ctx := WithBearerToken(context.Background(), "caller-token")
	v, err := c.GetSoftwareVersion(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "curl project", v.Vendor)
	assert.Equal(t, []string{"CVE-2024-0001"}, v.Vulnerabilities)

	vendor, err := c.LookupVendor(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "curl project", vendor)
}

func TestClient_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == softwareVersionsPath+"404" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.GetSoftwareVersion(context.Background(), 500)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "boom")

	_, err = c.GetSoftwareVersion(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_NotConfigured(t *testing.T) {
	c, err := NewClient(config.UpstreamConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, c.BaseURL())

	_, err = c.ListSoftwareTitles(context.Background(), TitlesQuery{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBearerTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", BearerTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", BearerTokenFromHeader("bearer  abc "))
	assert.Equal(t, "", BearerTokenFromHeader("Basic abc"))
	assert.Equal(t, "", BearerTokenFromHeader(""))
}

func TestClient_KeepsBasePathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fleet" + softwareTitlesPath:
			fmt.Fprint(w, `{"count": 0, "software_titles": [], "meta": {"has_next_results": false}}`)
		case "/fleet" + softwareVersionsPath + "1":
			fmt.Fprint(w, `{"software": {"id": 1, "vendor": "acme"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	for _, base := range []string{srv.URL + "/fleet", srv.URL + "/fleet/"} {
		c, err := NewClient(config.UpstreamConfig{BaseURL: base}, nil)
		require.NoError(t, err)

		_, err = c.ListSoftwareTitles(context.Background(), TitlesQuery{})
		require.NoError(t, err, base)
		vendor, err := c.LookupVendor(context.Background(), 1)
		require.NoError(t, err, base)
		assert.Equal(t, "acme", vendor)
	}
}
