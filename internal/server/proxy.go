/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"
)

// newUpstreamProxy forwards /api/v1/* to the upstream API. The request path and query are
// kept and Authorization passes through unchanged.
func newUpstreamProxy(base *url.URL, transport http.RoundTripper, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(base)
			pr.SetXForwarded()
		},
		Transport:    transport,
		ErrorHandler: onError,
	}
}
