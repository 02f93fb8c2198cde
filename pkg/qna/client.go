// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"net"
	"net/http"
	"time"
)

// HTTPClient abstracts the HTTP transport so tests can inject fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type defaultHTTPClient struct {
	client *http.Client
}

// NewHTTPClient returns the production HTTP client. No overall client
// timeout is set because streamed answers stay open for minutes; per-turn
// deadlines come from the request context. Connect and header timeouts
// still bound a dead backend.
func NewHTTPClient() HTTPClient {
	return &defaultHTTPClient{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

func (c *defaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

var _ HTTPClient = (*defaultHTTPClient)(nil)
