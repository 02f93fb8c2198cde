// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history talks to the backend chat-history service: saving
// finished conversations, listing them, and renaming or deleting them.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
)

// ============================================================================
// INTERFACES
// ============================================================================

// Store is the chat-history API surface.
type Store interface {
	// Save persists turns under id. An empty id asks the backend to mint
	// one; the stored chat's id and display name come back either way.
	Save(ctx context.Context, id string, turns []qna.ChatTurn) (Chat, error)

	// List returns every stored chat, id and name only.
	List(ctx context.Context) ([]Chat, error)

	// Get returns one stored chat with its full turn list.
	Get(ctx context.Context, id string) (ChatDetail, error)

	// Rename changes a stored chat's display name.
	Rename(ctx context.Context, id, name string) error

	// Delete removes a stored chat.
	Delete(ctx context.Context, id string) error

	// ExportAll fetches every stored chat in parallel and returns the full
	// details keyed by chat id.
	ExportAll(ctx context.Context) (map[string]ChatDetail, error)
}

// ============================================================================
// DATA TYPES
// ============================================================================

// Chat is a stored conversation's directory entry.
type Chat struct {
	ID   string `json:"id"`
	Name string `json:"history_name"`
}

// ChatDetail is a stored conversation with its turns.
type ChatDetail struct {
	ID    string         `json:"id"`
	Name  string         `json:"history_name"`
	Turns []qna.ChatTurn `json:"history"`
}

// ============================================================================
// CONFIGURATION STRUCTS
// ============================================================================

// Config holds history client settings.
type Config struct {
	// BaseURL is the backend root, e.g. https://host. The chat-history
	// paths are appended to it.
	BaseURL string
	// Token supplies the bearer token. Nil means no Authorization header.
	Token qna.TokenSource
	// Client overrides the HTTP transport, for tests.
	Client qna.HTTPClient
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const (
	pathList   = "/v1/chat_history/get"
	pathSave   = "/v1/chat_history/save"
	pathRename = "/v1/chat_history/change_name"
	pathDelete = "/v1/chat_history/delete"

	// exportConcurrency bounds the parallel fetches in ExportAll.
	exportConcurrency = 4
)

// ============================================================================
// IMPLEMENTATION STRUCTS
// ============================================================================

type client struct {
	baseURL string
	token   qna.TokenSource
	http    qna.HTTPClient
	logger  *slog.Logger
}

// ============================================================================
// CONSTRUCTOR FUNCTIONS
// ============================================================================

// NewClient creates a history Store from cfg.
func NewClient(cfg Config) (Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("history: base URL is required")
	}
	if cfg.Client == nil {
		cfg.Client = qna.NewHTTPClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    cfg.Client,
		logger:  cfg.Logger,
	}, nil
}

// ============================================================================
// METHODS
// ============================================================================

// Save implements Store.
func (c *client) Save(ctx context.Context, id string, turns []qna.ChatTurn) (Chat, error) {
	payload := struct {
		History []qna.ChatTurn `json:"history"`
		ID      *string        `json:"id"`
	}{History: turns}
	if id != "" {
		payload.ID = &id
	}

	var saved Chat
	if err := c.call(ctx, http.MethodPost, pathSave, nil, payload, &saved); err != nil {
		return Chat{}, fmt.Errorf("saving chat: %w", err)
	}
	return saved, nil
}

// List implements Store.
func (c *client) List(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.call(ctx, http.MethodGet, pathList, nil, nil, &chats); err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// Get implements Store.
func (c *client) Get(ctx context.Context, id string) (ChatDetail, error) {
	if id == "" {
		return ChatDetail{}, fmt.Errorf("history: chat id is required")
	}
	query := url.Values{"history_id": {id}}

	var detail ChatDetail
	if err := c.call(ctx, http.MethodGet, pathList, query, nil, &detail); err != nil {
		return ChatDetail{}, fmt.Errorf("fetching chat %s: %w", id, err)
	}
	return detail, nil
}

// Rename implements Store.
func (c *client) Rename(ctx context.Context, id, name string) error {
	if id == "" {
		return fmt.Errorf("history: chat id is required")
	}
	payload := struct {
		ID   string `json:"id"`
		Name string `json:"history_name"`
	}{ID: id, Name: name}

	if err := c.call(ctx, http.MethodPost, pathRename, nil, payload, nil); err != nil {
		return fmt.Errorf("renaming chat %s: %w", id, err)
	}
	return nil
}

// Delete implements Store.
func (c *client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("history: chat id is required")
	}
	query := url.Values{"history_id": {id}}

	if err := c.call(ctx, http.MethodDelete, pathDelete, query, nil, nil); err != nil {
		return fmt.Errorf("deleting chat %s: %w", id, err)
	}
	return nil
}

// ExportAll implements Store.
func (c *client) ExportAll(ctx context.Context) (map[string]ChatDetail, error) {
	chats, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]ChatDetail, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)

	for i, chat := range chats {
		g.Go(func() error {
			detail, err := c.Get(gctx, chat.ID)
			if err != nil {
				return err
			}
			details[i] = detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]ChatDetail, len(details))
	for _, detail := range details {
		out[detail.ID] = detail
	}
	return out, nil
}

// call runs one JSON exchange against the history service. A nil body
// sends no payload; a nil out discards the response body.
func (c *client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token.Token()
		if err != nil {
			return fmt.Errorf("resolving token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("closing history response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("history service returned HTTP %d: %s", resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ============================================================================
// COMPILE-TIME INTERFACE CHECKS
// ============================================================================

var _ Store = (*client)(nil)
