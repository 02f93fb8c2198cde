// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
)

// ============================================================================
// INTERFACES
// ============================================================================

// ResponseDispatcher routes a completed HTTP exchange to the right decoding
// path based on status and content type.
//
// # Description
//
// The ChatQnA gateway answers a prompt in one of two modes: a buffered
// JSON document carrying the whole answer, or an SSE stream of answer
// fragments. A distinguished guardrail status signals a policy rejection
// whose body needs its own unwrapping. Dispatch hides that three-way split
// behind a single event-emitting call.
type ResponseDispatcher interface {
	// Dispatch consumes resp, emitting text and sources events through
	// emit, and returns the classified failure if the exchange did not
	// produce a usable answer. The response body is always closed.
	Dispatch(ctx context.Context, resp *http.Response, emit EventFunc) *Error
}

// ============================================================================
// CONFIGURATION STRUCTS
// ============================================================================

// DispatcherConfig holds dispatcher settings.
type DispatcherConfig struct {
	// GuardrailStatus is the HTTP status the gateway uses for guardrail
	// rejections. Defaults to DefaultGuardrailStatus.
	GuardrailStatus int
	// Logger for decode diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultGuardrailStatus is the non-standard status the reference gateway
// emits when a guardrail blocks a prompt or answer.
const DefaultGuardrailStatus = 466

// maxErrorBodyBytes caps how much of an error body is read for detail
// extraction.
const maxErrorBodyBytes = 64 * 1024

// ============================================================================
// IMPLEMENTATION STRUCTS
// ============================================================================

type responseDispatcher struct {
	guardrailStatus int
	decoder         StreamDecoder
	logger          *slog.Logger
}

// ============================================================================
// CONSTRUCTOR FUNCTIONS
// ============================================================================

// NewResponseDispatcher creates a dispatcher with the given config.
func NewResponseDispatcher(cfg DispatcherConfig) ResponseDispatcher {
	if cfg.GuardrailStatus == 0 {
		cfg.GuardrailStatus = DefaultGuardrailStatus
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &responseDispatcher{
		guardrailStatus: cfg.GuardrailStatus,
		decoder:         NewStreamDecoder(cfg.Logger),
		logger:          cfg.Logger,
	}
}

// ============================================================================
// METHODS
// ============================================================================

// Dispatch implements ResponseDispatcher.
func (d *responseDispatcher) Dispatch(ctx context.Context, resp *http.Response, emit EventFunc) *Error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Debug("closing response body", "error", err)
		}
	}()

	if resp.StatusCode == d.guardrailStatus {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			d.logger.Error("reading guardrail body", "error", err)
			body = nil
		}
		return GuardrailError(body, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusError(resp.StatusCode)
	}

	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		contentType = resp.Header.Get("Content-Type")
	}

	switch contentType {
	case "application/json":
		return d.dispatchBuffered(resp.Body, emit)
	case "text/event-stream":
		return d.dispatchStream(ctx, resp.Body, emit)
	default:
		return ContentTypeError(contentType)
	}
}

// bufferedResponse is the whole-answer document. Older gateways put the
// source batch under a top-level field, newer ones nest it in metadata.
type bufferedResponse struct {
	Text     string   `json:"text"`
	Sources  []Source `json:"sources"`
	Metadata struct {
		RerankedDocs []Source `json:"reranked_docs"`
	} `json:"metadata"`
}

func (d *responseDispatcher) dispatchBuffered(body io.Reader, emit EventFunc) *Error {
	var doc bufferedResponse
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return ParseError(err)
	}

	if err := emit(Event{Kind: EventText, Text: doc.Text}); err != nil {
		return Classify(err)
	}

	raw := doc.Sources
	if raw == nil {
		raw = doc.Metadata.RerankedDocs
	}
	if err := emit(Event{Kind: EventSources, Sources: raw}); err != nil {
		return Classify(err)
	}
	return nil
}

func (d *responseDispatcher) dispatchStream(ctx context.Context, body io.Reader, emit EventFunc) *Error {
	if err := d.decoder.Decode(ctx, body, emit); err != nil {
		return Classify(err)
	}
	return nil
}

// ============================================================================
// COMPILE-TIME INTERFACE CHECKS
// ============================================================================

var _ ResponseDispatcher = (*responseDispatcher)(nil)
