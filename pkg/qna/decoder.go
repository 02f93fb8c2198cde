// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ============================================================================
// EVENTS
// ============================================================================

// EventKind tags a single event observed on a turn.
type EventKind string

const (
	// EventText carries an incremental answer fragment.
	EventText EventKind = "text"
	// EventSources carries a raw source-fragment batch. Consolidation
	// happens when the batch is applied to a turn.
	EventSources EventKind = "sources"
	// EventDone marks normal completion of the turn.
	EventDone EventKind = "done"
	// EventError marks abnormal completion; Err is always set.
	EventError EventKind = "error"
)

// Event is the tagged variant delivered to turn consumers. Exactly one of
// the payload fields is meaningful for a given Kind.
type Event struct {
	Kind    EventKind
	Text    string
	Sources []Source
	Err     *Error
}

// EventFunc receives turn events in arrival order. Returning an error
// stops the stream with that error.
type EventFunc func(Event) error

// ============================================================================
// INTERFACES
// ============================================================================

// StreamDecoder consumes a text/event-stream response body and emits text
// and sources events until a termination sentinel, EOF, or cancellation.
type StreamDecoder interface {
	// Decode reads SSE lines from r and invokes emit per event. It returns
	// nil on a sentinel or clean EOF. It never emits done or error events;
	// terminal events are the dispatcher's job.
	Decode(ctx context.Context, r io.Reader, emit EventFunc) error
}

// ============================================================================
// IMPLEMENTATION STRUCTS
// ============================================================================

// sseDecoder is the line-oriented SSE decoder for the ChatQnA token
// framing. The backend emits answer fragments as "data:" lines, a source
// batch as a "json:" payload, and ends the stream with "[DONE]" or "</s>".
type sseDecoder struct {
	logger *slog.Logger
}

// ============================================================================
// CONSTRUCTOR FUNCTIONS
// ============================================================================

// NewStreamDecoder creates the SSE decoder. A nil logger falls back to
// slog.Default().
func NewStreamDecoder(logger *slog.Logger) StreamDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &sseDecoder{logger: logger}
}

// ============================================================================
// METHODS
// ============================================================================

// Decode implements StreamDecoder.
func (d *sseDecoder) Decode(ctx context.Context, r io.Reader, emit EventFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if jsonPayload, isJSON := strings.CutPrefix(line, "json:"); isJSON {
			sources, err := decodeSourcesPayload(strings.TrimSpace(jsonPayload))
			if err != nil {
				// A bad source batch does not kill the answer stream.
				d.logger.Warn("skipping malformed sources payload", "error", err)
				continue
			}
			if err := emit(Event{Kind: EventSources, Sources: sources}); err != nil {
				return err
			}
			continue
		}

		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)

		if strings.Contains(payload, streamDoneSentinel) || strings.Contains(payload, streamEOSSentinel) {
			return nil
		}

		if err := emit(Event{Kind: EventText, Text: DecodeTokenPayload(payload)}); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}

// ============================================================================
// PAYLOAD DECODING
// ============================================================================

const (
	streamDoneSentinel = "[DONE]"
	streamEOSSentinel  = "</s>"
)

// DecodeTokenPayload turns the raw data payload of one SSE event into
// answer text. The backend serializes fragments with one layer of quoting
// (double or single, detected from the first rune) and escapes newlines
// and tabs literally; anything beyond that single layer is passed through
// untouched.
func DecodeTokenPayload(payload string) string {
	text := stripQuoteLayer(payload)
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.ReplaceAll(text, `\t`, "\t")
	return text
}

// stripQuoteLayer removes one layer of surrounding quotes. Unpaired quotes
// are left alone so a fragment like `it's` survives.
func stripQuoteLayer(s string) string {
	if len(s) < 2 {
		return s
	}
	first := s[0]
	if (first == '"' || first == '\'') && s[len(s)-1] == first {
		return s[1 : len(s)-1]
	}
	return s
}

// decodeSourcesPayload parses the reranked-docs batch the backend pushes
// mid-stream. Fragments are delivered raw; consolidation happens when the
// batch lands on a turn.
func decodeSourcesPayload(payload string) ([]Source, error) {
	var batch struct {
		RerankedDocs []Source `json:"reranked_docs"`
	}
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		return nil, fmt.Errorf("parsing reranked_docs payload: %w", err)
	}
	return batch.RerankedDocs, nil
}

// ============================================================================
// COMPILE-TIME INTERFACE CHECKS
// ============================================================================

var _ StreamDecoder = (*sseDecoder)(nil)
