// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

// fakeResponse builds an *http.Response for dispatcher tests.
func fakeResponse(status int, contentType, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp
}

func dispatchCollect(t *testing.T, d ResponseDispatcher, resp *http.Response) ([]Event, *Error) {
	t.Helper()

	var events []Event
	err := d.Dispatch(context.Background(), resp, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestDispatchBufferedJSON(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	resp := fakeResponse(200, "application/json", `{"text": "hi there", "sources": []}`)

	events, err := dispatchCollect(t, d, resp)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if joinText(events) != "hi there" {
		t.Errorf("expected buffered answer, got %q", joinText(events))
	}

	var sawSources bool
	for _, ev := range events {
		if ev.Kind == EventSources {
			sawSources = true
			if len(ev.Sources) != 0 {
				t.Errorf("expected empty sources, got %v", ev.Sources)
			}
		}
	}
	if !sawSources {
		t.Error("buffered dispatch should emit a sources event")
	}
}

func TestDispatchBufferedMetadataFallback(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	body := `{"text": "answer", "metadata": {"reranked_docs": [{"citation_id": 4, "text": "frag"}]}}`
	resp := fakeResponse(200, "application/json", body)

	events, err := dispatchCollect(t, d, resp)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range events {
		if ev.Kind == EventSources {
			if len(ev.Sources) != 1 || ev.Sources[0].CitationID != 4 {
				t.Errorf("expected reranked_docs fallback, got %v", ev.Sources)
			}
			return
		}
	}
	t.Error("no sources event emitted")
}

func TestDispatchBufferedMalformedJSON(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	resp := fakeResponse(200, "application/json", `{broken`)

	_, err := dispatchCollect(t, d, resp)

	if err == nil || err.Kind != KindParseError {
		t.Errorf("expected parse_error, got %v", err)
	}
}

func TestDispatchEventStream(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	body := "data: 'Hi'\n\ndata: ' there'\n\ndata: [DONE]\n\n"
	resp := fakeResponse(200, "text/event-stream; charset=utf-8", body)

	events, err := dispatchCollect(t, d, resp)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if joinText(events) != "Hi there" {
		t.Errorf("expected streamed answer, got %q", joinText(events))
	}
}

func TestDispatchGuardrailDefaultStatus(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	body := `{"error": "{\"detail\": \"blocked: profanity\"}"}`
	resp := fakeResponse(466, "application/json", body)

	events, err := dispatchCollect(t, d, resp)

	if err == nil || err.Kind != KindGuardrailBlocked {
		t.Fatalf("expected guardrail error, got %v", err)
	}
	if err.Message != "blocked: profanity" {
		t.Errorf("expected detail, got %q", err.Message)
	}
	if len(events) != 0 {
		t.Errorf("guardrail rejection should not emit events, got %v", events)
	}
}

func TestDispatchGuardrailConfiguredStatus(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{GuardrailStatus: 451})
	body := `Guard: {"error": "{\"detail\": \"blocked: profanity\"}"}`
	resp := fakeResponse(451, "text/plain", body)

	_, err := dispatchCollect(t, d, resp)

	if err == nil || err.Kind != KindGuardrailBlocked {
		t.Fatalf("expected guardrail error on configured status, got %v", err)
	}
	if err.Message != "blocked: profanity" {
		t.Errorf("expected detail, got %q", err.Message)
	}
	if err.HTTPStatus != 451 {
		t.Errorf("expected status 451, got %d", err.HTTPStatus)
	}
}

func TestDispatchUpstreamStatuses(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})

	for _, status := range []int{408, 413, 429, 500, 503} {
		resp := fakeResponse(status, "application/json", `{}`)
		_, err := dispatchCollect(t, d, resp)
		if err == nil || err.Kind != KindUpstreamHTTPError {
			t.Errorf("status %d: expected upstream error, got %v", status, err)
		}
		if err != nil && err.HTTPStatus != status {
			t.Errorf("status %d not recorded, got %d", status, err.HTTPStatus)
		}
	}
}

func TestDispatchContentTypeMismatch(t *testing.T) {
	d := NewResponseDispatcher(DispatcherConfig{})
	resp := fakeResponse(200, "text/html", "<html></html>")

	_, err := dispatchCollect(t, d, resp)

	if err == nil || err.Kind != KindContentTypeMismatch {
		t.Errorf("expected content_type_mismatch, got %v", err)
	}
}

func TestDispatchClosesBody(t *testing.T) {
	closed := false
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body: &closeTracker{
			Reader: strings.NewReader(`{"text": "x", "sources": []}`),
			onClose: func() {
				closed = true
			},
		},
	}

	d := NewResponseDispatcher(DispatcherConfig{})
	if _, err := dispatchCollect(t, d, resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Error("dispatch must close the response body")
	}
}

type closeTracker struct {
	io.Reader
	onClose func()
}

func (c *closeTracker) Close() error {
	c.onClose()
	return nil
}
