// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package qna implements the prompt/response protocol between the CLI and
// the ChatQnA backend: prompt submission, dual-mode response handling
// (buffered JSON and SSE streaming), error classification, and source
// document consolidation.
package qna

// SourceType discriminates the retrieval source union.
type SourceType string

const (
	SourceTypeFile SourceType = "file"
	SourceTypeLink SourceType = "link"
)

// Source is a single retrieved document fragment returned by the reranker.
// File sources carry bucket/object coordinates, link sources carry a URL.
// After consolidation, Citations holds the text of every fragment that
// shares this source's CitationID, in arrival order.
type Source struct {
	Type           SourceType `json:"type"`
	CitationID     int        `json:"citation_id"`
	VectorDistance float64    `json:"vector_distance,omitempty"`
	RerankerScore  float64    `json:"reranker_score,omitempty"`
	Text           string     `json:"text,omitempty"`
	Citations      []string   `json:"citations,omitempty"`
	BucketName     string     `json:"bucket_name,omitempty"`
	ObjectName     string     `json:"object_name,omitempty"`
	URL            string     `json:"url,omitempty"`
}

// ChatTurn is one question/answer exchange. The answer is append-only while
// the turn is pending; once the turn reaches a terminal state (resolved,
// failed, or cancelled) further mutation is ignored.
type ChatTurn struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	IsPending bool     `json:"is_pending"`
	Err       *Error   `json:"error,omitempty"`
}

// NewChatTurn returns a pending turn for the given question.
func NewChatTurn(id, question string) *ChatTurn {
	return &ChatTurn{
		ID:        id,
		Question:  question,
		Sources:   []Source{},
		IsPending: true,
	}
}

// AppendAnswer appends a delta to the answer. Deltas arriving after the
// turn left the pending state are dropped.
func (t *ChatTurn) AppendAnswer(delta string) {
	if !t.IsPending {
		return
	}
	t.Answer += delta
}

// SetSources replaces the turn's source list with the consolidated form of
// raw. Later calls on a non-pending turn are ignored.
func (t *ChatTurn) SetSources(raw []Source) {
	if !t.IsPending {
		return
	}
	t.Sources = ConsolidateSources(raw)
}

// Resolve marks the turn complete. The accumulated answer and sources are
// retained as-is.
func (t *ChatTurn) Resolve() {
	t.IsPending = false
}

// Fail marks the turn failed with a classified error. A nil err resolves
// the turn instead.
func (t *ChatTurn) Fail(err *Error) {
	if !t.IsPending {
		return
	}
	t.IsPending = false
	t.Err = err
}

// CancelPending ends the turn after a user cancellation: any partial answer
// stays, and no error is recorded.
func (t *ChatTurn) CancelPending() {
	if !t.IsPending {
		return
	}
	t.IsPending = false
	t.Err = nil
}
