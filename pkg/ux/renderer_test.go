// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
)

func TestTurnRendererStreamsDeltas(t *testing.T) {
	var buf bytes.Buffer
	r := NewTurnRendererWithWriter(&buf, PersonalityMachine)

	turn := qna.NewChatTurn("t1", "hello")
	r.Begin(turn.Question)
	for _, ev := range []qna.Event{
		{Kind: qna.EventText, Text: "Hi"},
		{Kind: qna.EventText, Text: " there"},
		{Kind: qna.EventDone},
	} {
		qna.ApplyEvent(turn, ev)
		if err := r.Observe(ev); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	r.End(turn)

	out := buf.String()
	if !strings.Contains(out, "Hi there") {
		t.Errorf("expected streamed answer in output, got %q", out)
	}
}

func TestTurnRendererMachineSources(t *testing.T) {
	var buf bytes.Buffer
	r := NewTurnRendererWithWriter(&buf, PersonalityMachine)

	turn := qna.NewChatTurn("t1", "q")
	turn.SetSources([]qna.Source{
		{Type: qna.SourceTypeFile, CitationID: 1, ObjectName: "guide.pdf", Text: "frag"},
		{Type: qna.SourceTypeLink, CitationID: 2, URL: "https://example.com"},
	})
	turn.Resolve()
	r.End(turn)

	out := buf.String()
	if !strings.Contains(out, "SOURCE\t1\tguide.pdf") {
		t.Errorf("expected file source line, got %q", out)
	}
	if !strings.Contains(out, "SOURCE\t2\thttps://example.com") {
		t.Errorf("expected link source line, got %q", out)
	}
}

func TestTurnRendererGuardrailError(t *testing.T) {
	var buf bytes.Buffer
	r := NewTurnRendererWithWriter(&buf, PersonalityMachine)

	turn := qna.NewChatTurn("t1", "q")
	turn.Fail(&qna.Error{Kind: qna.KindGuardrailBlocked, Message: "blocked: profanity"})
	r.End(turn)

	out := buf.String()
	if !strings.Contains(out, "blocked: profanity") {
		t.Errorf("expected guardrail detail, got %q", out)
	}
	if !strings.Contains(out, string(qna.KindGuardrailBlocked)) {
		t.Errorf("expected error kind, got %q", out)
	}
}

func TestTurnRendererCancelledTurnShowsNoError(t *testing.T) {
	var buf bytes.Buffer
	r := NewTurnRendererWithWriter(&buf, PersonalityMachine)

	turn := qna.NewChatTurn("t1", "q")
	qna.ApplyEvent(turn, qna.Event{Kind: qna.EventText, Text: "partial"})
	_ = r.Observe(qna.Event{Kind: qna.EventText, Text: "partial"})
	turn.CancelPending()
	r.End(turn)

	out := buf.String()
	if strings.Contains(out, "ERROR") {
		t.Errorf("cancelled turn should not render an error, got %q", out)
	}
	if !strings.Contains(out, "partial") {
		t.Errorf("partial answer should remain visible, got %q", out)
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		src  qna.Source
		want string
	}{
		{qna.Source{Type: qna.SourceTypeLink, URL: "https://x"}, "https://x"},
		{qna.Source{Type: qna.SourceTypeFile, BucketName: "docs", ObjectName: "a.pdf"}, "docs/a.pdf"},
		{qna.Source{Type: qna.SourceTypeFile, ObjectName: "a.pdf"}, "a.pdf"},
		{qna.Source{}, "unknown source"},
	}
	for _, tt := range tests {
		if got := sourceName(tt.src); got != tt.want {
			t.Errorf("sourceName(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
