// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGuardrailErrorExtractsDetail(t *testing.T) {
	body := []byte(`{"error": "{\"detail\": \"blocked: profanity\"}"}`)

	got := GuardrailError(body, 466)

	if got.Kind != KindGuardrailBlocked {
		t.Errorf("expected guardrail kind, got %s", got.Kind)
	}
	if got.Message != "blocked: profanity" {
		t.Errorf("expected detail extracted, got %q", got.Message)
	}
	if got.HTTPStatus != 466 {
		t.Errorf("expected status 466, got %d", got.HTTPStatus)
	}
}

func TestGuardrailErrorStripsGuardPrefix(t *testing.T) {
	body := []byte(`Guard: {"error": "{\"detail\": \"blocked: profanity\"}"}`)

	got := GuardrailError(body, 451)

	if got.Message != "blocked: profanity" {
		t.Errorf("expected detail extracted from prefixed body, got %q", got.Message)
	}
}

func TestGuardrailErrorFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", msgGuardInvalidFormat},
		{"not json", "plain text", msgGuardParsingFailed},
		{"missing error field", `{"status": "blocked"}`, msgGuardMissingError},
		{"null error field", `{"error": null}`, msgGuardMissingError},
		{"non-string error field", `{"error": {"detail": "x"}}`, msgGuardInvalidError},
		{"inner not json", `{"error": "not json"}`, msgGuardParsingFailed},
		{"inner missing detail", `{"error": "{\"other\": 1}"}`, msgGuardUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GuardrailError([]byte(tt.body), 466)
			if got.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Message)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	original := &Error{Kind: KindParseError, Message: "bad json"}

	got := Classify(fmt.Errorf("dispatching: %w", original))

	if got != original {
		t.Errorf("expected wrapped *Error passthrough, got %v", got)
	}
}

func TestClassifyCancellation(t *testing.T) {
	got := Classify(context.Canceled)

	if got.Kind != KindCancelled {
		t.Errorf("expected cancelled, got %s", got.Kind)
	}
}

func TestClassifyDeadlineAsTimeout(t *testing.T) {
	got := Classify(context.DeadlineExceeded)

	if got.Kind != KindUpstreamHTTPError {
		t.Errorf("expected upstream kind, got %s", got.Kind)
	}
	if got.HTTPStatus != http.StatusRequestTimeout {
		t.Errorf("expected 408, got %d", got.HTTPStatus)
	}
	if got.Message != msgRequestTimeout {
		t.Errorf("expected timeout guidance, got %q", got.Message)
	}
}

func TestClassifyLegacyGuardPrefix(t *testing.T) {
	err := errors.New(`Guard: {"error": "{\"detail\": \"blocked: pii\"}"}`)

	got := Classify(err)

	if got.Kind != KindGuardrailBlocked {
		t.Errorf("expected guardrail kind, got %s", got.Kind)
	}
	if got.Message != "blocked: pii" {
		t.Errorf("expected detail, got %q", got.Message)
	}
}

func TestClassifyUnknownError(t *testing.T) {
	got := Classify(errors.New("connection refused"))

	if got.Kind != KindUpstreamHTTPError {
		t.Errorf("expected upstream kind, got %s", got.Kind)
	}
	if got.Message != msgDefault {
		t.Errorf("expected default guidance, got %q", got.Message)
	}
}

func TestStatusErrorMessages(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusRequestTimeout, msgRequestTimeout},
		{http.StatusRequestEntityTooLarge, msgPayloadTooLarge},
		{http.StatusTooManyRequests, msgTooManyRequests},
		{http.StatusInternalServerError, msgDefault},
	}

	for _, tt := range tests {
		got := StatusError(tt.status)
		if got.Message != tt.want {
			t.Errorf("status %d: expected %q, got %q", tt.status, tt.want, got.Message)
		}
		if got.HTTPStatus != tt.status {
			t.Errorf("status %d not recorded, got %d", tt.status, got.HTTPStatus)
		}
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(context.Canceled) {
		t.Error("context.Canceled should classify as cancelled")
	}
	if IsCancelled(errors.New("boom")) {
		t.Error("generic error should not classify as cancelled")
	}
	if IsCancelled(nil) {
		t.Error("nil should not classify as cancelled")
	}
}

func TestErrorString(t *testing.T) {
	withStatus := &Error{Kind: KindUpstreamHTTPError, Message: "boom", HTTPStatus: 502}
	if withStatus.Error() != "upstream_http_error (HTTP 502): boom" {
		t.Errorf("unexpected rendering: %s", withStatus.Error())
	}

	withoutStatus := &Error{Kind: KindParseError, Message: "bad json"}
	if withoutStatus.Error() != "parse_error: bad json" {
		t.Errorf("unexpected rendering: %s", withoutStatus.Error())
	}
}
