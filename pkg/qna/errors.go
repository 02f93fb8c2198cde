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
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// ERROR KINDS
// ============================================================================

// ErrorKind classifies a failed turn for presentation purposes.
type ErrorKind string

const (
	// KindGuardrailBlocked means a content guardrail rejected the prompt.
	KindGuardrailBlocked ErrorKind = "guardrail_blocked"
	// KindContentTypeMismatch means the backend answered with a content
	// type the protocol does not speak.
	KindContentTypeMismatch ErrorKind = "content_type_mismatch"
	// KindUpstreamHTTPError covers non-2xx statuses and transport faults.
	KindUpstreamHTTPError ErrorKind = "upstream_http_error"
	// KindCancelled means the user abandoned the turn. Cancellation is not
	// surfaced on the turn itself.
	KindCancelled ErrorKind = "cancelled"
	// KindParseError means a response body could not be decoded.
	KindParseError ErrorKind = "parse_error"
)

// Error is the classified form every turn failure is normalized into.
// HTTPStatus is zero when no HTTP exchange completed.
type Error struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ============================================================================
// USER-FACING MESSAGES
// ============================================================================

const (
	msgRequestTimeout = "Your request took too long to complete. " +
		"Please try again later or contact your administrator if the problem persists."
	msgPayloadTooLarge = "Your prompt seems to be too large to be processed. " +
		"Please shorten your prompt and send it again. " +
		"If the issue persists, please contact your administrator."
	msgTooManyRequests = "You've reached the limit of requests. " +
		"Please take a short break and try again soon."
	msgDefault = "An error occurred. " +
		"Please contact your administrator for further details."

	msgGuardInvalidFormat = "Guardrails error response has an invalid format."
	msgGuardMissingError  = "Guardrails error response is missing the error field."
	msgGuardInvalidError  = "Guardrails error field has an invalid format."
	msgGuardUnknown       = "Request was blocked by guardrails for an unknown reason."
	msgGuardParsingFailed = "Failed to parse the guardrails error response."

	msgContentTypeMismatch = "The server response has an unsupported content type."
)

// guardMessagePrefix marks guardrail details forwarded inside a generic
// error message by older gateways.
const guardMessagePrefix = "Guard: "

// ============================================================================
// CLASSIFICATION
// ============================================================================

// Classify normalizes any error into *Error. Context cancellation maps to
// KindCancelled, deadline expiry to a request-timeout upstream error, and
// anything unrecognized to a generic upstream error. A nil input returns
// nil; an already classified error passes through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCancelled, Message: "request cancelled by user"}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Kind:       KindUpstreamHTTPError,
			Message:    msgRequestTimeout,
			HTTPStatus: http.StatusRequestTimeout,
		}
	}

	if detail, ok := strings.CutPrefix(err.Error(), guardMessagePrefix); ok {
		return GuardrailError([]byte(detail), 0)
	}

	return &Error{Kind: KindUpstreamHTTPError, Message: msgDefault}
}

// IsCancelled reports whether err classifies as a user cancellation.
func IsCancelled(err error) bool {
	classified := Classify(err)
	return classified != nil && classified.Kind == KindCancelled
}

// StatusError builds the upstream error for a non-2xx status, using the
// specific operator guidance the product ships for timeouts, oversized
// prompts, and rate limiting.
func StatusError(status int) *Error {
	msg := msgDefault
	switch status {
	case http.StatusRequestTimeout:
		msg = msgRequestTimeout
	case http.StatusRequestEntityTooLarge:
		msg = msgPayloadTooLarge
	case http.StatusTooManyRequests:
		msg = msgTooManyRequests
	}
	return &Error{Kind: KindUpstreamHTTPError, Message: msg, HTTPStatus: status}
}

// ContentTypeError builds the error for an unsupported response content
// type.
func ContentTypeError(contentType string) *Error {
	msg := msgContentTypeMismatch
	if contentType != "" {
		msg = fmt.Sprintf("%s Received %q.", msgContentTypeMismatch, contentType)
	}
	return &Error{Kind: KindContentTypeMismatch, Message: msg}
}

// ParseError wraps a decode failure.
func ParseError(err error) *Error {
	return &Error{Kind: KindParseError, Message: fmt.Sprintf("failed to decode response: %v", err)}
}

// ============================================================================
// GUARDRAIL DETAIL EXTRACTION
// ============================================================================

// GuardrailError extracts the human detail out of a guardrail rejection
// body. The gateway double-encodes the detail: the body is a JSON object
// whose "error" field is itself a JSON document carrying "detail". Each
// step that fails yields a deterministic fallback message so the user
// always sees something actionable.
func GuardrailError(body []byte, status int) *Error {
	return &Error{
		Kind:       KindGuardrailBlocked,
		Message:    guardrailDetail(body),
		HTTPStatus: status,
	}
}

func guardrailDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	trimmed = strings.TrimPrefix(trimmed, guardMessagePrefix)
	body = []byte(trimmed)
	if len(body) == 0 {
		return msgGuardInvalidFormat
	}

	var outer struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return msgGuardParsingFailed
	}
	if len(outer.Error) == 0 || string(outer.Error) == "null" {
		return msgGuardMissingError
	}

	var inner string
	if err := json.Unmarshal(outer.Error, &inner); err != nil {
		return msgGuardInvalidError
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(inner), &detail); err != nil {
		return msgGuardParsingFailed
	}
	if detail.Detail == "" {
		return msgGuardUnknown
	}
	return detail.Detail
}
