// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"
)

// CommandError wraps a subcommand failure with backend response context.
//
// # Description
//
// Provides rich error context for command failures, including the
// subcommand that failed and any detail returned by the backend.
// Implements the error interface and supports unwrapping.
//
// # Example
//
//	err := NewCommandError("history delete", "history not found", originalErr)
//	fmt.Println(err.Error()) // "history delete: history not found"
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Detail) // "history not found"
//	}
type CommandError struct {
	// Command is the subcommand that was executed.
	Command string

	// Detail is the backend or local detail message, if any.
	Detail string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *CommandError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Detail)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Command, e.Wrapped)
	}
	return e.Command
}

// Unwrap returns the underlying error.
//
// # Description
//
// Enables errors.Is() and errors.As() to work through the error chain.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasDetail returns true if a detail message is available.
func (e *CommandError) HasDetail() bool {
	return e.Detail != ""
}

// NewCommandError creates a CommandError with full context.
//
// # Inputs
//
//   - cmd: The subcommand that failed (e.g., "history delete")
//   - detail: Backend or local detail message (will be trimmed)
//   - wrapped: Underlying error (may be nil)
func NewCommandError(cmd string, detail string, wrapped error) *CommandError {
	return &CommandError{
		Command: cmd,
		Detail:  strings.TrimSpace(detail),
		Wrapped: wrapped,
	}
}

// WrapCommandError wraps an existing error into a CommandError if it isn't already.
func WrapCommandError(err error, cmd string, detail string) *CommandError {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	if cmdErr, ok := err.(*CommandError); ok {
		return cmdErr
	}

	return NewCommandError(cmd, detail, err)
}

// ExtractDetail walks the error chain looking for a CommandError with a
// detail message. Returns the first detail found, or empty string if none.
func ExtractDetail(err error) string {
	for err != nil {
		if cmdErr, ok := err.(*CommandError); ok && cmdErr.HasDetail() {
			return cmdErr.Detail
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
