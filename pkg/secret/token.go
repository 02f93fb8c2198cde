// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secret keeps the backend API token out of plain process memory.
// The token is sealed in a memguard enclave and only decrypted for the
// moment a request header is built.
package secret

import (
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memguard"
)

var initOnce sync.Once

// initMemguard installs the interrupt handler that wipes secure memory on
// SIGINT. One-time, process wide.
func initMemguard() {
	initOnce.Do(func() {
		memguard.CatchInterrupt()
	})
}

// EnclaveToken holds a bearer token sealed at rest. The zero value and a
// token built from an empty string both yield empty tokens, which callers
// treat as "no authentication".
type EnclaveToken struct {
	enclave *memguard.Enclave
}

// NewEnclaveToken seals token. The plaintext argument is the caller's to
// wipe; the enclave keeps its own encrypted copy.
func NewEnclaveToken(token string) *EnclaveToken {
	if token == "" {
		return &EnclaveToken{}
	}
	initMemguard()
	return &EnclaveToken{enclave: memguard.NewEnclave([]byte(token))}
}

// FromEnv seals the token found in the named environment variable. A
// missing or empty variable yields an empty token.
func FromEnv(name string) *EnclaveToken {
	return NewEnclaveToken(os.Getenv(name))
}

// Token implements qna.TokenSource. The decrypted buffer lives only for
// the duration of the call.
func (t *EnclaveToken) Token() (string, error) {
	if t == nil || t.enclave == nil {
		return "", nil
	}
	buf, err := t.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("opening token enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// Wipe destroys all secure memory. Call on process shutdown.
func Wipe() {
	memguard.Purge()
}
