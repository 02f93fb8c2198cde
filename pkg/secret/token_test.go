// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package secret

import "testing"

func TestEnclaveTokenRoundTrip(t *testing.T) {
	tok := NewEnclaveToken("my-api-token")

	got, err := tok.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "my-api-token" {
		t.Errorf("expected token back, got %q", got)
	}

	// The enclave survives repeated opens.
	again, err := tok.Token()
	if err != nil {
		t.Fatalf("unexpected error on second open: %v", err)
	}
	if again != "my-api-token" {
		t.Errorf("expected token on second open, got %q", again)
	}
}

func TestEnclaveTokenEmpty(t *testing.T) {
	for _, tok := range []*EnclaveToken{nil, {}, NewEnclaveToken("")} {
		got, err := tok.Token()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("expected empty token, got %q", got)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CHATQNA_TEST_TOKEN", "env-token")

	got, err := FromEnv("CHATQNA_TEST_TOKEN").Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-token" {
		t.Errorf("expected env token, got %q", got)
	}

	missing, err := FromEnv("CHATQNA_TEST_TOKEN_MISSING").Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != "" {
		t.Errorf("expected empty token for missing variable, got %q", missing)
	}
}
