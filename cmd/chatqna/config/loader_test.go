// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir string, cfg ChatQnAConfig) string {
	t.Helper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, "chatqna.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.URL = "https://rag.example.com"
	cfg.Backend.GuardrailStatus = 451
	path := writeConfig(t, t.TempDir(), cfg)

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Backend.URL != "https://rag.example.com" {
		t.Errorf("unexpected URL %s", got.Backend.URL)
	}
	if got.Backend.GuardrailStatus != 451 {
		t.Errorf("unexpected guardrail status %d", got.Backend.GuardrailStatus)
	}
	if got.PromptEndpoint() != "https://rag.example.com/api/v1/chatqna" {
		t.Errorf("unexpected prompt endpoint %s", got.PromptEndpoint())
	}
}

func TestLoadFromRejectsInvalidURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.URL = "not a url"
	path := writeConfig(t, t.TempDir(), cfg)

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected validation error for bad URL")
	}
}

func TestLoadFromRejectsBadGuardrailStatus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.GuardrailStatus = 200
	path := writeConfig(t, t.TempDir(), cfg)

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected validation error for out-of-range guardrail status")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), DefaultConfig())
	if _, err := LoadFrom(path); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestWatchPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan ChatQnAConfig, 1)
	go func() {
		_ = Watch(ctx, path, slog.Default(), func(cfg ChatQnAConfig) {
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to install before editing.
	time.Sleep(200 * time.Millisecond)

	edited := DefaultConfig()
	edited.Backend.URL = "https://other.example.com"
	writeConfig(t, dir, edited)

	select {
	case cfg := <-changed:
		if cfg.Backend.URL != "https://other.example.com" {
			t.Errorf("unexpected reloaded URL %s", cfg.Backend.URL)
		}
	case <-ctx.Done():
		t.Fatal("watcher did not report the edit in time")
	}
}
