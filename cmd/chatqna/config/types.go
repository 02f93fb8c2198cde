// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and watches the chatqna CLI configuration from
// ~/.chatqna/chatqna.yaml.
package config

// ChatQnAConfig is the root of the YAML configuration.
type ChatQnAConfig struct {
	Backend BackendConfig `yaml:"backend" validate:"required"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
	UX      UXConfig      `yaml:"ux"`
}

// BackendConfig describes the ChatQnA gateway.
type BackendConfig struct {
	// URL is the backend root, e.g. https://chatqna.example.com.
	URL string `yaml:"url" validate:"required,url"`

	// PromptPath is appended to URL for prompt submissions.
	PromptPath string `yaml:"prompt_path"`

	// GuardrailStatus is the HTTP status the gateway uses for guardrail
	// rejections. Deployments differ; 466 is the reference gateway.
	GuardrailStatus int `yaml:"guardrail_status" validate:"omitempty,min=400,max=599"`

	// TimeoutSeconds bounds one whole turn. Zero uses the built-in
	// default.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=0,max=3600"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`
}

// HistoryConfig controls conversation persistence.
type HistoryConfig struct {
	// Enabled turns on saving finished conversations to the backend.
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig mirrors pkg/logging.Config in YAML form.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// UXConfig holds presentation defaults.
type UXConfig struct {
	Personality string `yaml:"personality" validate:"omitempty,oneof=full standard minimal machine"`
	ShowSources *bool  `yaml:"show_sources"`
}

// DefaultConfig returns the config written on first run.
func DefaultConfig() ChatQnAConfig {
	showSources := true
	return ChatQnAConfig{
		Backend: BackendConfig{
			URL:             "http://localhost:8080",
			PromptPath:      "/api/v1/chatqna",
			GuardrailStatus: 466,
			TimeoutSeconds:  300,
			TokenEnv:        "CHATQNA_API_TOKEN",
		},
		History: HistoryConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info", Dir: "~/.chatqna/logs"},
		UX:      UXConfig{Personality: "", ShowSources: &showSources},
	}
}

// PromptEndpoint returns the full prompt submission URL.
func (c *ChatQnAConfig) PromptEndpoint() string {
	path := c.Backend.PromptPath
	if path == "" {
		path = "/api/v1/chatqna"
	}
	return c.Backend.URL + path
}
