// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/enterprise-rag/chatqna-cli/cmd/chatqna/config"
	"github.com/enterprise-rag/chatqna-cli/pkg/history"
	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
	"github.com/enterprise-rag/chatqna-cli/pkg/secret"
	"github.com/enterprise-rag/chatqna-cli/pkg/ux"
)

// buildTokenSource resolves the bearer token from the configured
// environment variable, sealed in memory for the process lifetime.
func buildTokenSource() qna.TokenSource {
	env := config.Global.Backend.TokenEnv
	if env == "" {
		return nil
	}
	return secret.FromEnv(env)
}

// buildSubmitter creates a prompt submitter from the loaded config.
func buildSubmitter() (qna.PromptSubmitter, error) {
	return qna.NewSubmitter(qna.SubmitterConfig{
		Endpoint:        config.Global.PromptEndpoint(),
		Token:           buildTokenSource(),
		Timeout:         time.Duration(config.Global.Backend.TimeoutSeconds) * time.Second,
		GuardrailStatus: config.Global.Backend.GuardrailStatus,
		Logger:          appLogger.Slog(),
	})
}

// buildStore creates a history store, or nil when persistence is off.
func buildStore() (history.Store, error) {
	if !config.Global.History.Enabled || noHistory {
		return nil, nil
	}
	return history.NewClient(history.Config{
		BaseURL: config.Global.Backend.URL,
		Token:   buildTokenSource(),
		Logger:  appLogger.Slog(),
	})
}

func runChatCommand(cmd *cobra.Command, args []string) {
	submitter, err := buildSubmitter()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	store, err := buildStore()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	runner, err := NewQnAChatRunner(QnAChatRunnerConfig{
		Submitter: submitter,
		Store:     store,
		Logger:    appLogger.Slog(),
		HistoryID: resumeID,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer runner.Close()

	// Set up graceful shutdown with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go watchConfig(ctx)

	ux.Title("ChatQnA")
	ux.Muted(fmt.Sprintf("backend: %s  (type \"exit\" to quit)", config.Global.Backend.URL))
	fmt.Println()

	// Run the chat loop
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Chat error: %v", err)
	}
}

// watchConfig follows config file edits during a chat session.
// Presentation settings apply immediately; backend changes need a new
// session, which gets logged rather than hot-swapped mid-stream.
func watchConfig(ctx context.Context) {
	path, err := config.Path()
	if err != nil {
		return
	}

	logger := appLogger.Slog()
	lastBackend := config.Global.Backend
	err = config.Watch(ctx, path, logger, func(cfg config.ChatQnAConfig) {
		if cfg.UX.Personality != "" && personalityLevel == "" {
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(cfg.UX.Personality))
		}
		if cfg.UX.ShowSources != nil {
			p := ux.GetPersonality()
			p.ShowSources = *cfg.UX.ShowSources
			ux.SetPersonality(p)
		}
		if cfg.Backend != lastBackend {
			lastBackend = cfg.Backend
			logger.Info("backend config changed, restart the session to apply",
				"url", cfg.Backend.URL,
			)
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("config watch stopped", "error", err)
	}
}

// runAskCommand submits one question and exits. The streamed answer
// renders live, same as in chat mode.
func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	submitter, err := buildSubmitter()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	turn := qna.NewChatTurn(uuid.New().String(), question)
	renderer := ux.NewTurnRenderer()

	renderer.Begin(question)
	submitter.Run(ctx, turn, renderer.Observe)
	renderer.End(turn)

	if turn.Err != nil {
		os.Exit(1)
	}
}
