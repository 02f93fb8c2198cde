// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main contains the QnAChatRunner implementation.
//
// This file implements the ChatRunner interface for interactive chat against
// the ChatQnA backend. It coordinates between the prompt submitter (pkg/qna),
// the turn renderer (pkg/ux), the history store (pkg/history), and user
// input.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enterprise-rag/chatqna-cli/pkg/history"
	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
	"github.com/enterprise-rag/chatqna-cli/pkg/ux"
)

// =============================================================================
// QnAChatRunner Implementation
// =============================================================================

// QnAChatRunner implements ChatRunner for streaming chat turns.
//
// # Description
//
// QnAChatRunner manages the interactive chat loop. It follows a
// single-responsibility pattern:
//   - Input reading is delegated to InputReader
//   - Protocol handling is delegated to qna.PromptSubmitter
//   - Display formatting is delegated to ux.TurnRenderer
//   - History persistence is delegated to history.Store
//   - The runner only handles coordination and control flow
//
// # Thread Safety
//
// The runner is not designed for concurrent Run() calls. Close() is
// thread-safe and can be called from any goroutine.
//
// # Limitations
//
//   - Single use: cannot restart after Run() completes
//   - Stdin reads cannot be interrupted mid-line (OS limitation)
type QnAChatRunner struct {
	submitter qna.PromptSubmitter
	store     history.Store // nil disables persistence
	renderer  *ux.TurnRenderer
	input     InputReader
	logger    *slog.Logger

	historyID   string // backend chat id; empty until first save
	historyName string
	turns       []qna.ChatTurn
	startTime   time.Time

	closed bool
	mu     sync.Mutex
}

// QnAChatRunnerConfig holds the runner's dependencies.
//
// Submitter and Renderer are required. Store is optional; when nil
// conversations are not persisted. Input defaults to an interactive
// reader; Logger defaults to slog.Default().
type QnAChatRunnerConfig struct {
	Submitter qna.PromptSubmitter
	Store     history.Store
	Renderer  *ux.TurnRenderer
	Input     InputReader
	Logger    *slog.Logger

	// HistoryID resumes an existing stored chat. The prior turns are
	// fetched before the loop starts and new turns append to them.
	HistoryID string
}

// NewQnAChatRunner creates a chat runner from cfg.
//
// # Outputs
//
//   - *QnAChatRunner: Ready to run a chat session
//   - error: Non-nil if a required dependency is missing
func NewQnAChatRunner(cfg QnAChatRunnerConfig) (*QnAChatRunner, error) {
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("chat runner: submitter is required")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = ux.NewTurnRenderer()
	}
	if cfg.Input == nil {
		cfg.Input = NewInteractiveInputReader(50) // Keep last 50 prompts in history
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &QnAChatRunner{
		submitter: cfg.Submitter,
		store:     cfg.Store,
		renderer:  cfg.Renderer,
		input:     cfg.Input,
		logger:    cfg.Logger,
		historyID: cfg.HistoryID,
	}, nil
}

// Run executes the interactive chat loop.
//
// # Description
//
// The loop:
//  1. Resumes prior turns when a history id was configured
//  2. Prompts for user input
//  3. Checks for exit commands ("exit", "quit")
//  4. Runs the turn through the prompt submitter, rendering events live
//  5. Saves the conversation after each settled turn (best effort)
//  6. Repeats until exit, EOF, or context cancellation
//
// Graceful shutdown: on context cancellation the conversation is saved
// with a short timeout and context.Canceled is returned. A failed turn
// is displayed and the loop continues; only input errors are fatal.
func (r *QnAChatRunner) Run(ctx context.Context) error {
	r.startTime = time.Now()

	if r.historyID != "" {
		if err := r.resume(ctx); err != nil {
			return WrapCommandError(err, "chat", "could not resume chat "+r.historyID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return r.handleShutdown(ctx)
		default:
		}

		// Interactive readers render their own prompt; print it
		// manually otherwise.
		if p, ok := r.input.(PromptingInputReader); ok {
			p.SetPrompt("> ")
		} else {
			fmt.Print("> ")
		}
		input, err := r.input.ReadLine()
		if err != nil {
			if err == io.EOF {
				r.finishSession()
				return nil
			}
			r.logger.Error("failed to read input", "error", err)
			return fmt.Errorf("read input: %w", err)
		}

		if input == "" {
			continue
		}

		if isExitCommand(input) {
			r.finishSession()
			return nil
		}

		turn := r.runTurn(ctx, input)

		// A cancelled turn keeps its partial answer; record it before
		// the shutdown path so the save includes it.
		r.turns = append(r.turns, *turn)
		if ctx.Err() != nil {
			return r.handleShutdown(ctx)
		}
		r.persist(ctx)
	}
}

// runTurn submits one prompt and renders its events as they arrive.
// The returned turn is settled: resolved, failed, or cancelled.
func (r *QnAChatRunner) runTurn(ctx context.Context, prompt string) *qna.ChatTurn {
	turn := qna.NewChatTurn(uuid.New().String(), prompt)

	r.renderer.Begin(prompt)
	r.submitter.Run(ctx, turn, r.renderer.Observe)
	r.renderer.End(turn)

	if turn.Err != nil {
		r.logger.Warn("turn failed",
			"turn_id", turn.ID,
			"kind", turn.Err.Kind,
		)
	}
	return turn
}

// resume loads a stored chat's turns so new turns append to it.
func (r *QnAChatRunner) resume(ctx context.Context) error {
	detail, err := r.store.Get(ctx, r.historyID)
	if err != nil {
		return err
	}
	r.turns = detail.Turns
	r.historyName = detail.Name

	name := detail.Name
	if name == "" {
		name = detail.ID
	}
	fmt.Println(ux.Styles.Muted.Render(fmt.Sprintf("  resumed %q (%d turns)", name, len(detail.Turns))))
	return nil
}

// persist saves the conversation after a settled turn. Failures are
// logged, not fatal: the chat continues and the next save retries.
func (r *QnAChatRunner) persist(ctx context.Context) {
	if r.store == nil || len(r.turns) == 0 {
		return
	}

	saved, err := r.store.Save(ctx, r.historyID, r.turns)
	if err != nil {
		r.logger.Warn("failed to save chat history", "error", err)
		return
	}
	r.historyID = saved.ID
	r.historyName = saved.Name
}

// finishSession prints the session summary on normal exit.
func (r *QnAChatRunner) finishSession() {
	duration := time.Since(r.startTime).Round(time.Second)
	summary := fmt.Sprintf("session ended: %d turns in %s", len(r.turns), duration)
	if r.historyID != "" {
		summary += fmt.Sprintf(" (saved as %s)", r.historyID)
	}
	fmt.Println()
	ux.Muted(summary)
}

// handleShutdown performs graceful shutdown after context cancellation.
// The conversation gets a short save window before the loop exits.
func (r *QnAChatRunner) handleShutdown(ctx context.Context) error {
	r.logger.Info("graceful shutdown initiated", "history_id", r.historyID)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.persist(shutdownCtx)

	fmt.Println() // New line after interrupted input
	r.finishSession()

	return ctx.Err()
}

// Close releases resources held by the runner. Safe to call multiple
// times.
func (r *QnAChatRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return nil
}

// =============================================================================
// Compile-Time Interface Checks
// =============================================================================

var _ ChatRunner = (*QnAChatRunner)(nil)
