// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ============================================================================
// INTERFACES
// ============================================================================

// TokenSource supplies the bearer token for backend requests.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource holding a fixed token. An empty token means
// unauthenticated requests.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// PromptSubmitter runs the full lifecycle of one prompt submission.
//
// # Description
//
// Submit posts the prompt, hands the response to the dispatcher, and
// delivers tagged events through the returned StreamSession. At most one
// session is in flight per turn ID: submitting again for the same turn
// cancels the previous session first.
//
// # Examples
//
//	session, err := submitter.Submit(ctx, "what is RAG?", turn.ID)
//	if err != nil {
//	    return err
//	}
//	for ev := range session.Events() {
//	    qna.ApplyEvent(turn, ev)
//	}
type PromptSubmitter interface {
	// Submit starts an asynchronous submission and returns its session.
	// It fails synchronously only on invalid input.
	Submit(ctx context.Context, prompt, turnID string) (*StreamSession, error)

	// Run submits turn.Question and applies every event to the turn until
	// it reaches a terminal state. observe, if non-nil, sees each event
	// after it is applied. The returned error is the turn's classified
	// failure; cancellation returns nil.
	Run(ctx context.Context, turn *ChatTurn, observe EventFunc) *Error
}

// ============================================================================
// CONFIGURATION STRUCTS
// ============================================================================

// SubmitterConfig holds submitter settings.
type SubmitterConfig struct {
	// Endpoint is the full prompt URL, e.g.
	// https://host/api/v1/chatqna.
	Endpoint string
	// Token supplies the bearer token. Nil means no Authorization header.
	Token TokenSource
	// Timeout bounds one whole turn. Zero applies DefaultTurnTimeout;
	// negative disables the deadline.
	Timeout time.Duration
	// GuardrailStatus overrides the guardrail HTTP status. Zero applies
	// DefaultGuardrailStatus.
	GuardrailStatus int
	// RequestsPerMinute caps the client-side submission rate. Zero applies
	// DefaultRequestsPerMinute.
	RequestsPerMinute int
	// Client overrides the HTTP transport, for tests.
	Client HTTPClient
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const (
	// DefaultTurnTimeout bounds a turn that the backend never finishes.
	DefaultTurnTimeout = 5 * time.Minute
	// DefaultRequestsPerMinute is the client-side submission rate cap.
	DefaultRequestsPerMinute = 60
)

// ============================================================================
// IMPLEMENTATION STRUCTS
// ============================================================================

type submitter struct {
	endpoint   string
	token      TokenSource
	timeout    time.Duration
	client     HTTPClient
	dispatcher ResponseDispatcher
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*StreamSession
}

// StreamSession is one in-flight submission, owned by the caller. Events
// arrive in order on Events(); the channel closes after a single terminal
// done or error event and must be drained until then, even after Cancel.
// Cancel is safe to call from any goroutine and any number of times.
type StreamSession struct {
	turnID    string
	requestID string
	events    chan Event
	cancel    context.CancelFunc
	done      chan struct{}
	finalErr  *Error
}

// ============================================================================
// CONSTRUCTOR FUNCTIONS
// ============================================================================

// NewSubmitter creates a PromptSubmitter from cfg.
func NewSubmitter(cfg SubmitterConfig) (PromptSubmitter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("submitter: endpoint is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTurnTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Client == nil {
		cfg.Client = NewHTTPClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &submitter{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		timeout:  cfg.Timeout,
		client:   cfg.Client,
		dispatcher: NewResponseDispatcher(DispatcherConfig{
			GuardrailStatus: cfg.GuardrailStatus,
			Logger:          cfg.Logger,
		}),
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		logger:   cfg.Logger,
		sessions: make(map[string]*StreamSession),
	}, nil
}

// ============================================================================
// SESSION METHODS
// ============================================================================

// Events returns the session's event channel. It closes after the terminal
// event.
func (s *StreamSession) Events() <-chan Event { return s.events }

// Cancel aborts the session. Any partial answer already delivered stands.
func (s *StreamSession) Cancel() { s.cancel() }

// Done closes once the session finished for any reason.
func (s *StreamSession) Done() <-chan struct{} { return s.done }

// Err returns the session's classified failure. Valid after Done closes;
// nil means normal completion or cancellation.
func (s *StreamSession) Err() *Error {
	<-s.done
	if s.finalErr != nil && s.finalErr.Kind == KindCancelled {
		return nil
	}
	return s.finalErr
}

// TurnID returns the turn this session serves.
func (s *StreamSession) TurnID() string { return s.turnID }

// ============================================================================
// SUBMITTER METHODS
// ============================================================================

// Submit implements PromptSubmitter.
func (s *submitter) Submit(ctx context.Context, prompt, turnID string) (*StreamSession, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("submit: empty prompt")
	}
	if turnID == "" {
		turnID = uuid.New().String()
	}

	var sctx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}

	session := &StreamSession{
		turnID:    turnID,
		requestID: uuid.New().String(),
		events:    make(chan Event, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.sessions[turnID]; ok {
		prev.Cancel()
	}
	s.sessions[turnID] = session
	s.mu.Unlock()

	go s.run(sctx, session, prompt)
	return session, nil
}

// Run implements PromptSubmitter.
func (s *submitter) Run(ctx context.Context, turn *ChatTurn, observe EventFunc) *Error {
	session, err := s.Submit(ctx, turn.Question, turn.ID)
	if err != nil {
		classified := Classify(err)
		turn.Fail(classified)
		return classified
	}

	for ev := range session.Events() {
		ApplyEvent(turn, ev)
		if observe != nil {
			if obsErr := observe(ev); obsErr != nil {
				session.Cancel()
			}
		}
	}
	return session.Err()
}

// run executes the submission on the session goroutine. It always closes
// the event channel after exactly one terminal event.
func (s *submitter) run(ctx context.Context, session *StreamSession, prompt string) {
	defer s.unregister(session)

	finalErr := s.execute(ctx, session, prompt)
	session.finalErr = finalErr

	terminal := Event{Kind: EventDone}
	if finalErr != nil {
		terminal = Event{Kind: EventError, Err: finalErr}
	}
	session.events <- terminal
	close(session.events)
	close(session.done)
	session.cancel()
}

func (s *submitter) execute(ctx context.Context, session *StreamSession, prompt string) *Error {
	logger := s.logger.With("request_id", session.requestID, "turn_id", session.turnID)

	if err := s.limiter.Wait(ctx); err != nil {
		return Classify(err)
	}

	req, err := s.buildRequest(ctx, session, prompt)
	if err != nil {
		return Classify(fmt.Errorf("building request: %w", err))
	}

	logger.Debug("submitting prompt", "endpoint", s.endpoint)
	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Classify(ctxErr)
		}
		logger.Error("prompt request failed", "error", err)
		return Classify(err)
	}

	emit := func(ev Event) error {
		select {
		case session.events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if dispatchErr := s.dispatcher.Dispatch(ctx, resp, emit); dispatchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Classify(ctxErr)
		}
		logger.Debug("turn failed", "kind", dispatchErr.Kind, "status", dispatchErr.HTTPStatus)
		return dispatchErr
	}

	logger.Debug("turn complete")
	return nil
}

// promptRequest is the wire shape of a prompt submission.
type promptRequest struct {
	Text      string `json:"text"`
	HistoryID string `json:"history_id,omitempty"`
}

func (s *submitter) buildRequest(ctx context.Context, session *StreamSession, prompt string) (*http.Request, error) {
	body, err := json.Marshal(promptRequest{Text: prompt, HistoryID: session.turnID})
	if err != nil {
		return nil, fmt.Errorf("encoding prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("X-Request-ID", session.requestID)

	if s.token != nil {
		token, err := s.token.Token()
		if err != nil {
			return nil, fmt.Errorf("resolving token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (s *submitter) unregister(session *StreamSession) {
	s.mu.Lock()
	if current, ok := s.sessions[session.turnID]; ok && current == session {
		delete(s.sessions, session.turnID)
	}
	s.mu.Unlock()
}

// ============================================================================
// EVENT APPLICATION
// ============================================================================

// ApplyEvent maps one session event onto a turn: text appends to the
// answer, sources consolidate onto the turn, done resolves it, and an
// error either fails it or, for a cancellation, ends it quietly with the
// partial answer kept.
func ApplyEvent(turn *ChatTurn, ev Event) {
	switch ev.Kind {
	case EventText:
		turn.AppendAnswer(ev.Text)
	case EventSources:
		turn.SetSources(ev.Sources)
	case EventDone:
		turn.Resolve()
	case EventError:
		if ev.Err != nil && ev.Err.Kind == KindCancelled {
			turn.CancelPending()
		} else {
			turn.Fail(ev.Err)
		}
	}
}

// ============================================================================
// COMPILE-TIME INTERFACE CHECKS
// ============================================================================

var _ PromptSubmitter = (*submitter)(nil)
var _ TokenSource = StaticToken("")
