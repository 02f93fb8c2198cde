// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main contains the ChatQnA CLI chat runner interfaces and
// implementations.
//
// This file defines the ChatRunner interface for abstracting the interactive
// chat loop, plus the InputReader family used to read user prompts.
//
// Architecture:
//
//	cmd_chat.go → ChatRunner Interface → QnAChatRunner
//	                                     ↓
//	                                     qna.PromptSubmitter (pkg/qna)
//	                                     history.Store (pkg/history)
//	                                     InputReader (stdin abstraction)
//	                                     ux.TurnRenderer (pkg/ux)
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// =============================================================================
// ChatRunner Interface
// =============================================================================

// ChatRunner defines the contract for running interactive chat sessions.
//
// # Description
//
// ChatRunner abstracts the chat loop execution. Implementations handle
// user input, backend communication, and output rendering.
//
// ChatRunner embeds resource cleanup in Close. Callers MUST call
// Close() when done, typically via defer.
//
// # Outputs
//
// Run returns an error if the chat session failed to start or
// encountered an unrecoverable error. Normal exit (user types "exit")
// returns nil. Context cancellation returns context.Canceled.
//
// # Examples
//
//	runner, err := NewQnAChatRunner(cfg)
//	if err != nil {
//	    return err
//	}
//	defer runner.Close()
//
//	if err := runner.Run(ctx); err != nil && err != context.Canceled {
//	    return err
//	}
type ChatRunner interface {
	// Run executes the interactive chat loop until exit, error, or
	// context cancellation.
	Run(ctx context.Context) error

	// Close releases all resources held by the runner. Safe to call
	// multiple times.
	Close() error
}

// =============================================================================
// InputReader Interface
// =============================================================================

// InputReader abstracts user input reading for testability.
//
// # Description
//
// InputReader enables mocking of stdin in unit tests. Production
// implementation wraps bufio.Reader; test implementation returns
// predetermined inputs.
//
// # Outputs
//
// ReadLine returns the line read (trimmed) and any error.
// Returns io.EOF when input is exhausted.
type InputReader interface {
	// ReadLine reads a single line of input, trimmed of surrounding
	// whitespace. Blocks until input is available; returns io.EOF when
	// input is exhausted.
	ReadLine() (string, error)
}

// PromptingInputReader extends InputReader with prompt display capability.
//
// # Description
//
// PromptingInputReader is implemented by input readers that handle their own
// prompt display (like interactive readers with bubbletea). The chat runner
// checks for this interface to avoid double-prompting.
//
// # Usage
//
//	if p, ok := reader.(PromptingInputReader); ok {
//	    p.SetPrompt(promptString)
//	} else {
//	    fmt.Print(promptString)
//	}
//	line, err := reader.ReadLine()
type PromptingInputReader interface {
	InputReader
	// SetPrompt sets the prompt string to display before input.
	SetPrompt(prompt string)
}

// =============================================================================
// StdinReader Implementation
// =============================================================================

// StdinReader implements InputReader for production stdin reading.
//
// # Description
//
// StdinReader wraps bufio.Reader to read lines from os.Stdin.
// This is the production implementation; tests use MockInputReader.
//
// # Thread Safety
//
// Not thread-safe. Single reader per stdin. Do not share across goroutines.
//
// # Limitations
//
//   - Blocks until input available
//   - No line editing support (no up-arrow history, no tab completion)
//   - Cannot be cancelled mid-read (stdin blocking is OS-level)
type StdinReader struct {
	reader *bufio.Reader
}

// NewStdinReader creates a new StdinReader wrapping os.Stdin.
func NewStdinReader() *StdinReader {
	return &StdinReader{
		reader: bufio.NewReader(os.Stdin),
	}
}

// ReadLine reads a single line from stdin, trimmed of surrounding
// whitespace. Returns io.EOF when stdin is closed.
func (r *StdinReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// =============================================================================
// InteractiveInputReader Implementation (with history)
// =============================================================================

// InteractiveInputReader implements InputReader with history navigation.
//
// # Description
//
// InteractiveInputReader uses charmbracelet/bubbletea to provide an
// interactive input experience with:
//   - Up/down arrow history navigation
//   - Line editing (Ctrl+A, Ctrl+E, etc.)
//   - Proper terminal handling
//
// Falls back to StdinReader for non-TTY environments (piped input, CI/CD).
//
// # Thread Safety
//
// Not thread-safe. Single reader per stdin. Do not share across goroutines.
//
// # Limitations
//
//   - History is in-memory only (not persisted across sessions)
type InteractiveInputReader struct {
	history      []string
	historyIndex int
	maxHistory   int
	prompt       string
}

// inputModel is the bubbletea model for interactive input.
type inputModel struct {
	textInput    textinput.Model
	history      []string
	historyIndex int
	currentInput string // Stores current input when navigating history
	done         bool
	cancelled    bool
}

// NewInteractiveInputReader creates an interactive input reader with history.
//
// # Description
//
// Creates an InteractiveInputReader that provides up-arrow history navigation
// and line editing. If stdin is not a TTY, returns a StdinReader instead.
//
// # Inputs
//
//   - maxHistory: Maximum number of history entries to keep
//
// # Outputs
//
//   - InputReader: Interactive reader if TTY, StdinReader otherwise
func NewInteractiveInputReader(maxHistory int) InputReader {
	// Fall back to basic stdin reader for non-TTY (piped input, CI/CD)
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewStdinReader()
	}

	return &InteractiveInputReader{
		history:      make([]string, 0, maxHistory),
		historyIndex: -1,
		maxHistory:   maxHistory,
		prompt:       "> ",
	}
}

// SetPrompt sets the prompt string to display before input.
//
// Implements PromptingInputReader. The prompt is rendered by the
// bubbletea textinput component.
func (r *InteractiveInputReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

// ReadLine reads a single line with interactive history support.
//
// # Description
//
// Displays the prompt and reads user input with support for:
//   - Up arrow: Previous history entry
//   - Down arrow: Next history entry
//   - Enter: Submit input
//   - Ctrl+C: Cancel current input (returns empty string)
//   - Ctrl+D: EOF (returns io.EOF)
//
// Successfully submitted non-empty inputs are added to history.
func (r *InteractiveInputReader) ReadLine() (string, error) {
	ti := textinput.New()
	ti.Prompt = r.prompt
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80

	m := inputModel{
		textInput:    ti,
		history:      r.history,
		historyIndex: -1,
		currentInput: "",
		done:         false,
		cancelled:    false,
	}

	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	result, ok := finalModel.(inputModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type from bubbletea: %T", finalModel)
	}

	// Handle Ctrl+D (EOF)
	if result.cancelled && result.textInput.Value() == "" {
		return "", io.EOF
	}

	input := strings.TrimSpace(result.textInput.Value())

	if input != "" {
		r.addToHistory(input)
	}

	return input, nil
}

// addToHistory adds an input to the history buffer.
func (r *InteractiveInputReader) addToHistory(input string) {
	// Don't add duplicates of the most recent entry
	if len(r.history) > 0 && r.history[len(r.history)-1] == input {
		return
	}

	r.history = append(r.history, input)

	if len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

// Init initializes the bubbletea model.
func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input events for the bubbletea model.
func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlC:
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlD:
			m.cancelled = true
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyUp:
			if len(m.history) == 0 {
				return m, nil
			}

			// Save current input when first entering history
			if m.historyIndex == -1 {
				m.currentInput = m.textInput.Value()
				m.historyIndex = len(m.history) - 1
			} else if m.historyIndex > 0 {
				m.historyIndex--
			}

			m.textInput.SetValue(m.history[m.historyIndex])
			m.textInput.CursorEnd()
			return m, nil

		case tea.KeyDown:
			if m.historyIndex == -1 {
				return m, nil
			}

			if m.historyIndex < len(m.history)-1 {
				m.historyIndex++
				m.textInput.SetValue(m.history[m.historyIndex])
			} else {
				// Return to current input
				m.historyIndex = -1
				m.textInput.SetValue(m.currentInput)
			}
			m.textInput.CursorEnd()
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the input prompt.
func (m inputModel) View() string {
	if m.done {
		return ""
	}
	return m.textInput.View()
}

// =============================================================================
// MockInputReader Implementation (for testing)
// =============================================================================

// MockInputReader implements InputReader for testing.
//
// # Description
//
// MockInputReader returns predetermined inputs for unit testing chat
// runners without requiring actual user input. Each call to ReadLine
// returns the next input in sequence, then io.EOF once exhausted.
//
// # Thread Safety
//
// Not thread-safe. Designed for single-threaded tests.
type MockInputReader struct {
	inputs []string
	index  int
}

// NewMockInputReader creates a MockInputReader with predetermined inputs.
//
// # Examples
//
//	mock := NewMockInputReader([]string{"hello", "exit"})
//	line1, _ := mock.ReadLine() // "hello"
//	line2, _ := mock.ReadLine() // "exit"
//	_, err := mock.ReadLine()   // io.EOF
func NewMockInputReader(inputs []string) *MockInputReader {
	return &MockInputReader{
		inputs: inputs,
		index:  0,
	}
}

// ReadLine returns the next predetermined input, then io.EOF when all
// inputs are consumed. Does not block.
func (m *MockInputReader) ReadLine() (string, error) {
	if m.index >= len(m.inputs) {
		return "", io.EOF
	}
	line := m.inputs[m.index]
	m.index++
	return line, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// isExitCommand checks if the input is an exit command.
//
// Returns true if the input matches "exit" or "quit" (case-sensitive).
// Input is assumed to already be trimmed.
func isExitCommand(input string) bool {
	return input == "exit" || input == "quit"
}
