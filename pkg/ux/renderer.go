// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the turn renderer that displays a question, its
// streamed answer, and the consolidated sources.
//
// Single Responsibility:
//
//	Renderers ONLY render. Protocol handling lives in pkg/qna.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/enterprise-rag/chatqna-cli/pkg/qna"
)

// =============================================================================
// Turn Renderer
// =============================================================================

// TurnRenderer writes one chat turn to a terminal as it happens: a
// spinner while waiting for the first token, raw deltas as they stream,
// then the source citations once the turn settles. Its Observe method is
// shaped to plug straight into the submitter's event loop.
type TurnRenderer struct {
	w           io.Writer
	personality PersonalityLevel
	spinner     *Spinner
	sawText     bool
	showSources bool
}

// NewTurnRenderer creates a renderer writing to stdout with the current
// personality.
func NewTurnRenderer() *TurnRenderer {
	p := GetPersonality()
	return &TurnRenderer{
		w:           os.Stdout,
		personality: p.Level,
		showSources: p.ShowSources,
	}
}

// NewTurnRendererWithWriter creates a renderer with a custom writer (for
// testing).
func NewTurnRendererWithWriter(w io.Writer, personality PersonalityLevel) *TurnRenderer {
	return &TurnRenderer{w: w, personality: personality, showSources: true}
}

// Begin announces the question and starts the waiting spinner.
func (r *TurnRenderer) Begin(question string) {
	r.sawText = false
	if r.personality == PersonalityMachine {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", Styles.Subtitle.Render("you:"), question)

	if r.w == os.Stdout && ShouldShowProgress() {
		r.spinner = NewSpinner("thinking")
		r.spinner.Start()
	}
}

// Observe renders one turn event. Text deltas print as they arrive;
// sources and terminal events are deferred to End, which has the settled
// turn.
func (r *TurnRenderer) Observe(ev qna.Event) error {
	switch ev.Kind {
	case qna.EventText:
		r.stopSpinner()
		if !r.sawText && r.personality != PersonalityMachine {
			fmt.Fprintf(r.w, "%s ", Styles.Highlight.Render("bot:"))
		}
		r.sawText = true
		fmt.Fprint(r.w, ev.Text)
	case qna.EventDone, qna.EventError:
		r.stopSpinner()
	}
	return nil
}

// End finishes the turn: closes the answer line, then renders sources or
// the failure.
func (r *TurnRenderer) End(turn *qna.ChatTurn) {
	r.stopSpinner()
	if r.sawText {
		fmt.Fprintln(r.w)
	}

	if turn.Err != nil {
		r.renderError(turn.Err)
		return
	}
	if r.showSources {
		r.renderSources(turn.Sources)
	}
	fmt.Fprintln(r.w)
}

func (r *TurnRenderer) stopSpinner() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

func (r *TurnRenderer) renderError(turnErr *qna.Error) {
	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.w, "ERROR\t%s\t%s\n", turnErr.Kind, turnErr.Message)
		return
	}

	label := "error"
	if turnErr.Kind == qna.KindGuardrailBlocked {
		label = "blocked"
	}
	fmt.Fprintf(r.w, "%s %s %s\n\n",
		IconError.Render(),
		Styles.Error.Render(label+":"),
		turnErr.Message)
}

func (r *TurnRenderer) renderSources(sources []qna.Source) {
	if len(sources) == 0 {
		return
	}

	if r.personality == PersonalityMachine {
		for _, src := range sources {
			fmt.Fprintf(r.w, "SOURCE\t%d\t%s\n", src.CitationID, sourceName(src))
		}
		return
	}

	fmt.Fprintln(r.w, Styles.Muted.Render("sources:"))
	for _, src := range sources {
		line := fmt.Sprintf("  %s [%d] %s", IconBullet, src.CitationID, sourceName(src))
		if src.RerankerScore > 0 {
			line += Styles.Muted.Render(fmt.Sprintf(" (score %.2f)", src.RerankerScore))
		}
		fmt.Fprintln(r.w, line)
	}
}

// sourceName returns the human identifier of a source fragment.
func sourceName(src qna.Source) string {
	switch src.Type {
	case qna.SourceTypeLink:
		return src.URL
	case qna.SourceTypeFile:
		if src.BucketName != "" {
			return src.BucketName + "/" + src.ObjectName
		}
		return src.ObjectName
	default:
		if name := strings.TrimSpace(src.ObjectName + src.URL); name != "" {
			return name
		}
		return "unknown source"
	}
}
