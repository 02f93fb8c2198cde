// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/enterprise-rag/chatqna-cli/cmd/chatqna/config"
	"github.com/enterprise-rag/chatqna-cli/pkg/history"
	"github.com/enterprise-rag/chatqna-cli/pkg/ux"
)

// historyTimeout bounds each history subcommand request.
const historyTimeout = 30 * time.Second

// requireStore builds a history client, ignoring the enabled flag:
// explicit history subcommands always talk to the backend.
func requireStore() history.Store {
	store, err := history.NewClient(history.Config{
		BaseURL: config.Global.Backend.URL,
		Token:   buildTokenSource(),
		Logger:  appLogger.Slog(),
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	return store
}

func historyContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), historyTimeout)
}

func runHistoryList(cmd *cobra.Command, args []string) {
	store := requireStore()
	ctx, cancel := historyContext()
	defer cancel()

	chats, err := store.List(ctx)
	if err != nil {
		fatalCommandError("history list", err)
	}

	if len(chats) == 0 {
		ux.Muted("no stored conversations")
		return
	}

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, chat := range chats {
			fmt.Printf("%s\t%s\n", chat.ID, chat.Name)
		}
		return
	}

	ux.Title("Stored conversations")
	for _, chat := range chats {
		name := chat.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s  %s\n", chat.ID, name)
	}
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	store := requireStore()
	ctx, cancel := historyContext()
	defer cancel()

	detail, err := store.Get(ctx, args[0])
	if err != nil {
		fatalCommandError("history show", err)
	}

	name := detail.Name
	if name == "" {
		name = detail.ID
	}
	ux.Title(name)
	for _, turn := range detail.Turns {
		fmt.Printf("%s %s\n", ux.Styles.Subtitle.Render("you:"), turn.Question)
		fmt.Printf("%s %s\n", ux.Styles.Highlight.Render("bot:"), turn.Answer)
		if turn.Err != nil {
			fmt.Printf("  (failed: %s)\n", turn.Err.Message)
		}
		fmt.Println()
	}
}

func runHistoryRename(cmd *cobra.Command, args []string) {
	store := requireStore()
	ctx, cancel := historyContext()
	defer cancel()

	if err := store.Rename(ctx, args[0], args[1]); err != nil {
		fatalCommandError("history rename", err)
	}
	ux.Success(fmt.Sprintf("renamed %s to %q", args[0], args[1]))
}

func runHistoryDelete(cmd *cobra.Command, args []string) {
	id := args[0]

	if !forceDelete && ux.IsInteractive() {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete conversation %s?", id)).
			Description("This removes it from the backend permanently.").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if !confirmed {
			ux.Muted("aborted")
			return
		}
	}

	store := requireStore()
	ctx, cancel := historyContext()
	defer cancel()

	if err := store.Delete(ctx, id); err != nil {
		fatalCommandError("history delete", err)
	}
	ux.Success("deleted " + id)
}

func runHistoryExport(cmd *cobra.Command, args []string) {
	outPath := "chatqna_history.json"
	if len(args) == 1 {
		outPath = args[0]
	}

	store := requireStore()
	// Export fans out one request per conversation; give it more room.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	details, err := store.ExportAll(ctx)
	if err != nil {
		fatalCommandError("history export", err)
	}

	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding export: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("Error writing %s: %v", outPath, err)
	}
	ux.Success(fmt.Sprintf("exported %d conversations to %s", len(details), outPath))
}

// fatalCommandError wraps err with the failing subcommand and exits.
func fatalCommandError(cmdName string, err error) {
	cmdErr := WrapCommandError(err, cmdName, "")
	ux.Error(cmdErr.Error())
	if detail := ExtractDetail(cmdErr); detail != "" {
		ux.Muted(detail)
	}
	if appLogger != nil {
		_ = appLogger.Close()
	}
	os.Exit(1)
}
