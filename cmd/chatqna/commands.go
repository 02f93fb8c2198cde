// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/enterprise-rag/chatqna-cli/cmd/chatqna/config"
	"github.com/enterprise-rag/chatqna-cli/pkg/logging"
	"github.com/enterprise-rag/chatqna-cli/pkg/ux"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	personalityLevel string // UX personality level (full/standard/minimal/machine)
	logLevel         string // CLI override for logging.level
	resumeID         string // chat --resume
	noHistory        bool   // chat --no-history
	forceDelete      bool   // history delete --force

	appLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "chatqna",
		Short: "A cli to chat with a ChatQnA RAG backend",
		Long: `chatqna is a terminal client for the ChatQnA RAG gateway.
It streams answers with source citations and manages stored
conversations on the backend.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading config: %v", err)
			}

			// Initialize UX personality from flag, config, or environment
			switch {
			case personalityLevel != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			case config.Global.UX.Personality != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(config.Global.UX.Personality))
			default:
				ux.InitPersonality()
			}
			if config.Global.UX.ShowSources != nil {
				p := ux.GetPersonality()
				p.ShowSources = *config.Global.UX.ShowSources
				ux.SetPersonality(p)
			}

			appLogger = newAppLogger()
		},
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive chat session",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a single question and prints the answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand, // Defined in cmd_chat.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Manage conversations stored on the backend",
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all stored conversations",
		Run:   runHistoryList, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show [history_id]",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow, // Defined in cmd_history.go
	}
	historyRenameCmd = &cobra.Command{
		Use:   "rename [history_id] [new_name]",
		Short: "Rename a stored conversation",
		Args:  cobra.ExactArgs(2),
		Run:   runHistoryRename, // Defined in cmd_history.go
	}
	historyDeleteCmd = &cobra.Command{
		Use:   "delete [history_id]",
		Short: "Delete a stored conversation",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryDelete, // Defined in cmd_history.go
	}
	historyExportCmd = &cobra.Command{
		Use:   "export [output_file]",
		Short: "Export every stored conversation to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHistoryExport, // Defined in cmd_history.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the chatqna version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chatqna", Version)
		},
	}
)

// newAppLogger builds the process logger from the loaded config.
func newAppLogger() *logging.Logger {
	cfg := logging.Config{
		Level:   logging.ParseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: "chatqna",
		JSON:    config.Global.Logging.JSON,
		// The terminal belongs to the chat; keep log lines out of it.
		Quiet: true,
	}
	if logLevel != "" {
		cfg.Level = logging.ParseLevel(logLevel)
	}
	return logging.New(cfg)
}

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, standard (default), minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level override: debug, info, warn, or error")

	// chat commands
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&resumeID, "resume", "", "Resume a stored conversation by its history ID.")
	chatCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not save this conversation to the backend.")

	rootCmd.AddCommand(askCmd)

	// history commands
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRenameCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyDeleteCmd.Flags().BoolVar(&forceDelete, "force", false, "Skip the confirmation prompt.")
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(versionCmd)
}
