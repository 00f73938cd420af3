// roomchat TUI - a terminal chat client with shared, synchronized rooms.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/roomchat-tui/internal/config"
	"github.com/jeranaias/roomchat-tui/internal/llm"
	"github.com/jeranaias/roomchat-tui/internal/roomstore"
	"github.com/jeranaias/roomchat-tui/internal/session"
	"github.com/jeranaias/roomchat-tui/internal/ui/chat"
	"github.com/jeranaias/roomchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		roomFlag    = flag.String("room", "", "join an existing room by id (default: create a new room)")
		configFlag  = flag.String("config", "", "path to config file (default: ~/.roomchat/config.toml)")
		modelFlag   = flag.String("model", "", "completion model override")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("roomchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*roomFlag, *configFlag, *modelFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(roomID, configPath, modelOverride string) error {
	// Load configuration (file, then environment overrides).
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if modelOverride != "" {
		cfg.LLM.Model = modelOverride
	}

	// Credentials are injected, never baked in. Fail before touching
	// any room.
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file.
	log, logFile, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Info("starting roomchat", "version", Version, "model", cfg.LLM.Model)

	ctx := context.Background()

	// Room store.
	store := roomstore.New(roomstore.Config{
		Addr:        cfg.Store.Addr,
		Password:    cfg.Store.Password,
		DB:          cfg.Store.DB,
		RoomTTL:     cfg.RoomTTL(),
		DialTimeout: cfg.DialTimeout(),
	}, log)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("room store unreachable at %s: %w", cfg.Store.Addr, err)
	}

	// Completion service.
	client, err := llm.NewClient(ctx, llm.Config{
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		SystemInstruction: cfg.LLM.SystemInstruction,
		Temperature:       cfg.LLM.Temperature,
		MaxRetries:        cfg.LLM.MaxRetries,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, log)
	if err != nil {
		return err
	}

	// UI wiring.
	theme := styles.NewThemeForMode(cfg.UI.Theme)
	sess := session.NewManager()
	runner := chat.NewRunner(store, client, sess, log)
	m := chat.New(theme, sess, runner, cfg.LLM.Model, chat.Options{
		Handle:         cfg.Handle,
		Compact:        cfg.UI.CompactMode,
		ShowTimestamps: cfg.UI.ShowTimestamps,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	runner.SetProgram(p)

	// Join (or create) the room once the event loop is receiving.
	go func() {
		if roomID != "" {
			runner.JoinRoom(ctx, roomID)
		} else {
			runner.CreateRoom(ctx)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running roomchat: %w", err)
	}

	// Print the shareable id so the user can hand it off after the
	// alternate screen is gone.
	if id := sess.RoomID(); id != "" {
		fmt.Printf("room id: %s\n", id)
	}
	sess.Close()
	return nil
}

// openLogger opens the log file and builds the slog handler at the
// configured level.
func openLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return log, f, nil
}
