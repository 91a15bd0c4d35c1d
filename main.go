// treeline - a branching conversation tree for local LLM chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/treeline/internal/config"
	"github.com/jeranaias/treeline/internal/layout"
	"github.com/jeranaias/treeline/internal/ollama"
	"github.com/jeranaias/treeline/internal/session"
	"github.com/jeranaias/treeline/internal/storage"
	"github.com/jeranaias/treeline/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		flagPlain   = flag.Bool("plain", false, "run the line-mode REPL instead of the TUI")
		flagConfig  = flag.String("config", "", "path to config.toml (default: ~/.treeline/config.toml)")
		flagVersion = flag.Bool("version", false, "print version and exit")
		flagList    = flag.Bool("list", false, "list saved sessions and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("treeline %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*flagConfig, *flagPlain, *flagList); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, plain, list bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := session.NewManager(store)
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	defer mgr.Flush()

	if list {
		return printSessions(mgr)
	}

	engine := layout.NewEngine(layoutConfig(cfg))

	client := ollama.NewClient(&ollama.ClientConfig{
		BaseURL:           cfg.Ollama.URL,
		Timeout:           time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		Model:             cfg.Ollama.Model,
		RequestsPerSecond: cfg.Ollama.RequestsPerSecond,
	})

	if plain {
		// The REPL mutates the tree on this goroutine, so the watcher only
		// announces the change instead of applying it.
		if path, perr := resolveConfigPath(configPath); perr == nil {
			watcher, werr := config.NewWatcher(path, func(*config.Config) {
				log.Printf("config changed on disk; restart to apply")
			})
			if werr != nil {
				log.Printf("config watcher disabled: %v", werr)
			} else {
				defer watcher.Close()
			}
		}
		return runPlain(cfg, mgr, engine, client)
	}

	app, err := ui.New(cfg, mgr, engine, client)
	if err != nil {
		return err
	}
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Hot-reload layout spacing when the config file changes on disk. The
	// watcher fires on its own goroutine; Send hands the new settings to
	// the update loop, the only place the tree may be touched.
	if path, perr := resolveConfigPath(configPath); perr == nil {
		watcher, werr := config.NewWatcher(path, func(next *config.Config) {
			program.Send(ui.ConfigReloadedMsg{Layout: layoutConfig(next)})
		})
		if werr != nil {
			log.Printf("config watcher disabled: %v", werr)
		} else {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (storage.KV, error) {
	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch cfg.Storage.Backend {
	case "files":
		return storage.NewFileStore(filepath.Join(dataDir, "sessions"))
	default:
		return storage.NewSQLiteStore(filepath.Join(dataDir, "treeline.db"))
	}
}

// resolveConfigPath returns the effective config file path for watching.
func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// layoutConfig maps the file configuration onto the layout engine.
func layoutConfig(cfg *config.Config) layout.Config {
	return layout.Config{
		BaseX:             cfg.Layout.BaseX,
		BaseY:             cfg.Layout.BaseY,
		NodeWidth:         cfg.Layout.NodeWidth,
		VerticalSpacing:   cfg.Layout.VerticalSpacing,
		HorizontalSpacing: cfg.Layout.HorizontalSpacing,
		DiagonalStep:      cfg.Layout.DiagonalStep,
	}
}

// printSessions writes the saved session list to stdout.
func printSessions(mgr *session.Manager) error {
	metas := mgr.List()
	if len(metas) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}
	for _, meta := range metas {
		marker := " "
		if meta.ID == mgr.ActiveID() {
			marker = "*"
		}
		fmt.Printf("%s %s  %-30s  %3d nodes  updated %s\n",
			marker, meta.ID, meta.Name, meta.NodeCount,
			meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
