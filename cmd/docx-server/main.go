// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/docxpress/internal/cache"
	"github.com/docxpress/internal/config"
	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/highlight"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Errorf("docx-server: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load("docx-server", 8000, args)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.Log.File, level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resultCache highlight.Cache
	if cfg.Redis.Enabled {
		client, err := config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warnf("Redis unavailable, result cache disabled: %v", err)
		} else {
			defer client.Close()
			rc, err := cache.NewRedisCache(client, cfg.Cache.Prefix, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			resultCache = rc
			logger.Printf("Result cache enabled (ttl %s)", cfg.Cache.TTL)
		}
	}

	deps := server.DocxDeps{}
	var recorder server.HistoryRecorder
	if cfg.History.Enabled {
		store, err := database.OpenHistory(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder, deps.History = store, store
		logger.Printf("Activity history: %s", cfg.History.DBPath)
	}
	deps.Docx = server.NewDocxHandler(highlight.NewService(resultCache), recorder, cfg.Uploads.MaxBytes)

	srv := server.NewHTTPServer(cfg.HTTP, server.NewDocxMux(deps))
	logger.Printf("Starting %s on %s", server.DocxServiceName, srv.Addr)
	return server.ListenAndServe(ctx, srv, cfg.HTTP.ShutdownTimeout)
}
