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
	"golang.org/x/sync/errgroup"

	"github.com/docxpress/internal/config"
	"github.com/docxpress/internal/database"
	"github.com/docxpress/internal/logger"
	"github.com/docxpress/internal/render"
	"github.com/docxpress/internal/server"
	"github.com/docxpress/internal/templates"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Errorf("render-server: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load("render-server", 8001, args)
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

	source, watchDir, err := openTemplateStore(cfg.Templates)
	if err != nil {
		return err
	}
	cached, err := templates.NewCachedStore(source, cfg.Templates.CacheSize)
	if err != nil {
		return err
	}

	var recorder server.HistoryRecorder
	var reader server.HistoryReader
	if cfg.History.Enabled {
		store, err := database.OpenHistory(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder, reader = store, store
		logger.Printf("Activity history: %s", cfg.History.DBPath)
	}

	renderer := render.New(cached, render.Options{
		DefaultTemplate: cfg.Templates.Default,
		Missing:         render.MissingPolicy(cfg.Templates.Missing),
	})
	handler := server.NewRenderMux(server.RenderDeps{
		Render:  server.NewRenderHandler(renderer, cached, recorder, cfg.Uploads.MaxBytes, cfg.Templates.Default),
		History: reader,
	})
	srv := server.NewHTTPServer(cfg.HTTP, handler)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Templates.Watch && watchDir != "" {
		w, err := templates.NewWatcher(watchDir, cached, templates.DefaultDebounce)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		logger.Printf("Starting %s on %s", server.TemplateServiceName, srv.Addr)
		return server.ListenAndServe(gctx, srv, cfg.HTTP.ShutdownTimeout)
	})
	return g.Wait()
}

// openTemplateStore returns the configured store and, for a local
// directory, the path to watch.
func openTemplateStore(cfg config.TemplatesConfig) (templates.Store, string, error) {
	if cfg.S3.Endpoint != "" {
		store, err := templates.NewS3Store(templates.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		logger.Printf("Templates: s3://%s/%s at %s", cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Endpoint)
		return store, "", nil
	}

	store, err := templates.NewDirStore(cfg.Dir)
	if err != nil {
		return nil, "", err
	}
	logger.Printf("Templates: %s", store.Dir())
	return store, store.Dir(), nil
}
