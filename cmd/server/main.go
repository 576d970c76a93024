package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/treeindex/internal/api"
	"github.com/dgallion1/treeindex/internal/app"
	"github.com/dgallion1/treeindex/internal/config"
	"github.com/dgallion1/treeindex/internal/pipeline"
	"github.com/dgallion1/treeindex/internal/version"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := app.New(cfg, log)
	if err != nil {
		log.Error("initialize runtime", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	worker := pipeline.NewWorker(rt.Builder, rt.Store, rt.BuildGraph(), log)
	orch := pipeline.NewOrchestrator(cfg, worker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Jobs:      orch,
		Records:   rt.Store,
		Navigator: rt.Navigator,
		Graph:     rt.Graph,
		LLM:       rt.LLM,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		rt.Close()
	}()

	log.Info("starting treeindex", "port", cfg.Port, "version", version.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
