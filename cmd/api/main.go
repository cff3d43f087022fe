package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/payvia/payvia/internal/admin"
	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/config"
	"github.com/payvia/payvia/internal/infra"
	"github.com/payvia/payvia/internal/logging"
	"github.com/payvia/payvia/internal/routes"
	"github.com/payvia/payvia/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)
	ctx := context.Background()

	backends, err := infra.Open(ctx, cfg)
	if err != nil {
		logger.Error("open backends", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", "error", err)
		}
	}()

	if err := admin.Init(ctx, backends.Store, cfg.AdminIdentity); err != nil {
		logger.Error("initialize administrator", "error", err)
		os.Exit(1)
	}

	notifier, closeNotifier := infra.NewNotifier(cfg, logger)
	defer func() {
		if err := closeNotifier(); err != nil {
			logger.Warn("close notifier", "error", err)
		}
	}()

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		Store:    backends.Store,
		DB:       backends.DB,
		Cache:    backends.Cache,
		Notifier: notifier,
		Clock:    clock.System(),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
