package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/valorant-veto/internal/config"
	"github.com/DoyleJ11/valorant-veto/internal/httpapi"
	"github.com/DoyleJ11/valorant-veto/internal/hub"
	"github.com/DoyleJ11/valorant-veto/internal/logging"
	"github.com/DoyleJ11/valorant-veto/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "veto-server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadServer(args)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubOpts := []hub.Option{hub.WithLogger(log)}
	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		hubOpts = append(hubOpts, hub.WithStore(db))
		log.Info("rooms stored in postgres")
	} else {
		hubOpts = append(hubOpts, hub.WithStore(store.NewMemory()))
		log.Warn("DATABASE_URL not set, rooms are kept in memory only")
	}

	h := hub.NewHub(ctx, hubOpts...)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		Logger:         log,
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if cfg.JWTSecret == "" {
		log.Warn("VETO_JWT_SECRET not set, requests are not authenticated")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	h.Inbox() <- hub.ShutdownHub{}
	return err
}
