package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/app"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/config"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/logger"
)

var version = "dev"

func main() {
	var (
		debug   bool
		jsonLog bool
	)

	root := &cobra.Command{
		Use:           "aiinterviewer",
		Short:         "AI interview session backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "log in JSON format")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the interview HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), debug, jsonLog)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serve, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, debug, jsonLog bool) error {
	log, err := logger.New(jsonLog, debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	application, cleanup, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	janitorCtx, cancelJanitor := context.WithCancel(ctx)
	defer cancelJanitor()
	application.Registry.StartJanitor(janitorCtx, cfg.JanitorInterval)

	srv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: application.Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", cfg.BindAddr),
			zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		srv.Close()
	}

	log.Info("server stopped",
		zap.Int("active_sessions", activeSessions(application)))
	return nil
}

func activeSessions(a *app.App) int {
	if a == nil || a.Registry == nil {
		return 0
	}
	return a.Registry.ActiveCount()
}
