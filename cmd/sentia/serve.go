package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xaenox/sentia/internal/api"
	"github.com/xaenox/sentia/internal/bot"
	"github.com/xaenox/sentia/internal/classifier"
	"go.uber.org/zap"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Train the model and serve the HTTP API (and the Telegram bot when configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *options) error {
	cfg, logger, err := load(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// No route exists until training has finished.
	local, err := classifier.Train(ctx, classifier.SeedCorpus(), cfg.Classifier.Model(), logger)
	if err != nil {
		logger.Fatal("Failed to train classifier", zap.Error(err))
	}
	defer local.Close()

	external := externalClassifier(cfg.OpenAI, local, logger)
	if external != nil {
		logger.Info("External model enabled", zap.String("model", external.ModelID()))
	}

	gin.SetMode(cfg.Server.Mode)
	server := api.NewServer(store, local, external, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, store, local, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		go func() {
			if err := b.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-errCh:
		logger.Error("Server error", zap.Error(runErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	return runErr
}
