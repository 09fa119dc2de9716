package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/zulfachrienst/chatbot-rag/internal/app"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP and websocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.BindAddr = addr
		}
		metrics := observability.NewMetrics(cfg.MetricsNamespace)

		built, err := app.Build(ctx, cfg, metrics, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := built.Cleanup(); err != nil {
				logger.Warn("cleanup failed", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:    cfg.BindAddr,
			Handler: built.API.Router(),
		}
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.BindAddr, "storage", built.Storage)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "err", err)
			_ = httpServer.Close()
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides APP_BIND_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
