package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulfachrienst/chatbot-rag/internal/app"
	"github.com/zulfachrienst/chatbot-rag/internal/config"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "chatbot-rag",
	Short:         "Product chatbot backed by retrieval-augmented generation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// withApp builds the component graph, runs fn and releases resources.
func withApp(ctx context.Context, metrics *observability.Metrics, fn func(*app.BuildResult) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	built, err := app.Build(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()
	return fn(built)
}
