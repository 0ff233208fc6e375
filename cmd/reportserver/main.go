// Package main serves the read-only reporting HTTP/WebSocket view over
// backtest results already persisted by cmd/backtest. It never runs a
// backtest itself.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/structurelab/internal/api"
	"github.com/atlas-desktop/structurelab/internal/data"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func main() {
	host := flag.String("host", "127.0.0.1", "listen host")
	port := flag.Int("port", 8090, "listen port")
	candlesDir := flag.String("candles", "./data", "candle store directory")
	resultsDir := flag.String("results", "./results", "backtest result store directory")
	enableMetrics := flag.Bool("metrics", true, "expose Prometheus metrics at /metrics")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	dataStore, err := data.NewStore(logger, *candlesDir)
	if err != nil {
		logger.Fatal("failed to open candle store", zap.Error(err))
	}
	results, err := api.NewResultStore(*resultsDir)
	if err != nil {
		logger.Fatal("failed to open result store", zap.Error(err))
	}

	config := types.DefaultServerConfig()
	config.Host = *host
	config.Port = *port
	config.EnableMetrics = *enableMetrics

	server := api.NewServer(logger, config, results, dataStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("reporting server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down reporting server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
