package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/config"
	"github.com/hatsuboshi/lesson-engine/internal/server"
	"github.com/hatsuboshi/lesson-engine/internal/sessions"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting lesson server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	set, err := cards.LoadSet(cfg.CardSet)
	if err != nil {
		logger.Fatal("failed to load card set", zap.String("path", cfg.CardSet), zap.Error(err))
	}
	logger.Info("card set loaded",
		zap.String("path", cfg.CardSet),
		zap.Int("cards", set.Len()),
	)

	sessionMgr := sessions.NewManager(set, cfg.Server.MaxSessions, logger)
	hub := server.NewHub(sessionMgr, cfg.Session.Engine(time.Now().UnixNano()), logger)
	srv := server.New(cfg.Server.Address, hub, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	logger.Info("lesson server initialized",
		zap.String("address", cfg.Server.Address),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	logger.Info("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	sessionMgr.CloseAll()

	logger.Info("lesson server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
