package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tickbot/internal/app"
	"tickbot/internal/config"
	"tickbot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("TICKBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("init log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ config loaded (env=%s, market=%s)", cfg.App.Env, cfg.Market.ID)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("init app failed: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
