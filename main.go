package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"botwatch/clients"
	"botwatch/config"
	"botwatch/internal/app"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err = config.LoadFile(path, cfg)
		if err != nil {
			logger.Fatal("load config file", zap.String("path", path), zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	prefs, err := app.OpenPrefStore(logger, cfg.Prefs.Path, cfg.Alerts.SoundOnBoot)
	if err != nil {
		logger.Fatal("open preferences", zap.Error(err))
	}
	defer prefs.Close()

	cl := clients.NewClients(logger, cfg, prefs.SoundEnabled)
	runner := app.NewRunner(logger, cfg, cl, prefs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("botwatch starting",
		zap.String("stream_url", cfg.Stream.URL),
		zap.Bool("prod", cfg.IsProd))

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner exited", zap.Error(err))
	}
	logger.Info("botwatch stopped")
}
