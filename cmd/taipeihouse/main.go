// Command taipeihouse trains the Taipei house price model.
//
// Usage:
//
//	taipeihouse [--data Taipei_house.csv] [--model taipei_house_price_model.gob] [--plot scatter.png]
//
// Every flag can also be set through a TAIPEIHOUSE_* environment variable or
// a .env file in the working directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/taipeihouse/config"
	"github.com/YuminosukeSato/taipeihouse/housing"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:], config.DefaultEnvFile)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		return 1
	}

	if err := log.SetupLogger(cfg.LogLevel, os.Stderr); err != nil {
		log.GetLogger().Error("Failed to set up logger", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := housing.NewTrainer(cfg, os.Stdout).Run(ctx); err != nil {
		log.GetLogger().Error("Training failed", err)
		return 1
	}
	return 0
}
