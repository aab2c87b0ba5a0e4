package main

import (
	"fmt"
	"os"

	"github.com/dbforge/mongomigrate/app/applicator"
	"github.com/dbforge/mongomigrate/app/config"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()

	l := logger.Sugar()
	l = l.With(zap.String("applicator", "mongomigrate"))

	cfg, err := loadConfig()
	if err != nil {
		l.Errorf("failed to load config err: %v", err)
		_ = logger.Sync()
		os.Exit(applicator.ExitFailure)
	}

	app := applicator.NewApp(l, &cfg)
	code := app.Run()

	if err := logger.Sync(); err != nil {
		l.Errorf("failed to sync logger: %v", err)
	}
	os.Exit(code)
}

func loadConfig() (config config.Config, err error) {
	rest, err := flags.Parse(&config)
	if err != nil {
		return config, err
	}
	if len(rest) > 0 {
		return config, fmt.Errorf("unexpected arguments: %v", rest)
	}
	return config, nil
}
