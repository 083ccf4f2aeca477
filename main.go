package main

import (
	"context"
	"os"

	deskmirror "github.com/ln64-git/deskmirror/internal"
	"github.com/ln64-git/deskmirror/src/cli"
	"github.com/ln64-git/deskmirror/src/config"
	"github.com/ln64-git/deskmirror/src/utility"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		utility.NewLogger("cli", utility.INFO).Warn("Failed to load config: %v, using defaults", err)
		cfg = config.Default()
	}

	logger := utility.NewLogger(cfg.LogMode, utility.ParseLogLevel(string(cfg.LogLevel)))
	defer logger.Close()

	mirror := deskmirror.NewDeskmirror(logger, cfg)

	if err := cli.NewCLI(mirror, logger, cfg, version).Execute(context.Background()); err != nil {
		logger.Error("Error: %v", err)
		os.Exit(1)
	}
}
