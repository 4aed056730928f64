package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/finsent/internal/hub"
	"github.com/samcharles93/finsent/internal/logger"
	"github.com/samcharles93/finsent/internal/pipeline"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "finsent",
		Usage:  "Financial sentiment classification service",
		Flags:  allFlags(),
		Action: serveAction,
		Commands: []*cli.Command{
			serveCmd(),
			classifyCmd(),
			fetchCmd(),
			configCmd(),
			versionCmd(),
		},
	}
}

// setup applies the config file and builds the logger. Every action calls
// it first so explicit flags, wherever they appear, win over the file.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, logger.Logger, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return ctx, nil, err
	}
	applyConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log := logger.ForFormat(cmd.Root().ErrWriter, logFormat, level)
	return logger.WithContext(ctx, log), log, nil
}

func newLoader(log logger.Logger) pipeline.Loader {
	return pipeline.Loader{
		ModelID:   modelID,
		Revision:  revision,
		NumLabels: int(numLabels),
		Backend:   backend,
		Hub: hub.NewClient(hub.Config{
			BaseURL:  hubURL,
			Token:    hubToken,
			CacheDir: cacheDir,
			Offline:  offline,
			Timeout:  hubTimeout,
		}),
		Remote: pipeline.RemoteConfig{
			Endpoint: inferenceEndpoint,
			Token:    inferenceToken,
			Timeout:  inferenceTimeout,
		},
		BridgeCommand: bridgeCommand,
		CacheSize:     int(resultCacheSize),
		Warmup:        warmup,
		Logger:        log,
	}
}
