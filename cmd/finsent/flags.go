package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/finsent/internal/hub"
	"github.com/samcharles93/finsent/internal/pipeline"
)

const defaultAddr = "0.0.0.0:3001"

var (
	configFile string

	modelID   string
	revision  string
	numLabels int64
	backend   string

	hubURL     string
	hubToken   string
	cacheDir   string
	offline    bool
	hubTimeout time.Duration

	inferenceEndpoint string
	inferenceToken    string
	inferenceTimeout  time.Duration

	bridgeCommand string

	resultCacheSize int64
	warmup          bool

	addr              string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration

	logLevel  string
	logFormat string
	debug     bool
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/finsent/config.yaml)",
			Sources:     cli.EnvVars("FINSENT_CONFIG"),
			Destination: &configFile,
		},
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model hub identifier (owner/name)",
			Value:       pipeline.DefaultModelID,
			Sources:     cli.EnvVars("FINSENT_MODEL"),
			Destination: &modelID,
		},
		&cli.StringFlag{
			Name:        "revision",
			Usage:       "model revision (branch, tag or commit)",
			Value:       "main",
			Sources:     cli.EnvVars("FINSENT_REVISION"),
			Destination: &revision,
		},
		&cli.Int64Flag{
			Name:        "num-labels",
			Usage:       "number of sentiment classes the model must expose",
			Value:       pipeline.DefaultNumLabels,
			Sources:     cli.EnvVars("FINSENT_NUM_LABELS"),
			Destination: &numLabels,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "inference backend (remote, bridge)",
			Value:       pipeline.BackendRemote,
			Sources:     cli.EnvVars("FINSENT_BACKEND"),
			Destination: &backend,
		},
		&cli.StringFlag{
			Name:        "hub-url",
			Usage:       "model hub base URL",
			Value:       hub.DefaultBaseURL,
			Sources:     cli.EnvVars("FINSENT_HUB_URL", "HF_ENDPOINT"),
			Destination: &hubURL,
		},
		&cli.StringFlag{
			Name:        "hub-token",
			Usage:       "model hub access token",
			Sources:     cli.EnvVars("FINSENT_HUB_TOKEN", "HF_TOKEN"),
			Destination: &hubToken,
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "artifact cache directory",
			Value:       hub.DefaultCacheDir(),
			Sources:     cli.EnvVars("FINSENT_CACHE_DIR"),
			Destination: &cacheDir,
		},
		&cli.BoolFlag{
			Name:        "offline",
			Usage:       "use cached artifacts only",
			Sources:     cli.EnvVars("FINSENT_OFFLINE", "HF_HUB_OFFLINE"),
			Destination: &offline,
		},
		&cli.DurationFlag{
			Name:        "hub-timeout",
			Usage:       "per-request timeout for hub downloads (0 disables)",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("FINSENT_HUB_TIMEOUT"),
			Destination: &hubTimeout,
		},
	}
}

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "inference-endpoint",
			Usage:       "remote backend endpoint (POST {endpoint}/models/{model})",
			Value:       pipeline.DefaultInferenceEndpoint,
			Sources:     cli.EnvVars("FINSENT_INFERENCE_ENDPOINT"),
			Destination: &inferenceEndpoint,
		},
		&cli.StringFlag{
			Name:        "inference-token",
			Usage:       "remote backend bearer token",
			Sources:     cli.EnvVars("FINSENT_INFERENCE_TOKEN", "HF_TOKEN"),
			Destination: &inferenceToken,
		},
		&cli.DurationFlag{
			Name:        "inference-timeout",
			Usage:       "remote backend request timeout (0 disables)",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("FINSENT_INFERENCE_TIMEOUT"),
			Destination: &inferenceTimeout,
		},
		&cli.StringFlag{
			Name:        "bridge-command",
			Usage:       "bridge backend worker command line",
			Sources:     cli.EnvVars("FINSENT_BRIDGE_COMMAND"),
			Destination: &bridgeCommand,
		},
		&cli.Int64Flag{
			Name:        "result-cache",
			Usage:       "number of results kept in the LRU cache (0 disables)",
			Sources:     cli.EnvVars("FINSENT_RESULT_CACHE"),
			Destination: &resultCacheSize,
		},
		&cli.BoolFlag{
			Name:        "warmup",
			Usage:       "run one inference at load and fail startup if it errors",
			Value:       true,
			Sources:     cli.EnvVars("FINSENT_WARMUP"),
			Destination: &warmup,
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       defaultAddr,
			Sources:     cli.EnvVars("FINSENT_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-header-timeout",
			Usage:       "time allowed to read request headers",
			Value:       30 * time.Second,
			Destination: &readHeaderTimeout,
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "grace period for in-flight requests on shutdown",
			Value:       10 * time.Second,
			Destination: &shutdownTimeout,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("FINSENT_LOG_LEVEL"),
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Sources:     cli.EnvVars("FINSENT_LOG_FORMAT"),
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func allFlags() []cli.Flag {
	var flags []cli.Flag
	for _, group := range [][]cli.Flag{configFlags(), modelFlags(), backendFlags(), serverFlags(), loggingFlags()} {
		flags = append(flags, group...)
	}
	return flags
}
