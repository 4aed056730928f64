package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the finsent configuration file
// (~/.config/finsent/config.yaml). Pointer fields distinguish "not set" from
// zero values. Tokens are read from flags or the environment only.
type Config struct {
	Model     string `yaml:"model,omitempty"`
	Revision  string `yaml:"revision,omitempty"`
	NumLabels *int64 `yaml:"num_labels,omitempty"`
	Backend   string `yaml:"backend,omitempty"`

	// Hub
	HubURL     string         `yaml:"hub_url,omitempty"`
	CacheDir   string         `yaml:"cache_dir,omitempty"`
	Offline    *bool          `yaml:"offline,omitempty"`
	HubTimeout *time.Duration `yaml:"hub_timeout,omitempty"`

	// Backends
	InferenceEndpoint string         `yaml:"inference_endpoint,omitempty"`
	InferenceTimeout  *time.Duration `yaml:"inference_timeout,omitempty"`
	BridgeCommand     string         `yaml:"bridge_command,omitempty"`
	ResultCache       *int64         `yaml:"result_cache,omitempty"`
	Warmup            *bool          `yaml:"warmup,omitempty"`

	// Server
	ServerAddress     string         `yaml:"server_address,omitempty"`
	ReadHeaderTimeout *time.Duration `yaml:"read_header_timeout,omitempty"`
	ShutdownTimeout   *time.Duration `yaml:"shutdown_timeout,omitempty"`

	// Output
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "finsent", "config.yaml")
}

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to the flag variables when the
// corresponding flag was not set on the command line or the environment.
func applyConfig(c *cli.Command, cfg Config) {
	setString := func(flag, value string, dst *string) {
		if value != "" && !c.IsSet(flag) {
			*dst = value
		}
	}
	setString("model", cfg.Model, &modelID)
	setString("revision", cfg.Revision, &revision)
	setString("backend", cfg.Backend, &backend)
	setString("hub-url", cfg.HubURL, &hubURL)
	setString("cache-dir", cfg.CacheDir, &cacheDir)
	setString("inference-endpoint", cfg.InferenceEndpoint, &inferenceEndpoint)
	setString("bridge-command", cfg.BridgeCommand, &bridgeCommand)
	setString("addr", cfg.ServerAddress, &addr)
	setString("log-level", cfg.LogLevel, &logLevel)
	setString("log-format", cfg.LogFormat, &logFormat)

	if cfg.NumLabels != nil && !c.IsSet("num-labels") {
		numLabels = *cfg.NumLabels
	}
	if cfg.Offline != nil && !c.IsSet("offline") {
		offline = *cfg.Offline
	}
	if cfg.HubTimeout != nil && !c.IsSet("hub-timeout") {
		hubTimeout = *cfg.HubTimeout
	}
	if cfg.InferenceTimeout != nil && !c.IsSet("inference-timeout") {
		inferenceTimeout = *cfg.InferenceTimeout
	}
	if cfg.ResultCache != nil && !c.IsSet("result-cache") {
		resultCacheSize = *cfg.ResultCache
	}
	if cfg.Warmup != nil && !c.IsSet("warmup") {
		warmup = *cfg.Warmup
	}
	if cfg.ReadHeaderTimeout != nil && !c.IsSet("read-header-timeout") {
		readHeaderTimeout = *cfg.ReadHeaderTimeout
	}
	if cfg.ShutdownTimeout != nil && !c.IsSet("shutdown-timeout") {
		shutdownTimeout = *cfg.ShutdownTimeout
	}
}

// effectiveConfig snapshots the flag variables after config and environment
// have been applied.
func effectiveConfig() Config {
	return Config{
		Model:             modelID,
		Revision:          revision,
		NumLabels:         &numLabels,
		Backend:           backend,
		HubURL:            hubURL,
		CacheDir:          cacheDir,
		Offline:           &offline,
		HubTimeout:        &hubTimeout,
		InferenceEndpoint: inferenceEndpoint,
		InferenceTimeout:  &inferenceTimeout,
		BridgeCommand:     bridgeCommand,
		ResultCache:       &resultCacheSize,
		Warmup:            &warmup,
		ServerAddress:     addr,
		ReadHeaderTimeout: &readHeaderTimeout,
		ShutdownTimeout:   &shutdownTimeout,
		LogLevel:          logLevel,
		LogFormat:         logFormat,
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as YAML",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, _, err := setup(ctx, cmd); err != nil {
				return err
			}
			out, err := yaml.Marshal(effectiveConfig())
			if err != nil {
				return err
			}
			_, err = cmd.Root().Writer.Write(out)
			return err
		},
	}
}
