package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
model: acme/finbert-large
num_labels: 5
backend: bridge
bridge_command: python3 worker.py
inference_timeout: 90s
warmup: true
server_address: 127.0.0.1:9000
log_format: json
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Model != "acme/finbert-large" || cfg.Backend != "bridge" || cfg.BridgeCommand != "python3 worker.py" {
		t.Fatalf("unexpected strings: %+v", cfg)
	}
	if cfg.NumLabels == nil || *cfg.NumLabels != 5 {
		t.Fatalf("num_labels: got %v", cfg.NumLabels)
	}
	if cfg.InferenceTimeout == nil || *cfg.InferenceTimeout != 90*time.Second {
		t.Fatalf("inference_timeout: got %v", cfg.InferenceTimeout)
	}
	if cfg.Warmup == nil || !*cfg.Warmup {
		t.Fatalf("warmup: got %v", cfg.Warmup)
	}
	if cfg.Offline != nil {
		t.Fatalf("offline should be unset, got %v", *cfg.Offline)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
	if _, err := loadConfig(writeConfig(t, "model: [unterminated")); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("missing default config should be ignored: %v", err)
	}
	if cfg.Model != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

// runWithConfig parses args against the real flag set and applies cfg.
func runWithConfig(t *testing.T, cfg Config, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "finsent",
		Flags: allFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyConfig(c, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"finsent"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	runWithConfig(t, Config{})
	if modelID != "ahmedrachid/FinancialBERT-Sentiment-Analysis" {
		t.Fatalf("model: got %q", modelID)
	}
	if addr != "0.0.0.0:3001" {
		t.Fatalf("addr: got %q", addr)
	}
	if numLabels != 3 {
		t.Fatalf("num-labels: got %d", numLabels)
	}
	if backend != "remote" {
		t.Fatalf("backend: got %q", backend)
	}
	if !warmup {
		t.Fatal("warmup should default to true")
	}
	if hubTimeout != 5*time.Minute {
		t.Fatalf("hub-timeout: got %v", hubTimeout)
	}
}

func TestApplyConfigRespectsExplicitFlags(t *testing.T) {
	five := int64(5)
	timeout := 2 * time.Minute
	cfg := Config{
		Model:            "acme/other",
		NumLabels:        &five,
		ServerAddress:    "127.0.0.1:9000",
		LogFormat:        "json",
		InferenceTimeout: &timeout,
	}

	runWithConfig(t, cfg, "--addr", "0.0.0.0:4000", "--inference-timeout", "5s")

	if addr != "0.0.0.0:4000" {
		t.Fatalf("explicit addr overridden: got %q", addr)
	}
	if inferenceTimeout != 5*time.Second {
		t.Fatalf("explicit timeout overridden: got %v", inferenceTimeout)
	}
	if modelID != "acme/other" {
		t.Fatalf("config model not applied: got %q", modelID)
	}
	if numLabels != 5 {
		t.Fatalf("config num_labels not applied: got %d", numLabels)
	}
	if logFormat != "json" {
		t.Fatalf("config log_format not applied: got %q", logFormat)
	}
}

func TestApplyConfigTimeouts(t *testing.T) {
	hub := 30 * time.Second
	header := 5 * time.Second
	off := false
	runWithConfig(t, Config{HubTimeout: &hub, ReadHeaderTimeout: &header, Warmup: &off})
	if hubTimeout != hub {
		t.Fatalf("hub_timeout not applied: got %v", hubTimeout)
	}
	if readHeaderTimeout != header {
		t.Fatalf("read_header_timeout not applied: got %v", readHeaderTimeout)
	}
	if warmup {
		t.Fatal("warmup: false in config not applied")
	}
}

func TestApplyConfigEnvWins(t *testing.T) {
	t.Setenv("FINSENT_BACKEND", "bridge")
	runWithConfig(t, Config{Backend: "remote"})
	if backend != "bridge" {
		t.Fatalf("env backend overridden by config: got %q", backend)
	}
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	path := writeConfig(t, "model: acme/finbert\nresult_cache: 256\n")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	if err := app.Run(context.Background(), []string{"finsent", "--config", path, "config"}); err != nil {
		t.Fatalf("run config: %v", err)
	}

	var got Config
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if got.Model != "acme/finbert" {
		t.Fatalf("model: got %q", got.Model)
	}
	if got.ResultCache == nil || *got.ResultCache != 256 {
		t.Fatalf("result_cache: got %v", got.ResultCache)
	}
	if got.ServerAddress != "0.0.0.0:3001" {
		t.Fatalf("server_address: got %q", got.ServerAddress)
	}
	if strings.Contains(out.String(), "token") {
		t.Fatalf("config output must not include tokens:\n%s", out.String())
	}
}

func TestReadTexts(t *testing.T) {
	texts, err := readTexts(strings.NewReader("Profit rose 12%\n\n  \nGuidance cut\n"))
	if err != nil {
		t.Fatalf("readTexts returned error: %v", err)
	}
	if len(texts) != 2 || texts[0] != "Profit rose 12%" || texts[1] != "Guidance cut" {
		t.Fatalf("unexpected texts: %q", texts)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	if err := app.Run(context.Background(), []string{"finsent", "version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "version:") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
