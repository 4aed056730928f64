package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"
)

type BridgeConfig struct {
	// Command is split on whitespace; the first field is the executable.
	Command  string
	Env      []string
	ModelID  string
	ModelDir string
	Labels   []string
}

// BridgeBackend runs one worker process per call. The worker owns the
// framework runtime; it reads a bridgeRequest on stdin and writes a
// bridgeResponse on stdout.
type BridgeBackend struct {
	command []string
	env     []string
	req     bridgeRequest
}

type bridgeRequest struct {
	Model    string   `json:"model"`
	ModelDir string   `json:"model_dir"`
	Labels   []string `json:"labels"`
	Texts    []string `json:"texts"`
}

type bridgeResponse struct {
	Results []Result `json:"results"`
	Error   string   `json:"error,omitempty"`
}

func NewBridgeBackend(cfg BridgeConfig) (*BridgeBackend, error) {
	command := strings.Fields(cfg.Command)
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: bridge command is not configured", ErrBackendUnavailable)
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return &BridgeBackend{
		command: command,
		env:     cfg.Env,
		req: bridgeRequest{
			Model:    cfg.ModelID,
			ModelDir: cfg.ModelDir,
			Labels:   cfg.Labels,
		},
	}, nil
}

func (b *BridgeBackend) Name() string {
	return "bridge"
}

func (b *BridgeBackend) Predict(ctx context.Context, texts []string) ([]Result, error) {
	req := b.req
	req.Texts = texts
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrBackendProtocol, err)
	}

	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	cmd.Env = append(os.Environ(), b.env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		sentinel := ErrBackendInference
		var execErr *exec.Error
		var pathErr *os.PathError
		if errors.As(err, &execErr) || errors.As(err, &pathErr) {
			sentinel = ErrBackendUnavailable
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: worker failed: %w: %s", sentinel, err, lastLine(msg))
		}
		return nil, fmt.Errorf("%w: worker failed: %w", sentinel, err)
	}

	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: decode worker output: %w", ErrBackendProtocol, err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrBackendInference, msg)
	}
	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("%w: %d results for %d inputs", ErrBackendProtocol, len(resp.Results), len(texts))
	}
	return resp.Results, nil
}

func (b *BridgeBackend) Close() error {
	return nil
}

// lastLine keeps the final line of a traceback, which carries the message.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
