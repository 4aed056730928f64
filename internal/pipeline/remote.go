package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/finsent/internal/version"
)

const DefaultInferenceEndpoint = "https://api-inference.huggingface.co"

type RemoteConfig struct {
	// Endpoint serves POST {Endpoint}/models/{ModelID}.
	Endpoint string
	ModelID  string
	Token    string
	Timeout  time.Duration
}

// RemoteBackend calls a hosted text-classification pipeline speaking the
// Hugging Face inference protocol.
type RemoteBackend struct {
	url    string
	token  string
	client *http.Client
}

type remoteRequest struct {
	Inputs  []string      `json:"inputs"`
	Options remoteOptions `json:"options"`
}

type remoteOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type remoteError struct {
	Error string `json:"error"`
}

func NewRemoteBackend(cfg RemoteConfig) (*RemoteBackend, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultInferenceEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid inference endpoint %q", cfg.Endpoint)
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		return nil, fmt.Errorf("remote backend: model id is required")
	}
	return &RemoteBackend{
		url:    endpoint + "/models/" + cfg.ModelID,
		token:  cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (b *RemoteBackend) Name() string {
	return "remote"
}

func (b *RemoteBackend) Predict(ctx context.Context, texts []string) ([]Result, error) {
	body, err := json.Marshal(remoteRequest{
		Inputs:  texts,
		Options: remoteOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrBackendProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrBackendProtocol, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var re remoteError
		if json.Unmarshal(raw, &re) == nil && re.Error != "" {
			msg = re.Error
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackendInference, resp.StatusCode, msg)
	}

	results, err := decodeRemoteResults(raw)
	if err != nil {
		return nil, err
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: %d results for %d inputs", ErrBackendProtocol, len(results), len(texts))
	}
	return results, nil
}

func (b *RemoteBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// decodeRemoteResults accepts the per-input score lists returned for batched
// inputs as well as the flat top-1 list.
func decodeRemoteResults(raw []byte) ([]Result, error) {
	var nested [][]Result
	if err := json.Unmarshal(raw, &nested); err == nil {
		out := make([]Result, len(nested))
		for i, scores := range nested {
			if len(scores) == 0 {
				return nil, fmt.Errorf("%w: no scores for input %d", ErrBackendProtocol, i)
			}
			out[i] = topScore(scores)
		}
		return out, nil
	}
	var flat []Result
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrBackendProtocol, err)
	}
	return flat, nil
}

func topScore(scores []Result) Result {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}
