package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/samcharles93/finsent/internal/hub"
	"github.com/samcharles93/finsent/internal/logger"
	"github.com/samcharles93/finsent/internal/safetensors"
)

const (
	DefaultModelID   = "ahmedrachid/FinancialBERT-Sentiment-Analysis"
	DefaultNumLabels = 3

	BackendRemote = "remote"
	BackendBridge = "bridge"
)

const (
	weightsSafetensors = "model.safetensors"
	weightsPyTorch     = "pytorch_model.bin"
)

// Loader prepares a Pipeline at process start. Any error is meant to be
// fatal: the service has nothing to serve without a model.
type Loader struct {
	ModelID   string
	Revision  string
	NumLabels int
	Backend   string

	Hub    *hub.Client
	Remote RemoteConfig

	BridgeCommand string
	BridgeEnv     []string

	// FetchAll also fetches tokenizer and weights for the remote backend.
	FetchAll bool

	CacheSize int
	// Warmup runs one inference in Load so a backend that cannot serve
	// fails startup instead of every request.
	Warmup bool
	Logger logger.Logger
}

// Artifacts are the resolved and validated files of one model revision.
type Artifacts struct {
	ModelID  string
	Snapshot *hub.Snapshot
	Config   *hub.ModelConfig
}

// tokenizerArtifacts are what a BERT tokenizer needs locally.
var tokenizerArtifacts = []hub.Artifact{
	{Name: "vocab.txt"},
	{Name: "tokenizer_config.json", Optional: true},
	{Name: "special_tokens_map.json", Optional: true},
}

func (l Loader) resolveLogger(ctx context.Context) logger.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return logger.FromContext(ctx)
}

// Prepare resolves the model against the hub, fetches what the configured
// backend needs and validates it without starting inference.
func (l Loader) Prepare(ctx context.Context) (*Artifacts, error) {
	modelID := l.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	numLabels := l.NumLabels
	if numLabels <= 0 {
		numLabels = DefaultNumLabels
	}
	if l.Hub == nil {
		return nil, fmt.Errorf("load %s: hub client is required", modelID)
	}
	if err := hub.ValidateModelID(modelID); err != nil {
		return nil, err
	}
	switch l.Backend {
	case "", BackendRemote, BackendBridge:
	default:
		return nil, fmt.Errorf("load %s: unknown backend %q (want %s or %s)", modelID, l.Backend, BackendRemote, BackendBridge)
	}

	snap, err := l.Hub.Fetch(ctx, modelID, l.Revision, []hub.Artifact{{Name: hub.ModelConfigFile}})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", modelID, err)
	}
	cfgPath, _ := snap.Path(hub.ModelConfigFile)
	modelCfg, err := hub.LoadModelConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", modelID, err)
	}
	if modelCfg.NumLabels() != numLabels {
		return nil, fmt.Errorf("load %s: model has %d labels %v, want %d", modelID, modelCfg.NumLabels(), modelCfg.Labels, numLabels)
	}

	if l.Backend == BackendBridge || l.FetchAll {
		if err := l.fetchWeights(ctx, snap, numLabels); err != nil {
			return nil, fmt.Errorf("load %s: %w", modelID, err)
		}
	}
	return &Artifacts{ModelID: modelID, Snapshot: snap, Config: modelCfg}, nil
}

func (l Loader) Load(ctx context.Context) (*Pipeline, error) {
	log := l.resolveLogger(ctx)
	start := time.Now()
	log.Info("loading model", "model", l.ModelID, "revision", l.Revision, "backend", l.Backend)

	art, err := l.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	var backend Backend
	if l.Backend == BackendBridge {
		backend, err = NewBridgeBackend(BridgeConfig{
			Command:  l.BridgeCommand,
			Env:      l.BridgeEnv,
			ModelID:  art.ModelID,
			ModelDir: art.Snapshot.Dir,
			Labels:   art.Config.Labels,
		})
	} else {
		remote := l.Remote
		remote.ModelID = art.ModelID
		backend, err = NewRemoteBackend(remote)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", art.ModelID, err)
	}

	p, err := New(backend, Options{
		ModelID:   art.ModelID,
		Labels:    art.Config.Labels,
		CacheSize: l.CacheSize,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if l.Warmup {
		if out := p.Classify(ctx, []string{"warmup"}); !out.OK() {
			_ = p.Close()
			return nil, fmt.Errorf("load %s: warmup: %w", art.ModelID, out.Err)
		}
	}

	log.Info("model ready",
		"model", art.ModelID,
		"backend", backend.Name(),
		"labels", art.Config.Labels,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return p, nil
}

// fetchWeights adds the tokenizer and weights to snap and checks the
// classifier head when the weights are in safetensors format.
func (l Loader) fetchWeights(ctx context.Context, snap *hub.Snapshot, numLabels int) error {
	artifacts := append([]hub.Artifact{{Name: weightsSafetensors, Optional: true}}, tokenizerArtifacts...)
	fetched, err := l.Hub.Fetch(ctx, snap.ModelID, snap.Revision, artifacts)
	if err != nil {
		return err
	}
	maps.Copy(snap.Files, fetched.Files)

	if path, ok := snap.Path(weightsSafetensors); ok {
		return checkWeights(path, numLabels)
	}
	fetched, err = l.Hub.Fetch(ctx, snap.ModelID, snap.Revision, []hub.Artifact{{Name: weightsPyTorch}})
	if err != nil {
		if errors.Is(err, hub.ErrArtifactNotFound) {
			return fmt.Errorf("no weights found: need %s or %s: %w", weightsSafetensors, weightsPyTorch, err)
		}
		return err
	}
	maps.Copy(snap.Files, fetched.Files)
	return nil
}

func checkWeights(path string, numLabels int) error {
	f, err := safetensors.Open(path)
	if err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := f.CheckClassifierHead(numLabels); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	return nil
}
