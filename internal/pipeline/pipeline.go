package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Pipeline composes a Backend with the model's label set. It is safe for
// concurrent use and immutable after construction apart from its cache.
type Pipeline struct {
	model   string
	labels  []string
	backend Backend
	cache   *resultCache
}

type Options struct {
	ModelID string
	// Labels is the model's id2label in class index order.
	Labels []string
	// CacheSize bounds the result cache; zero disables it.
	CacheSize int
}

func New(backend Backend, opts Options) (*Pipeline, error) {
	if backend == nil {
		return nil, fmt.Errorf("pipeline: backend is required")
	}
	cache, err := newResultCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{
		model:   opts.ModelID,
		labels:  append([]string(nil), opts.Labels...),
		backend: backend,
		cache:   cache,
	}, nil
}

func (p *Pipeline) Model() string    { return p.model }
func (p *Pipeline) Backend() string  { return p.backend.Name() }
func (p *Pipeline) Labels() []string { return append([]string(nil), p.labels...) }
func (p *Pipeline) CachedResults() int {
	return p.cache.len()
}

func (p *Pipeline) Close() error {
	return p.backend.Close()
}

// Classify maps texts to one Result each, preserving order. Any backend
// error, including a panic, fails the whole call.
func (p *Pipeline) Classify(ctx context.Context, texts []string) Outcome {
	if len(texts) == 0 {
		return Succeeded(nil)
	}
	if p.cache == nil {
		results, err := p.predict(ctx, texts)
		if err != nil {
			return Failed(err)
		}
		return Succeeded(results)
	}

	results, hit, misses := p.cache.split(texts)
	if len(misses) > 0 {
		predicted, err := p.predict(ctx, misses)
		if err != nil {
			return Failed(err)
		}
		byText := make(map[string]Result, len(misses))
		for i, text := range misses {
			byText[text] = predicted[i]
			p.cache.add(text, predicted[i])
		}
		for i, text := range texts {
			if !hit[i] {
				results[i] = byText[text]
			}
		}
	}
	return Succeeded(results)
}

func (p *Pipeline) predict(ctx context.Context, texts []string) ([]Result, error) {
	results, err := safePredict(ctx, p.backend, texts)
	if err != nil {
		return nil, err
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d results for %d inputs", ErrBackendProtocol, p.backend.Name(), len(results), len(texts))
	}
	for i := range results {
		results[i].Label = p.normalizeLabel(results[i].Label)
	}
	return results, nil
}

func safePredict(ctx context.Context, b Backend, texts []string) (results []Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Predict: %v", ErrBackendInference, rec)
		}
	}()
	return b.Predict(ctx, texts)
}

// normalizeLabel maps generic LABEL_<n> names onto the configured label set.
func (p *Pipeline) normalizeLabel(label string) string {
	idx, ok := strings.CutPrefix(label, "LABEL_")
	if !ok {
		return label
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 || n >= len(p.labels) {
		return label
	}
	return p.labels[n]
}
