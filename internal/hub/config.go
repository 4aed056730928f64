package hub

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

// ModelConfigFile is the transformers model configuration artifact.
const ModelConfigFile = "config.json"

// ModelConfig is the subset of config.json the service relies on.
type ModelConfig struct {
	Architectures []string          `json:"architectures"`
	ModelType     string            `json:"model_type"`
	ID2Label      map[string]string `json:"id2label"`

	// Labels holds ID2Label ordered by class index.
	Labels []string `json:"-"`
}

func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModelConfig(data)
}

// ParseModelConfig decodes config.json and orders its label map. Class
// indexes must be contiguous from zero, each named once by a non-empty label.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ModelConfigFile, err)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, fmt.Errorf("%s: id2label is empty", ModelConfigFile)
	}
	cfg.Labels = make([]string, len(cfg.ID2Label))
	for key, label := range cfg.ID2Label {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(cfg.Labels) {
			return nil, fmt.Errorf("%s: id2label key %q is not a class index below %d", ModelConfigFile, key, len(cfg.Labels))
		}
		if cfg.Labels[idx] != "" {
			return nil, fmt.Errorf("%s: id2label index %d is given more than once", ModelConfigFile, idx)
		}
		if label == "" {
			return nil, fmt.Errorf("%s: id2label key %q has an empty label", ModelConfigFile, key)
		}
		cfg.Labels[idx] = label
	}
	return &cfg, nil
}

// NumLabels is the number of output classes.
func (c *ModelConfig) NumLabels() int {
	return len(c.Labels)
}
