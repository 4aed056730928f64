package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes results by input text. The model is deterministic
// for a fixed revision, so a hit is exact.
type resultCache struct {
	entries *lru.Cache[string, Result]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries}, nil
}

// split returns the cached results positioned by input index and the
// distinct texts that still need inference, in first-seen order.
func (c *resultCache) split(texts []string) ([]Result, []bool, []string) {
	results := make([]Result, len(texts))
	hit := make([]bool, len(texts))
	var misses []string
	seen := make(map[string]struct{})
	for i, text := range texts {
		if r, ok := c.entries.Get(text); ok {
			results[i] = r
			hit[i] = true
			continue
		}
		if _, dup := seen[text]; !dup {
			seen[text] = struct{}{}
			misses = append(misses, text)
		}
	}
	return results, hit, misses
}

func (c *resultCache) add(text string, r Result) {
	if c == nil {
		return
	}
	c.entries.Add(text, r)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
