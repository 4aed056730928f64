// Package hub fetches pretrained model artifacts from a Hugging Face
// compatible model hub into a local cache directory.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samcharles93/finsent/internal/version"
)

const DefaultBaseURL = "https://huggingface.co"

var (
	ErrInvalidModelID   = errors.New("hub: invalid model id")
	ErrArtifactNotFound = errors.New("hub: artifact not found")
)

type Config struct {
	BaseURL  string
	Token    string
	CacheDir string
	Timeout  time.Duration
	// Offline serves only what is already cached.
	Offline bool
}

type Client struct {
	baseURL    string
	token      string
	cacheDir   string
	offline    bool
	httpClient *http.Client
}

// Artifact names one file of a model repository.
type Artifact struct {
	Name     string
	Optional bool
}

// Snapshot is the cached copy of a model revision. Files maps artifact name
// to local path and only holds artifacts that exist.
type Snapshot struct {
	ModelID  string
	Revision string
	Dir      string
	Files    map[string]string
}

func (s *Snapshot) Path(name string) (string, bool) {
	p, ok := s.Files[name]
	return p, ok
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	cacheDir := strings.TrimSpace(cfg.CacheDir)
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		cacheDir:   cacheDir,
		offline:    cfg.Offline,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// DefaultCacheDir is $XDG_CACHE_HOME/finsent/models, or ./.finsent-cache when
// no user cache directory is available.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", ".finsent-cache")
	}
	return filepath.Join(dir, "finsent", "models")
}

// ValidateModelID accepts "owner/name" identifiers.
func ValidateModelID(id string) error {
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q must be owner/name", ErrInvalidModelID, id)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\ `) {
			return fmt.Errorf("%w: %q", ErrInvalidModelID, id)
		}
	}
	return nil
}

// SnapshotDir is the cache directory of a model revision.
func (c *Client) SnapshotDir(modelID, revision string) string {
	repo := "models--" + strings.ReplaceAll(modelID, "/", "--")
	return filepath.Join(c.cacheDir, repo, strings.ReplaceAll(revision, "/", "--"))
}

// Fetch makes every artifact available under the snapshot directory,
// downloading the ones not cached yet. Missing optional artifacts are
// skipped; a missing required one fails the fetch.
func (c *Client) Fetch(ctx context.Context, modelID, revision string, artifacts []Artifact) (*Snapshot, error) {
	if err := ValidateModelID(modelID); err != nil {
		return nil, err
	}
	revision = strings.TrimSpace(revision)
	if revision == "" {
		revision = "main"
	}
	if strings.Contains(revision, "..") {
		return nil, fmt.Errorf("hub: invalid revision %q", revision)
	}

	snap := &Snapshot{
		ModelID:  modelID,
		Revision: revision,
		Dir:      c.SnapshotDir(modelID, revision),
		Files:    make(map[string]string, len(artifacts)),
	}
	if err := os.MkdirAll(snap.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("hub: create cache dir: %w", err)
	}

	for _, a := range artifacts {
		dest := filepath.Join(snap.Dir, a.Name)
		if cached(dest) {
			snap.Files[a.Name] = dest
			continue
		}
		err := c.download(ctx, modelID, revision, a.Name, dest)
		switch {
		case err == nil:
			snap.Files[a.Name] = dest
		case errors.Is(err, ErrArtifactNotFound) && a.Optional:
		default:
			return nil, err
		}
	}
	return snap, nil
}

func (c *Client) fileURL(modelID, revision, name string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, modelID, url.PathEscape(revision), name)
}

func (c *Client) download(ctx context.Context, modelID, revision, name, dest string) error {
	if c.offline {
		return fmt.Errorf("%w: %s/%s not in cache (offline)", ErrArtifactNotFound, modelID, name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(modelID, revision, name), http.NoBody)
	if err != nil {
		return fmt.Errorf("hub: create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub: fetch %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s/%s", ErrArtifactNotFound, modelID, name)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hub: fetch %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.partial")
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("hub: fetch %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	return nil
}

func cached(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}
