// Package publish stages a crawl into a single NDJSON file and uploads it to
// a dataset repository. The staged file is temporary: it is named with a
// random suffix so concurrent runs cannot collide, and removed after upload.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/document"
)

// DefaultEndpoint is the dataset hub the uploader talks to unless configured
// otherwise.
const DefaultEndpoint = "https://huggingface.co"

// ErrMissingToken reports a publish configuration without credentials. It is
// surfaced before any network activity.
var ErrMissingToken = errors.New("publish: repository configured without an access token")

// Config holds the publishing target.
type Config struct {
	// Endpoint is the hub base URL. Empty selects DefaultEndpoint.
	Endpoint string
	// Repository is the dataset repository id, e.g. "opendatanl/verdragenbank".
	Repository string
	// Token is the bearer token authorizing the upload.
	Token string
	// StagingDir holds the temporary NDJSON file. Empty selects os.TempDir.
	StagingDir string
}

// Validate rejects a repository target without a token. A config with no
// repository is valid and means publishing is disabled.
func (c Config) Validate() error {
	if c.Repository != "" && c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Enabled reports whether a publishing target is configured.
func (c Config) Enabled() bool {
	return c.Repository != ""
}

func (c Config) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c Config) stagingDir() string {
	if c.StagingDir == "" {
		return os.TempDir()
	}
	return c.StagingDir
}

// Stager accumulates documents in a temporary NDJSON file. It is the sink of
// a publishing run; the file lives until Remove.
type Stager struct {
	path  string
	file  *os.File
	enc   *json.Encoder
	count int
}

// NewStager creates the staging file. The name carries a random suffix so two
// runs never write the same file.
func NewStager(cfg Config) (*Stager, error) {
	dir := cfg.stagingDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("verdragenbank_%s.jsonl", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staging file %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &Stager{path: path, file: f, enc: enc}, nil
}

// Append writes one document as a single NDJSON line.
func (s *Stager) Append(doc document.Document) error {
	if err := s.enc.Encode(doc); err != nil {
		return fmt.Errorf("stage document: %w", err)
	}
	s.count++
	return nil
}

// Close flushes and closes the staging file. The file stays on disk for
// Upload.
func (s *Stager) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("close staging file %s: %w", s.path, err)
	}
	return nil
}

// Path returns the staged file's location.
func (s *Stager) Path() string { return s.path }

// Count returns the number of staged documents.
func (s *Stager) Count() int { return s.count }

// Remove deletes the staged file. Call it after a successful upload, or to
// discard a failed run.
func (s *Stager) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staging file %s: %w", s.path, err)
	}
	return nil
}

// Client uploads staged files to the dataset repository.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient validates cfg and builds the uploader.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Repository == "" {
		return nil, errors.New("publish: no repository configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}, nil
}

// Upload puts the staged file into the dataset repository under name. The
// whole file is read into memory; staged crawls are bounded by the record
// cap, so this stays small.
func (c *Client) Upload(ctx context.Context, path, name string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read staged file %s: %w", path, err)
	}

	target := fmt.Sprintf("%s/api/datasets/%s/upload/main/%s",
		c.cfg.endpoint(), c.cfg.Repository, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload %s: unexpected status %d", name, resp.StatusCode)
	}

	c.logger.Info("uploaded staged file",
		zap.String("repository", c.cfg.Repository),
		zap.String("name", name),
		zap.Int("bytes", len(body)),
	)
	return nil
}
