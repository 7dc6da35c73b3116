// Package shard persists documents as size-bounded, append-only NDJSON files.
package shard

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/document"
)

// Config controls shard placement and capacity.
type Config struct {
	// Dir is the directory holding the shard files.
	Dir string
	// Prefix names the collection, e.g. "verdragenbank".
	Prefix string
	// Capacity is the maximum number of records per shard file.
	Capacity int
}

// Writer appends documents to the active shard, rotating to the next index
// when the shard reaches capacity. A shard that is full is closed and never
// appended to again. The first Append resolves the highest-indexed existing
// shard: a partially filled one is continued, a full one starts index+1.
type Writer struct {
	cfg    Config
	logger *zap.Logger

	file  *os.File
	enc   *json.Encoder
	index int
	count int // records in the active shard
}

// NewWriter validates cfg and prepares the output directory. No shard file
// is created until the first Append.
func NewWriter(cfg Config, logger *zap.Logger) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("shard dir must be set")
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("shard prefix must be set")
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("shard capacity must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create shard dir %s: %w", cfg.Dir, err)
	}
	return &Writer{cfg: cfg, logger: logger}, nil
}

// Append writes doc as one NDJSON line to the active shard, rotating first
// if the shard is at capacity.
func (w *Writer) Append(doc document.Document) error {
	if w.file == nil {
		if err := w.openLatest(); err != nil {
			return err
		}
	}
	if w.count >= w.cfg.Capacity {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	if err := w.enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	w.count++
	return nil
}

// Index returns the index of the active shard.
func (w *Writer) Index() int {
	return w.index
}

// Close flushes and closes the active shard file, if any.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.enc = nil
	if err != nil {
		return fmt.Errorf("close shard %s: %w", w.path(w.index), err)
	}
	return nil
}

func (w *Writer) path(index int) string {
	return filepath.Join(w.cfg.Dir, fmt.Sprintf("%s_shard_%03d.jsonl", w.cfg.Prefix, index))
}

// openLatest resolves the highest-indexed existing shard and opens it for
// append, advancing to the next index when it is already full.
func (w *Writer) openLatest() error {
	index, count, err := w.resolveLatest()
	if err != nil {
		return err
	}
	if count >= w.cfg.Capacity {
		index++
		count = 0
	}
	w.index = index
	w.count = count
	return w.open()
}

func (w *Writer) rotate() error {
	if err := w.Close(); err != nil {
		return err
	}
	w.index++
	w.count = 0
	w.logger.Info("rotating shard", zap.Int("index", w.index))
	return w.open()
}

func (w *Writer) open() error {
	f, err := os.OpenFile(w.path(w.index), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open shard %s: %w", w.path(w.index), err)
	}
	w.file = f
	w.enc = json.NewEncoder(f)
	w.enc.SetEscapeHTML(false)
	return nil
}

// resolveLatest scans the output directory for shard files and returns the
// highest index plus its record count. A directory without shards yields
// index 0, count 0.
func (w *Writer) resolveLatest() (index, count int, err error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read shard dir %s: %w", w.cfg.Dir, err)
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(w.cfg.Prefix) + `_shard_(\d+)\.jsonl$`)
	found := false
	for _, entry := range entries {
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		i, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || i > index {
			index = i
			found = true
		}
	}
	if !found {
		return 0, 0, nil
	}

	count, err = countLines(w.path(index))
	if err != nil {
		return 0, 0, err
	}
	return index, count, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open shard %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("count records in %s: %w", path, err)
	}
	return count, nil
}
