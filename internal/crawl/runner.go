// Package crawl drives one end-to-end harvest run: paginate, extract,
// redact, persist, and commit the checkpoint.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/checkpoint"
	"github.com/opendatanl/verdragenbank-crawler/internal/document"
	"github.com/opendatanl/verdragenbank-crawler/internal/extract"
	"github.com/opendatanl/verdragenbank-crawler/internal/metrics"
	"github.com/opendatanl/verdragenbank-crawler/internal/sru"
)

// Extractor resolves a raw record into a document. A non-nil error drops the
// record and the run continues.
type Extractor interface {
	Extract(ctx context.Context, rec sru.Record) (*document.Document, error)
}

// Sink receives finished documents. The shard writer and the publish stager
// both satisfy it.
type Sink interface {
	Append(doc document.Document) error
	Close() error
}

// Config controls a single run.
type Config struct {
	// BaseQuery is the CQL filter selecting the collection.
	BaseQuery string
	// MaxRecords bounds the number of documents written this run; 0 means
	// unbounded. Dropped records do not count against it.
	MaxRecords int
	// Reset discards the checkpoint before the run.
	Reset bool
}

// Stats summarizes a finished run. Saved is reported even when the run
// stopped early.
type Stats struct {
	Saved   int
	Dropped int
}

// Runner owns the run's checkpoint and drives the pipeline. It executes one
// run per invocation; the record stream is consumed strictly in order, so
// all network activity is sequential and deterministic.
type Runner struct {
	client     *sru.Client
	extractor  Extractor
	redact     func(string) string
	sink       Sink
	checkpoint *checkpoint.Store
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner wires the pipeline. checkpoint may be nil, in which case the run
// always crawls the full backlog and commits nothing (the publishing
// variant).
func NewRunner(
	client *sru.Client,
	extractor Extractor,
	redact func(string) string,
	sink Sink,
	store *checkpoint.Store,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if redact == nil {
		redact = func(s string) string { return s }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client:     client,
		extractor:  extractor,
		redact:     redact,
		sink:       sink,
		checkpoint: store,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one crawl. On a transport failure the documents already
// written are kept and the error is returned after the final count is
// logged. The checkpoint advances to the run's start time only when at
// least one document was written, or when a full backlog sweep finished
// cleanly with zero results.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := r.now().UTC()

	since, incremental, err := r.loadWindow()
	if err != nil {
		return Stats{}, err
	}

	query := sru.NewQuery(r.cfg.BaseQuery)
	if incremental {
		query = query.Since(since)
		r.logger.Info("performing incremental crawl", zap.String("since", since))
	} else {
		r.logger.Info("performing full backlog crawl")
	}
	if r.cfg.MaxRecords > 0 {
		r.logger.Info("record cap active", zap.Int("max_records", r.cfg.MaxRecords))
	}

	stats, runErr := r.process(ctx, query)

	if err := r.sink.Close(); err != nil {
		return stats, fmt.Errorf("close sink: %w", err)
	}

	r.logger.Info("run finished",
		zap.Int("saved", stats.Saved),
		zap.Int("dropped", stats.Dropped),
	)

	if stats.Saved > 0 || (!incremental && runErr == nil) {
		if err := r.commit(start); err != nil {
			return stats, err
		}
	}
	return stats, runErr
}

// loadWindow resolves the crawl window from the checkpoint, honoring reset.
func (r *Runner) loadWindow() (since string, incremental bool, err error) {
	if r.checkpoint == nil {
		return "", false, nil
	}
	if r.cfg.Reset {
		if err := r.checkpoint.Reset(); err != nil {
			return "", false, err
		}
	}
	since, ok, err := r.checkpoint.Load()
	if err != nil {
		return "", false, err
	}
	return since, ok, nil
}

// process consumes the record stream until exhaustion, the record cap, or a
// transport failure. The returned error reports a terminated pagination;
// per-record extraction failures only increment Dropped.
func (r *Runner) process(ctx context.Context, query sru.Query) (Stats, error) {
	var stats Stats

	records := r.client.Records(ctx, query)
	for records.Next() {
		doc, err := r.extractor.Extract(ctx, records.Record())
		if err != nil {
			stats.Dropped++
			metrics.ObserveRecordDropped(dropReason(err))
			r.logger.Debug("record dropped", zap.Error(err))
			continue
		}

		doc.Content = r.redact(doc.Content)
		if err := r.sink.Append(*doc); err != nil {
			return stats, fmt.Errorf("append document: %w", err)
		}
		stats.Saved++
		metrics.ObserveDocumentSaved()
		r.logger.Info("saved document",
			zap.Int("count", stats.Saved),
			zap.String("url", doc.URL),
		)

		if r.cfg.MaxRecords > 0 && stats.Saved >= r.cfg.MaxRecords {
			r.logger.Info("reached record cap, stopping early",
				zap.Int("max_records", r.cfg.MaxRecords))
			return stats, nil
		}
	}
	if err := records.Err(); err != nil {
		return stats, fmt.Errorf("pagination terminated: %w", err)
	}
	return stats, nil
}

func (r *Runner) commit(start time.Time) error {
	if r.checkpoint == nil {
		return nil
	}
	if err := r.checkpoint.Save(start); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	r.logger.Info("checkpoint committed", zap.Time("run_start", start))
	return nil
}

// dropReason buckets extraction failures into low-cardinality metric labels;
// the detailed cause goes to the log.
func dropReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrNoUsableURL):
		return "no_url"
	case errors.Is(err, extract.ErrEmptyContent):
		return "empty_content"
	default:
		return "fetch_or_parse"
	}
}
