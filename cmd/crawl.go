package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendatanl/verdragenbank-crawler/internal/checkpoint"
	"github.com/opendatanl/verdragenbank-crawler/internal/config"
	"github.com/opendatanl/verdragenbank-crawler/internal/crawl"
	"github.com/opendatanl/verdragenbank-crawler/internal/extract"
	"github.com/opendatanl/verdragenbank-crawler/internal/logging"
	"github.com/opendatanl/verdragenbank-crawler/internal/metrics"
	"github.com/opendatanl/verdragenbank-crawler/internal/publish"
	"github.com/opendatanl/verdragenbank-crawler/internal/redact"
	"github.com/opendatanl/verdragenbank-crawler/internal/shard"
	"github.com/opendatanl/verdragenbank-crawler/internal/sru"
	"github.com/opendatanl/verdragenbank-crawler/internal/transport"
)

// newCrawlCmd creates and configures the 'crawl' subcommand: harvest to
// local NDJSON shards with an incremental checkpoint.
func newCrawlCmd() *cobra.Command {
	var (
		reset      bool
		maxRecords int
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvests documents into local NDJSON shards",
		Long: `Walks the SRU result set, extracts and redacts every document, and
appends them to size-bounded shard files. The run is incremental when a
checkpoint from a previous run exists; pass --reset to discard it and
crawl the full backlog again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if cmd.Flags().Changed("max-records") {
				cfg.Crawl.MaxRecords = maxRecords
			}

			writer, err := shard.NewWriter(shard.Config{
				Dir:      cfg.Output.Dir,
				Prefix:   cfg.Output.ShardPrefix,
				Capacity: cfg.Output.ShardCapacity,
			}, logger)
			if err != nil {
				return err
			}
			store := checkpoint.NewStore(filepath.Join(cfg.Output.Dir, cfg.Output.CheckpointFile))

			runner := buildRunner(cfg, writer, store, crawl.Config{
				BaseQuery:  cfg.SRU.Query,
				MaxRecords: cfg.Crawl.MaxRecords,
				Reset:      reset,
			}, logger)

			stats, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			logger.Info("crawl complete",
				zap.Int("saved", stats.Saved),
				zap.Int("dropped", stats.Dropped),
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the checkpoint and crawl the full backlog")
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "stop after this many saved documents (0 = unbounded)")
	return cmd
}

// newPublishCmd creates the 'publish' subcommand: stage a bounded crawl into
// a temporary NDJSON file and upload it to the configured dataset repository.
// Publishing runs never touch the checkpoint.
func newPublishCmd() *cobra.Command {
	var maxRecords int
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Harvests a bounded sample and uploads it to the dataset hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if cmd.Flags().Changed("max-records") {
				cfg.Crawl.MaxRecords = maxRecords
			}

			pubCfg := publish.Config{
				Endpoint:   cfg.Publish.Endpoint,
				Repository: cfg.Publish.Repository,
				Token:      cfg.Publish.Token,
				StagingDir: cfg.Publish.StagingDir,
			}
			uploader, err := publish.NewClient(pubCfg, logger)
			if err != nil {
				return err
			}
			stager, err := publish.NewStager(pubCfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := stager.Remove(); err != nil {
					logger.Warn("failed to remove staged file", zap.Error(err))
				}
			}()

			runner := buildRunner(cfg, stager, nil, crawl.Config{
				BaseQuery:  cfg.SRU.Query,
				MaxRecords: cfg.Crawl.MaxRecords,
			}, logger)

			stats, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("publish crawl: %w", err)
			}
			if stats.Saved == 0 {
				logger.Info("nothing to publish")
				return nil
			}

			name := fmt.Sprintf("%s.jsonl", cfg.Output.ShardPrefix)
			if err := uploader.Upload(cmd.Context(), stager.Path(), name); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			logger.Info("publish complete",
				zap.Int("saved", stats.Saved),
				zap.Int("dropped", stats.Dropped),
				zap.String("repository", cfg.Publish.Repository),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "stop after this many staged documents (0 = config default)")
	return cmd
}

// setup loads configuration, builds the logger, and starts the optional
// metrics listener.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}
	return cfg, logger, nil
}

// buildRunner wires the shared pipeline: transport, SRU client, extractor,
// and redaction in front of the given sink.
func buildRunner(cfg config.Config, sink crawl.Sink, store *checkpoint.Store, runCfg crawl.Config, logger *zap.Logger) *crawl.Runner {
	tr := transport.New(transport.Config{
		Timeout:     cfg.HTTP.Timeout(),
		MaxAttempts: cfg.HTTP.MaxRetries,
		BaseDelay:   cfg.HTTP.BackoffInitial(),
		MaxDelay:    cfg.HTTP.BackoffMax(),
	}, logger)
	client := sru.NewClient(tr, sru.Config{
		BaseURL:      cfg.SRU.BaseURL,
		PageSize:     cfg.SRU.PageSize,
		RecordSchema: cfg.SRU.RecordSchema,
	}, logger)
	extractor := extract.New(tr, cfg.Crawl.Source, logger)
	return crawl.NewRunner(client, extractor, redact.Redact, sink, store, runCfg, logger)
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
