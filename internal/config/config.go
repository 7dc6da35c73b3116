// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	SRU     SRUConfig     `mapstructure:"sru"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Publish PublishConfig `mapstructure:"publish"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SRUConfig identifies the search endpoint and the collection query.
type SRUConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Query        string `mapstructure:"query"`
	PageSize     int    `mapstructure:"page_size"`
	RecordSchema string `mapstructure:"record_schema"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// OutputConfig sets the shard directory and checkpoint location.
type OutputConfig struct {
	Dir            string `mapstructure:"dir"`
	ShardPrefix    string `mapstructure:"shard_prefix"`
	ShardCapacity  int    `mapstructure:"shard_capacity"`
	CheckpointFile string `mapstructure:"checkpoint_file"`
}

// CrawlConfig governs run-level behavior.
type CrawlConfig struct {
	Source     string `mapstructure:"source"`
	MaxRecords int    `mapstructure:"max_records"`
}

// PublishConfig holds the optional dataset-hub target.
type PublishConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Repository string `mapstructure:"repository"`
	Token      string `mapstructure:"token"`
	StagingDir string `mapstructure:"staging_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig exposes the Prometheus listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VDCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sru.base_url", "https://repository.overheid.nl/sru")
	v.SetDefault("sru.query", "c.product-area==vd")
	v.SetDefault("sru.page_size", 100)
	v.SetDefault("sru.record_schema", "gzd")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 30000)
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.shard_prefix", "verdragenbank")
	v.SetDefault("output.shard_capacity", 1000)
	v.SetDefault("output.checkpoint_file", ".last_update")
	v.SetDefault("crawl.source", "Verdragenbank")
	v.SetDefault("crawl.max_records", 250)
	// Empty defaults so AutomaticEnv surfaces these keys through Unmarshal;
	// viper only consults the environment for keys it already knows.
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.repository", "")
	v.SetDefault("publish.token", "")
	v.SetDefault("publish.staging_dir", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.SRU.BaseURL == "" {
		return fmt.Errorf("sru.base_url must be set")
	}
	if c.SRU.Query == "" {
		return fmt.Errorf("sru.query must be set")
	}
	if c.SRU.PageSize <= 0 {
		return fmt.Errorf("sru.page_size must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Output.ShardCapacity <= 0 {
		return fmt.Errorf("output.shard_capacity must be > 0")
	}
	if c.Crawl.MaxRecords < 0 {
		return fmt.Errorf("crawl.max_records must be >= 0")
	}
	if c.Publish.Repository != "" && c.Publish.Token == "" {
		return fmt.Errorf("publish.token must be set when publish.repository is configured")
	}
	return nil
}

// Timeout converts the HTTP timeout config into a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c HTTPConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (c HTTPConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}
