package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	xutil "SignalDesk/pkg/util"
)

// Upstream modes.
const (
	ModeAPI     = "api"
	ModeWebhook = "webhook"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Upstream struct {
		Mode    string        `yaml:"mode" default:"api"`
		BaseURL string        `yaml:"base_url" default:"http://localhost:8080"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
		Webhook struct {
			StrategyURL     string `yaml:"strategy_url"`
			RegimeURL       string `yaml:"regime_url"`
			CurrentNewsURL  string `yaml:"current_news_url"`
			UpcomingNewsURL string `yaml:"upcoming_news_url"`
			HealthURL       string `yaml:"health_url"`
		} `yaml:"webhook"`
		Breaker struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5"`
			OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s"`
		} `yaml:"breaker"`
	} `yaml:"upstream"`
	Polling struct {
		Interval  time.Duration `yaml:"interval" default:"30s"`
		IdleTTL   time.Duration `yaml:"idle_ttl" default:"10m"`
		FreePairs []string      `yaml:"free_pairs" default:"[\"XAUUSD\"]"`
	} `yaml:"polling"`
	RateLimit struct {
		RefreshRPS   float64 `yaml:"refresh_rps" default:"0.5"`
		RefreshBurst int     `yaml:"refresh_burst" default:"3"`
	} `yaml:"ratelimit"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"signaldesk"`
		} `yaml:"redis"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		SnapshotTTL   time.Duration `yaml:"snapshot_ttl" default:"24h"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"signaldesk.snapshots"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signaldesk"`
		Table            string        `yaml:"table" default:"strategy_history"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Default returns a config populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, then the YAML document, then validates.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("UPSTREAM_MODE"); v != "" {
		c.Upstream.Mode = strings.ToLower(v)
	}
	if v := getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := getenv("WEBHOOK_STRATEGY_URL"); v != "" {
		c.Upstream.Webhook.StrategyURL = v
	}
	if v := getenv("WEBHOOK_REGIME_URL"); v != "" {
		c.Upstream.Webhook.RegimeURL = v
	}
	if v := getenv("WEBHOOK_CURRENT_NEWS_URL"); v != "" {
		c.Upstream.Webhook.CurrentNewsURL = v
	}
	if v := getenv("WEBHOOK_UPCOMING_NEWS_URL"); v != "" {
		c.Upstream.Webhook.UpcomingNewsURL = v
	}
	if v := getenv("WEBHOOK_HEALTH_URL"); v != "" {
		c.Upstream.Webhook.HealthURL = v
	}
	if v := getenv("FREE_PAIRS"); v != "" {
		c.Polling.FreePairs = xutil.SplitCSV(v)
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = xutil.SplitCSV(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
}

// Normalize canonicalizes values that are compared later. Pairs are matched upper-case.
func (c *Config) Normalize() {
	c.Upstream.Mode = strings.ToLower(strings.TrimSpace(c.Upstream.Mode))
	pairs := c.Polling.FreePairs[:0]
	for _, p := range c.Polling.FreePairs {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			pairs = append(pairs, p)
		}
	}
	c.Polling.FreePairs = pairs
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Upstream.Mode != ModeAPI && c.Upstream.Mode != ModeWebhook {
		return fmt.Errorf("upstream.mode must be '%s' or '%s', got '%s'", ModeAPI, ModeWebhook, c.Upstream.Mode)
	}
	if c.Upstream.Mode == ModeAPI && c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required in api mode")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if len(c.Polling.FreePairs) == 0 {
		return fmt.Errorf("polling.free_pairs cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
