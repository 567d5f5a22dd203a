package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"RiskScore/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
		BodyLimit       string        `yaml:"body_limit" default:"4M"`
		CORS            struct {
			AllowOrigins []string `yaml:"allow_origins" default:"[\"*\"]"`
		} `yaml:"cors"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Model struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"model"`
	Artifacts struct {
		Path string `yaml:"path" default:"config/artifacts.yaml"`
	} `yaml:"artifacts"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled"`
		Capacity     float64 `yaml:"capacity" default:"50"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"25"`
	} `yaml:"rate_limit"`
	Cursor struct {
		MaxSessions int    `yaml:"max_sessions" default:"100"`
		Store       string `yaml:"store" default:"memory"`
	} `yaml:"cursor"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		TTL        time.Duration `yaml:"ttl" default:"5m"`
		MaxEntries int           `yaml:"max_entries" default:"10000"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"riskscore"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Audit struct {
		BufferSize    int           `yaml:"buffer_size" default:"1024"`
		BatchSize     int           `yaml:"batch_size" default:"100"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"1s"`
		MaxRetries    int           `yaml:"max_retries" default:"3"`
		MaxPerSecond  int           `yaml:"max_per_second"`
	} `yaml:"audit"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		VerdictTopic string   `yaml:"verdict_topic" default:"riskscore.verdicts"`
		CursorTopic  string   `yaml:"cursor_topic" default:"riskscore.cursor-events"`
		LogTopic     string   `yaml:"log_topic" default:"riskscore.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled     bool          `yaml:"enabled"`
			GroupID     string        `yaml:"group_id" default:"riskscore"`
			StartOffset string        `yaml:"start_offset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"2"`
			BufferSize  int           `yaml:"buffer_size" default:"64"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"riskscore"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

const (
	StoreMemory     = "memory"
	StoreClickHouse = "clickhouse"
)

// Load reads a YAML configuration file and fills unset fields from the
// default tags.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML content and applies defaults.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and
// validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read via lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	if v := get("RISK_ENV"); v != "" {
		c.Environment = v
	}
	if v := get("RISK_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := get("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := get("ARTIFACT_PATH"); v != "" {
		c.Artifacts.Path = v
	}
	if v := get("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := get("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := get("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Artifacts.Path == "" {
		return fmt.Errorf("artifacts.path is required")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Cursor.MaxSessions <= 0 {
		return fmt.Errorf("cursor.max_sessions must be positive")
	}
	switch c.Cursor.Store {
	case StoreMemory:
	case StoreClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when cursor.store is clickhouse")
		}
	default:
		return fmt.Errorf("cursor.store must be %q or %q, got %q", StoreMemory, StoreClickHouse, c.Cursor.Store)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.VerdictTopic == "" {
			return fmt.Errorf("kafka.verdict_topic is required when kafka is enabled")
		}
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer requires kafka.enabled")
	}
	if c.Logging.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collector requires kafka.enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity < 1 || c.RateLimit.RefillPerSec <= 0) {
		return fmt.Errorf("rate_limit needs capacity >= 1 and refill_per_sec > 0")
	}
	return nil
}
