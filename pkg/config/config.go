package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ShapeFinder/pkg/logger"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// RateLimit is requests per second per client on the match endpoint.
		RateLimit float64 `yaml:"rate_limit" default:"5"`
		RateBurst int     `yaml:"rate_burst" default:"10"`
		CORS      bool    `yaml:"cors"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Matching Matching `yaml:"matching"`
	Storage  struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory clickhouse postgres"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		InsertBatch      int           `yaml:"insert_batch" default:"5000" validate:"gt=0"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns" default:"10" validate:"gt=0"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"24h"`
		// Queue drives asynchronous match jobs; it needs Redis.
		Queue struct {
			Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
			RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		TopicRequests string   `yaml:"topic_requests" default:"match.requests"`
		TopicReports  string   `yaml:"topic_reports" default:"match.reports"`
		RequiredAcks  int      `yaml:"required_acks" default:"1"`
		Compression   string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Consumer      struct {
			GroupID    string        `yaml:"group_id" default:"shapefinder"`
			Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Matching controls the analytic pipeline.
type Matching struct {
	Period          int           `yaml:"period" default:"12" validate:"gte=2"`
	NeighborCount   int           `yaml:"neighbor_count" default:"5" validate:"gt=0"`
	DateThreshold   float64       `yaml:"date_threshold" default:"0.9" validate:"gt=0,lte=1"`
	DistanceMode    string        `yaml:"distance_mode" default:"auto" validate:"oneof=exact approx auto"`
	ApproxThreshold int           `yaml:"approx_threshold" default:"1024" validate:"gt=0"`
	Radius          int           `yaml:"radius" default:"1" validate:"gte=0"`
	Workers         int           `yaml:"workers" validate:"gte=0"` // 0 means GOMAXPROCS
	Timeout         time.Duration `yaml:"timeout" default:"30s"`
}

var validate = validator.New()

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
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

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SHAPEFINDER_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Storage.Backend == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required for the postgres backend")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
