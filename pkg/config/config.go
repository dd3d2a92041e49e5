package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		AuditTopic   string   `yaml:"audit_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Predictors struct {
		Timeout       time.Duration `yaml:"timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Endpoints     []Predictor   `yaml:"endpoints"`
	} `yaml:"predictors"`
	Benchmark struct {
		Symbol          string  `yaml:"symbol"`
		Rounds          int     `yaml:"rounds"`
		Seed            uint32  `yaml:"seed"`
		ArenaSize       int     `yaml:"arena_size"`
		StabilityWindow int     `yaml:"stability_window"`
		SanityLossBound float64 `yaml:"sanity_loss_bound"`
		QualifyPct      float64 `yaml:"qualify_pct"`
		RegretLimit     float64 `yaml:"regret_limit"`
		EarlyRounds     int     `yaml:"early_rounds"`
	} `yaml:"benchmark"`
	Sampler struct {
		Target          int           `yaml:"target"`
		MaxDistance     float64       `yaml:"max_distance"`
		MinSeparation   time.Duration `yaml:"min_separation"`
		MinPositiveFrac float64       `yaml:"min_positive_frac"`
		MaxPositiveFrac float64       `yaml:"max_positive_frac"`
		MinMinority     int           `yaml:"min_minority"`
	} `yaml:"sampler"`
}

// Predictor names one external model endpoint taking part in benchmarks.
type Predictor struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_AUDIT_TOPIC"); v != "" {
		c.Kafka.AuditTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	c.Redis.DB = util.ParseIntDefault(os.Getenv("REDIS_DB"), c.Redis.DB)
	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if len(c.Predictors.Endpoints) == 0 {
		return fmt.Errorf("predictors.endpoints cannot be empty")
	}
	seen := make(map[string]bool, len(c.Predictors.Endpoints))
	for _, p := range c.Predictors.Endpoints {
		if p.ID == "" || p.URL == "" {
			return fmt.Errorf("predictor endpoints need both id and url")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate predictor id %q", p.ID)
		}
		seen[p.ID] = true
	}
	if c.Stream.Enabled {
		if c.Stream.APIKey == "" {
			return fmt.Errorf("stream.api_key is required when the stream is enabled")
		}
		if len(c.Stream.Symbols) == 0 {
			return fmt.Errorf("stream.symbols cannot be empty when the stream is enabled")
		}
	}
	// Horizon geometry is fixed at compile time but stays cheap to verify.
	if err := domrepo.ValidateHorizonConfigs(); err != nil {
		return err
	}
	return nil
}
