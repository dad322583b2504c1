package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment  string             `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	Flow         FlowConfig         `yaml:"flow"`
	Display      DisplayConfig      `yaml:"display"`
	Polygon      PolygonConfig      `yaml:"polygon"`
	Constituents ConstituentsConfig `yaml:"constituents"`
	Cache        CacheConfig        `yaml:"cache"`
	Kafka        KafkaConfig        `yaml:"kafka"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

type RefreshConfig struct {
	Interval time.Duration `yaml:"interval" default:"30m" validate:"min=1s"`
	Workers  int           `yaml:"workers" default:"4" validate:"min=1,max=64"`
}

type FlowConfig struct {
	// empty means the six default GICS sectors
	Sectors  []string `yaml:"sectors" validate:"dive,required"`
	ZeroFill bool     `yaml:"zero_fill"`
}

type DisplayConfig struct {
	Timezone string `yaml:"timezone" default:"US/Eastern" validate:"required"`
}

type PolygonConfig struct {
	APIKey   string        `yaml:"api_key" validate:"required"`
	BaseURL  string        `yaml:"base_url" default:"https://api.polygon.io" validate:"url"`
	Timeout  time.Duration `yaml:"timeout" default:"15s"`
	RPS      float64       `yaml:"rps" default:"0" validate:"gte=0"`
	Burst    int           `yaml:"burst" default:"5" validate:"min=1"`
	Breaker  BreakerConfig `yaml:"breaker"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"168h"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5" validate:"min=1"`
	OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s"`
}

type ConstituentsConfig struct {
	URL       string        `yaml:"url" default:"https://en.wikipedia.org/wiki/List_of_S%26P_500_companies" validate:"url"`
	UserAgent string        `yaml:"user_agent" default:"sectorflow/1.0 (+https://github.com/sectorflow)"`
	Timeout   time.Duration `yaml:"timeout" default:"20s"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"6h"`
}

type CacheConfig struct {
	MemoryMaxSize int         `yaml:"memory_max_size" default:"20000" validate:"min=1"`
	Redis         RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

type KafkaConfig struct {
	Enabled      bool           `yaml:"enabled"`
	Brokers      []string       `yaml:"brokers"`
	Topic        string         `yaml:"topic" default:"sectorflow.flows"`
	AlertsTopic  string         `yaml:"alerts_topic" default:"sectorflow.ops.alerts"`
	RequiredAcks int            `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string         `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     ProducerConfig `yaml:"producer"`
	Alerts       AlertsConfig   `yaml:"alerts"`
}

type ProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"min=1"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type AlertsConfig struct {
	FlushInterval  time.Duration `yaml:"flush_interval" default:"1m"`
	CountThreshold int           `yaml:"count_threshold" default:"20" validate:"min=1"`
}

var validate = validator.New()

// Load reads a YAML file, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with environment overrides applied before validation.
// An empty path loads defaults only.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// parse applies struct defaults first so that explicit zero values in the
// file (false, 0) are kept.
func parse(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("POLYGON_API_KEY"); ok && v != "" {
		c.Polygon.APIKey = v
	}
	if v, ok := lookup("REFRESH_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REFRESH_INTERVAL: %w", err)
		}
		c.Refresh.Interval = d
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks struct rules and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			msgs := make([]string, 0, len(ves))
			for _, fe := range ves {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers: at least one broker is required when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}
	return nil
}
