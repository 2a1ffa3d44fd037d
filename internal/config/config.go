package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/telemetry"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIURL     string        `mapstructure:"API_URL"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT"`
	PageSize   int           `mapstructure:"PAGE_SIZE"`
	Timezone   string        `mapstructure:"TIMEZONE"`

	SessionStore  string        `mapstructure:"SESSION_STORE"`
	SessionFile   string        `mapstructure:"SESSION_FILE"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`

	HTTPAddr       string   `mapstructure:"HTTP_ADDR"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
	RabbitMQURL    string   `mapstructure:"RABBITMQ_URL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	OTelEnabled         bool          `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint        string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName     string        `mapstructure:"OTEL_SERVICE_NAME"`
	OTelTracesSampler   string        `mapstructure:"OTEL_TRACES_SAMPLER"`
	OTelMetricsInterval time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
	Environment         string        `mapstructure:"ENVIRONMENT"`
}

var keys = []string{
	"API_URL", "API_TIMEOUT", "PAGE_SIZE", "TIMEZONE",
	"SESSION_STORE", "SESSION_FILE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
	"HTTP_ADDR", "ALLOWED_ORIGINS", "RABBITMQ_URL",
	"LOG_LEVEL", "LOG_FORMAT",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER",
	"OTEL_METRICS_EXPORT_INTERVAL", "ENVIRONMENT",
}

// Load reads .env from the working directory, if present, then the
// environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an
// error; environment variables win over the file.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("API_URL", "http://localhost:3000")
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("PAGE_SIZE", 20)
	v.SetDefault("TIMEZONE", "America/Bogota")
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "lab-portal")
	v.SetDefault("OTEL_TRACES_SAMPLER", "always_on")
	v.SetDefault("OTEL_METRICS_EXPORT_INTERVAL", "30s")
	v.SetDefault("ENVIRONMENT", "production")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading the dotenv file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	if cfg.SessionFile == "" {
		cfg.SessionFile = DefaultSessionFile()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSessionFile is the session document under the user config dir.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "labportal", "session.yaml")
}

// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if !slices.Contains([]string{StoreFile, StoreRedis, StoreMemory}, c.SessionStore) {
		return fmt.Errorf("SESSION_STORE must be %q, %q or %q, got %q", StoreFile, StoreRedis, StoreMemory, c.SessionStore)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.LogFormat)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is not a known zone: %w", err)
	}
	return nil
}

// Location returns the zone order dates are shown in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Telemetry returns the OpenTelemetry settings.
func (c *Config) Telemetry() telemetry.Config {
	t := telemetry.DefaultConfig()
	t.Enabled = c.OTelEnabled
	t.OTLPEndpoint = c.OTelEndpoint
	t.ServiceName = c.OTelServiceName
	t.TracesSampler = c.OTelTracesSampler
	t.MetricsInterval = c.OTelMetricsInterval
	t.Environment = c.Environment
	return t
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
