package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	SourceAlphaVantage = "alphavantage"
	SourceYahoo        = "yahoo"
)

// Default values for the configuration.
const (
	DefaultSource         = SourceAlphaVantage
	DefaultKeyEnv         = "ALPHAVANTAGE_API_KEY"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRiskFreeRate   = 0.01
	DefaultFetchWorkers   = 4
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultSymbols        = "NVDA, GOOG, AMZN"
	DefaultStartDate      = "2022-01-01"
	DefaultLogLevel       = "info"
	DefaultAllowedOrigin  = "http://localhost:3000"
)

// environment overrides
const (
	envSource  = "STOCKDASH_SOURCE"
	envAddr    = "STOCKDASH_ADDR"
	envOrigins = "STOCKDASH_ALLOWED_ORIGINS"
)

type Config struct {
	// Source is one of: alphavantage | yahoo.
	Source string `yaml:"source"`

	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage"`
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Server       ServerConfig       `yaml:"server"`

	// LogLevel is any level logrus can parse.
	LogLevel string `yaml:"log_level"`
}

type AlphaVantageConfig struct {
	// KeyEnv names the environment variable holding the api key.
	KeyEnv  string        `yaml:"key_env"`
	Timeout time.Duration `yaml:"timeout"`
}

// Key returns the api key resolved from the environment.
func (a AlphaVantageConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

type AnalysisConfig struct {
	// RiskFreeRate is per period, the same unit as the daily returns.
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
	FetchWorkers   int     `yaml:"fetch_workers"`
	DefaultSymbols string  `yaml:"default_symbols"`
	DefaultStart   string  `yaml:"default_start"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// AllowedOrigins are the browser origins allowed to call the api, empty turns CORS off.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the optional config file at path, then applies environment overrides.
// An empty path skips the file and uses the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads .env style files into the environment, files that do not exist are skipped.
// Variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error loading environment from %s: %w", p, err)
		}
	}
	return nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Source: DefaultSource,
		AlphaVantage: AlphaVantageConfig{
			KeyEnv:  DefaultKeyEnv,
			Timeout: DefaultRequestTimeout,
		},
		Analysis: AnalysisConfig{
			RiskFreeRate:   DefaultRiskFreeRate,
			FetchWorkers:   DefaultFetchWorkers,
			DefaultSymbols: DefaultSymbols,
			DefaultStart:   DefaultStartDate,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			AllowedOrigins: []string{DefaultAllowedOrigin},
		},
		LogLevel: DefaultLogLevel,
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envSource)); v != "" {
		c.Source = v
	}
	if v := strings.TrimSpace(os.Getenv(envAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(envOrigins)); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	c.Source = strings.ToLower(c.Source)
}

func splitList(v string) []string {
	res := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceAlphaVantage, SourceYahoo:
	default:
		return fmt.Errorf("source %q unknown: want %s|%s", c.Source, SourceAlphaVantage, SourceYahoo)
	}
	if c.Source == SourceAlphaVantage && c.AlphaVantage.KeyEnv == "" {
		return fmt.Errorf("alpha_vantage.key_env is required for the %s source", SourceAlphaVantage)
	}
	if c.AlphaVantage.Timeout < 0 {
		return fmt.Errorf("alpha_vantage.timeout must not be negative")
	}
	if c.Analysis.FetchWorkers <= 0 {
		return fmt.Errorf("analysis.fetch_workers %d must be positive", c.Analysis.FetchWorkers)
	}
	if _, err := time.Parse(time.DateOnly, c.Analysis.DefaultStart); err != nil {
		return fmt.Errorf("analysis.default_start %q is not a YYYY-MM-DD date", c.Analysis.DefaultStart)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	for _, origin := range c.Server.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("server.allowed_origins must not contain blank entries")
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// NewLogger builds the process logger from the configured level.
func (c *Config) NewLogger() *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
