package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the tracker. Values load from a yaml file
// and may be overridden through environment variables.
type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	Bitget struct {
		WSURL   string `yaml:"ws_url"`
		RestURL string `yaml:"rest_url"`
		Symbol  string `yaml:"symbol"`
		Depth   int    `yaml:"depth"` // REST snapshot depth limit
	} `yaml:"bitget"`

	Book struct {
		TopN   int `yaml:"top_n"`
		LevelK int `yaml:"level_k"` // support/resistance count
	} `yaml:"book"`

	Intervals struct {
		TickerPollMS    int `yaml:"ticker_poll_ms"`
		AggregateMS     int `yaml:"aggregate_ms"`
		AggregateIdleMS int `yaml:"aggregate_idle_max_ms"` // extra idle delay cap
		BackoffBaseMS   int `yaml:"backoff_base_ms"`
		BackoffMaxMS    int `yaml:"backoff_max_ms"`
		RequestTimeoutS int `yaml:"request_timeout_s"`
	} `yaml:"intervals"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is given.
// Defaults mirror the public Bitget spot endpoints.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "bookwatch"
	cfg.Bitget.WSURL = "wss://ws.bitget.com/v2/ws/public"
	cfg.Bitget.RestURL = "https://api.bitget.com"
	cfg.Bitget.Symbol = "BTCUSDT"
	cfg.Bitget.Depth = 150
	cfg.Book.TopN = 5
	cfg.Book.LevelK = 3
	cfg.Intervals.TickerPollMS = 600
	cfg.Intervals.AggregateMS = 500
	cfg.Intervals.AggregateIdleMS = 1500
	cfg.Intervals.BackoffBaseMS = 1000
	cfg.Intervals.BackoffMaxMS = 10000
	cfg.Intervals.RequestTimeoutS = 6
	cfg.Server.Addr = "localhost:8089"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and validates the yaml config at path. Missing fields
// keep their defaults; environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Bitget.WSURL, "ws://") && !strings.HasPrefix(c.Bitget.WSURL, "wss://") {
		return fmt.Errorf("invalid WS URL: %s", c.Bitget.WSURL)
	}
	if !strings.HasPrefix(c.Bitget.RestURL, "http://") && !strings.HasPrefix(c.Bitget.RestURL, "https://") {
		return fmt.Errorf("invalid REST URL: %s", c.Bitget.RestURL)
	}
	if c.Bitget.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Book.TopN <= 0 {
		return fmt.Errorf("top_n must be positive")
	}
	if c.Book.LevelK <= 0 {
		return fmt.Errorf("level_k must be positive")
	}
	if c.Intervals.TickerPollMS <= 0 || c.Intervals.AggregateMS <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}

// overrideWithEnv applies environment overrides. Env vars win over the
// config file so deployments can retarget without editing it.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("BOOKWATCH_SYMBOL"); v != "" {
		cfg.Bitget.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("BOOKWATCH_WS_URL"); v != "" {
		cfg.Bitget.WSURL = v
	}
	if v := os.Getenv("BOOKWATCH_REST_URL"); v != "" {
		cfg.Bitget.RestURL = v
	}
	if v := os.Getenv("BOOKWATCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BOOKWATCH_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Book.TopN = n
		}
	}
	if v := os.Getenv("BOOKWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
