package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bitget.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", cfg.Bitget.Symbol)
	}
	if cfg.Book.TopN != 5 || cfg.Book.LevelK != 3 {
		t.Errorf("top_n=%d level_k=%d, want 5/3", cfg.Book.TopN, cfg.Book.LevelK)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("bitget:\n  symbol: ETHUSDT\nbook:\n  top_n: 10\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bitget.Symbol != "ETHUSDT" {
		t.Errorf("symbol = %q, want ETHUSDT", cfg.Bitget.Symbol)
	}
	if cfg.Book.TopN != 10 {
		t.Errorf("top_n = %d, want 10", cfg.Book.TopN)
	}
	// Untouched fields keep defaults.
	if cfg.Bitget.Depth != 150 {
		t.Errorf("depth = %d, want default 150", cfg.Bitget.Depth)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("BOOKWATCH_SYMBOL", "solusdt")
	t.Setenv("BOOKWATCH_TOP_N", "7")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bitget.Symbol != "SOLUSDT" {
		t.Errorf("symbol = %q, want SOLUSDT (env wins, uppercased)", cfg.Bitget.Symbol)
	}
	if cfg.Book.TopN != 7 {
		t.Errorf("top_n = %d, want 7", cfg.Book.TopN)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ws url", func(c *Config) { c.Bitget.WSURL = "ftp://nope" }},
		{"bad rest url", func(c *Config) { c.Bitget.RestURL = "nope" }},
		{"empty symbol", func(c *Config) { c.Bitget.Symbol = "" }},
		{"zero top_n", func(c *Config) { c.Book.TopN = 0 }},
		{"zero level_k", func(c *Config) { c.Book.LevelK = 0 }},
		{"zero poll interval", func(c *Config) { c.Intervals.TickerPollMS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
