package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"commander_go/internal/domain"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one remote endpoint
type SourceConfig struct {
	URL           string `yaml:"url"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MinIntervalMS int    `yaml:"min_interval_ms"`
}

func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

func (s SourceConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMS) * time.Millisecond
}

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Sources struct {
		LigaMagic struct {
			SourceConfig `yaml:",inline"`
			Render       struct {
				Enabled    bool   `yaml:"enabled"`
				TimeoutSec int    `yaml:"timeout_sec"`
				ChromePath string `yaml:"chrome_path"`
			} `yaml:"render"`
		} `yaml:"ligamagic"`
		Scryfall     SourceConfig `yaml:"scryfall"`
		ExchangeRate struct {
			SourceConfig `yaml:",inline"`
			Base         string `yaml:"base"`
			Target       string `yaml:"target"`
		} `yaml:"exchange_rate"`
		EDHREC SourceConfig `yaml:"edhrec"`
	} `yaml:"sources"`

	CardDB struct {
		Path string `yaml:"path"`
	} `yaml:"carddb"`

	Batch struct {
		PollIntervalMS int `yaml:"poll_interval_ms"`
	} `yaml:"batch"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "commander-go"
	cfg.App.Version = "1.0.0"

	cfg.Sources.LigaMagic.URL = "https://www.ligamagic.com.br/"
	cfg.Sources.LigaMagic.TimeoutSec = 15
	cfg.Sources.LigaMagic.MinIntervalMS = 1500
	cfg.Sources.LigaMagic.Render.Enabled = false
	cfg.Sources.LigaMagic.Render.TimeoutSec = 10

	cfg.Sources.Scryfall.URL = "https://api.scryfall.com"
	cfg.Sources.Scryfall.TimeoutSec = 5
	cfg.Sources.Scryfall.MinIntervalMS = 100

	cfg.Sources.ExchangeRate.URL = "https://api.exchangerate-api.com/v4/latest/USD"
	cfg.Sources.ExchangeRate.TimeoutSec = 5
	cfg.Sources.ExchangeRate.Base = domain.CurrencyUSD
	cfg.Sources.ExchangeRate.Target = domain.CurrencyBRL

	cfg.Sources.EDHREC.URL = "https://json.edhrec.com/pages/commanders"
	cfg.Sources.EDHREC.TimeoutSec = 10

	cfg.CardDB.Path = filepath.Join("data", "AllPrintings.json")
	cfg.Batch.PollIntervalMS = 100
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file yields DefaultConfig; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, &domain.ConfigError{Field: path, Err: err}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	// 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	if cfg.App.DataDir == "" {
		cfg.App.DataDir = GetWorkspaceDir()
	}

	// 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	sources := map[string]SourceConfig{
		"sources.ligamagic":     c.Sources.LigaMagic.SourceConfig,
		"sources.scryfall":      c.Sources.Scryfall,
		"sources.exchange_rate": c.Sources.ExchangeRate.SourceConfig,
		"sources.edhrec":        c.Sources.EDHREC,
	}
	for field, src := range sources {
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return &domain.ConfigError{Field: field + ".url", Err: fmt.Errorf("invalid URL: %q", src.URL)}
		}
		if src.TimeoutSec <= 0 {
			return &domain.ConfigError{Field: field + ".timeout_sec", Err: errors.New("must be positive")}
		}
		if src.MinIntervalMS < 0 {
			return &domain.ConfigError{Field: field + ".min_interval_ms", Err: errors.New("must not be negative")}
		}
	}

	if c.Sources.ExchangeRate.Base == "" || c.Sources.ExchangeRate.Target == "" {
		return &domain.ConfigError{Field: "sources.exchange_rate", Err: errors.New("base and target currencies are required")}
	}
	if c.Sources.LigaMagic.Render.Enabled && c.Sources.LigaMagic.Render.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "sources.ligamagic.render.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.Batch.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "batch.poll_interval_ms", Err: errors.New("must be positive")}
	}

	return nil
}

// PollInterval is the cadence at which callers drain batch events
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Batch.PollIntervalMS) * time.Millisecond
}

// CacheDir is where the per-source price caches live
func (c *Config) CacheDir() string {
	return filepath.Join(c.App.DataDir, "cache")
}

// DBPath is the settings/collection database file
func (c *Config) DBPath() string {
	return filepath.Join(c.App.DataDir, "data", "commander.db")
}

// ImageDir is where card thumbnails are stored
func (c *Config) ImageDir() string {
	return filepath.Join(c.App.DataDir, "images")
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if dir := os.Getenv("CDC_DATA_DIR"); dir != "" {
		cfg.App.DataDir = dir
	}
	if level := os.Getenv("CDC_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if path := os.Getenv("CDC_CARDDB_PATH"); path != "" {
		cfg.CardDB.Path = path
	}
	if addr := os.Getenv("CDC_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if raw := os.Getenv("CDC_RENDER_ENABLED"); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			cfg.Sources.LigaMagic.Render.Enabled = enabled
		}
	}
	if path := os.Getenv("CDC_CHROME_PATH"); path != "" {
		cfg.Sources.LigaMagic.Render.ChromePath = path
	}
}
