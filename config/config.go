// Package config reads the YAML configuration of the tl binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/tradeledger"
	"gopkg.in/yaml.v3"
)

// EnvPath is the environment variable holding the configuration file path.
const EnvPath = "TL_CONFIG"

// Config is the complete configuration.
type Config struct {
	Markets []MarketConfig `yaml:"markets"`
	Storage StorageConfig  `yaml:"storage"`
	Import  ImportConfig   `yaml:"import"`
	Log     LogConfig      `yaml:"log"`
	Server  ServerConfig   `yaml:"server"`
}

// MarketConfig declares a market.
type MarketConfig struct {
	Code             string `yaml:"code"`
	Currency         string `yaml:"currency"`
	UppercaseSymbols bool   `yaml:"uppercase_symbols,omitempty"`
	Domestic         bool   `yaml:"domestic,omitempty"`
}

// StorageConfig says where the ledger document lives.
type StorageConfig struct {
	Path      string `yaml:"path"`                 // SQLite database file
	Key       string `yaml:"key"`                  // key of the document
	BackupDir string `yaml:"backup_dir,omitempty"` // file backups, optional
	BackupURL string `yaml:"backup_url,omitempty"` // PostgreSQL backups, optional
}

// ImportConfig holds bulk import defaults.
type ImportConfig struct {
	DefaultTime string `yaml:"default_time"` // HH:MM:SS
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// ServerConfig holds the HTTP server options.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when there is no file: the KR and
// US markets, and a ledger in the user's data directory.
func Default() *Config {
	dir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".tradeledger")
	}
	return &Config{
		Markets: []MarketConfig{
			{Code: "KR", Currency: "KRW", Domestic: true},
			{Code: "US", Currency: "USD", UppercaseSymbols: true},
		},
		Storage: StorageConfig{Path: filepath.Join(dir, "ledger.db"), Key: "ledger"},
		Import:  ImportConfig{DefaultTime: tradeledger.DefaultImportTime},
		Log:     LogConfig{Level: "info"},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Load reads the configuration from path, or from $TL_CONFIG when path is
// empty. Without any, the Default configuration is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// LoadFromFile reads a YAML configuration file. Missing sections keep their
// default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.MarketRegistry(); err != nil {
		errs = append(errs, fmt.Errorf("markets: %w", err))
	}
	if len(c.Markets) == 0 {
		errs = append(errs, errors.New("markets: at least one market is required"))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, errors.New("storage.key is required"))
	}
	if c.Import.DefaultTime != "" {
		if _, err := tradeledger.ParseTimestamp("2000-01-01", c.Import.DefaultTime); err != nil || len(c.Import.DefaultTime) != len("15:04:05") {
			errs = append(errs, fmt.Errorf("import.default_time %q must be HH:MM:SS", c.Import.DefaultTime))
		}
	}
	return errors.Join(errs...)
}

// MarketRegistry returns the configured markets.
func (c *Config) MarketRegistry() (*tradeledger.Markets, error) {
	markets := make([]tradeledger.Market, 0, len(c.Markets))
	for _, m := range c.Markets {
		markets = append(markets, tradeledger.Market{
			Code:             m.Code,
			Currency:         m.Currency,
			UppercaseSymbols: m.UppercaseSymbols,
			Domestic:         m.Domestic,
		})
	}
	return tradeledger.NewMarkets(markets...)
}
