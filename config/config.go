package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"walletd/ledger"
)

// Config is the walletd daemon configuration.
type Config struct {
	ListenAddress string       `toml:"ListenAddress"`
	DataDir       string       `toml:"DataDir"`
	LogFile       string       `toml:"LogFile"`
	Service       string       `toml:"Service"`
	Env           string       `toml:"Env"`
	Assets        []string     `toml:"Assets"`
	Import        ImportConfig `toml:"import"`
}

// ImportConfig drives the optional bulk import run against the legacy
// relational source.
type ImportConfig struct {
	DSN string `toml:"DSN"`
	// Since/Until bound the transfer rows by their created_at column,
	// "2006-01-02 15:04:05" in the source's timezone.
	Since string `toml:"Since"`
	Until string `toml:"Until"`
	// AirDropAsset and AirDropGasAsset name the assets the historical grant
	// table fans out into.
	AirDropAsset    string `toml:"AirDropAsset"`
	AirDropGasAsset string `toml:"AirDropGasAsset"`
}

// Load loads the configuration from the given path, creating a default file
// on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./walletd-data"
	}
	if strings.TrimSpace(c.Service) == "" {
		c.Service = "walletd"
	}
	if len(c.Assets) == 0 {
		c.Assets = append([]string(nil), ledger.DefaultAssets...)
	}
}

// Validate checks the asset list against the registry constraints so a bad
// config fails at startup, not mid-operation.
func (c *Config) Validate() error {
	if _, err := ledger.NewRegistry(c.Assets); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
