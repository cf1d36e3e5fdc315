package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const configFileName = "romvault"

// Config holds the configuration options for the transfer engine.
type Config struct {
	LibraryDir string         `yaml:"libraryDir,omitempty"`
	DataDir    string         `yaml:"dataDir,omitempty"`
	Catalog    *CatalogConfig `yaml:"catalog,omitempty"`
	Health     *HealthConfig  `yaml:"health,omitempty"`
}

// CatalogConfig holds configuration options for the remote content catalog.
type CatalogConfig struct {
	BaseURL  string        `yaml:"baseUrl,omitempty"`
	Username string        `yaml:"username,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// HealthConfig holds configuration options for connection health probing.
type HealthConfig struct {
	ProbeTimeout time.Duration `yaml:"probeTimeout,omitempty"`
	StatusTTL    time.Duration `yaml:"statusTtl,omitempty"`
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func GetConfig() (*Config, error) {
	configFilePath := filepath.Join(xdg.ConfigHome, configFileName)
	defaults := DefaultConfig()

	b, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	catalogCfg := zeroOr(cfg.Catalog, defaults.Catalog)
	healthCfg := zeroOr(cfg.Health, defaults.Health)

	return &Config{
		LibraryDir: zeroOr(cfg.LibraryDir, defaults.LibraryDir),
		DataDir:    zeroOr(cfg.DataDir, defaults.DataDir),
		Catalog: &CatalogConfig{
			BaseURL:  zeroOr(catalogCfg.BaseURL, defaults.Catalog.BaseURL),
			Username: zeroOr(catalogCfg.Username, defaults.Catalog.Username),
			Timeout:  zeroOr(catalogCfg.Timeout, defaults.Catalog.Timeout),
		},
		Health: &HealthConfig{
			ProbeTimeout: zeroOr(healthCfg.ProbeTimeout, defaults.Health.ProbeTimeout),
			StatusTTL:    zeroOr(healthCfg.StatusTTL, defaults.Health.StatusTTL),
		},
	}, nil
}

func DefaultConfig() Config {
	return Config{
		LibraryDir: libraryDir,
		DataDir:    dataDir,
		Catalog: &CatalogConfig{
			Timeout: catalogTimeout,
		},
		Health: &HealthConfig{
			ProbeTimeout: probeTimeout,
			StatusTTL:    statusTTL,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
