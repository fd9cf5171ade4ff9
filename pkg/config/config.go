package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// FxOptions configures the external pair-rate API.
type FxOptions struct {
	APIURL string `yaml:"apiUrl"`
	APIKey string `yaml:"apiKey"`
	// CacheTTLHours bounds the in-memory rate cache freshness.
	CacheTTLHours int `yaml:"cacheTtlHours"`
}

// Config holds the application configuration. Construct via Load; no
// global instance is kept.
type Config struct {
	DBPath          string    `yaml:"dbPath"`
	DefaultCurrency string    `yaml:"defaultCurrency"`
	Fx              FxOptions `yaml:"fx"`
}

// Load reads the configuration from the specified YAML file, then
// applies environment overrides (a .env file is honored when present):
// KASA_DB_PATH and KASA_FX_API_KEY.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyEnv(config)
	return config, nil
}

// LoadOrCreate behaves like Load but writes a default config file first
// if none exists.
func LoadOrCreate(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if dir := filepath.Dir(configPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("error creating config directory: %w", err)
			}
		}

		data, err := yaml.Marshal(defaults())
		if err != nil {
			return nil, fmt.Errorf("error creating default config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return nil, fmt.Errorf("error writing default config: %w", err)
		}
	}

	return Load(configPath)
}

func defaults() *Config {
	return &Config{
		DBPath:          filepath.Join(".", "kasa.db"),
		DefaultCurrency: "RSD",
		Fx: FxOptions{
			APIURL:        "https://v6.exchangerate-api.com/v6",
			CacheTTLHours: 24,
		},
	}
}

func applyEnv(config *Config) {
	// Best effort: a missing .env file is fine.
	_ = godotenv.Load()

	if v := os.Getenv("KASA_DB_PATH"); v != "" {
		config.DBPath = v
	}
	if v := os.Getenv("KASA_FX_API_KEY"); v != "" {
		config.Fx.APIKey = v
	}
}
