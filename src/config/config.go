package config

import (
	"fmt"
	"os"

	"market-cache/src/helpers"
	"market-cache/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied by ApplyDefaults for fields left at zero. The indicator
// tier is larger and lives longer than the candle tier because indicator
// results are more expensive to recompute than candles are to re-fetch.
const (
	defaultCandleMaxEntries    = 50
	defaultCandleTTLMillis     = 60_000
	defaultIndicatorMaxEntries = 200
	defaultIndicatorTTLMillis  = 600_000
	defaultStorageTTLMinutes   = 30
	defaultCleanupMinutes      = 5

	// Memory budget split when derived from system RAM: the candle tier gets
	// a tenth of the indicator tier's share.
	budgetFractionOfRAM = 0.05
)

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero-valued tier and storage fields. Memory budgets
// left at zero are derived from system RAM.
func (c *Config) ApplyDefaults() {
	if c.CandleCache.MaxEntries == 0 {
		c.CandleCache.MaxEntries = defaultCandleMaxEntries
	}
	if c.CandleCache.TTLMillis == 0 {
		c.CandleCache.TTLMillis = defaultCandleTTLMillis
	}
	if c.IndicatorCache.MaxEntries == 0 {
		c.IndicatorCache.MaxEntries = defaultIndicatorMaxEntries
	}
	if c.IndicatorCache.TTLMillis == 0 {
		c.IndicatorCache.TTLMillis = defaultIndicatorTTLMillis
	}
	if c.Storage.TTLMinutes == 0 {
		c.Storage.TTLMinutes = defaultStorageTTLMinutes
	}
	if c.Storage.CleanupIntervalMinutes == 0 {
		c.Storage.CleanupIntervalMinutes = defaultCleanupMinutes
	}

	if c.IndicatorCache.MemoryBudgetBytes == 0 || c.CandleCache.MemoryBudgetBytes == 0 {
		limitMB := helpers.GetRecommendedMemoryLimit()
		share := int64(float64(limitMB) * budgetFractionOfRAM * 1024 * 1024)
		if c.IndicatorCache.MemoryBudgetBytes == 0 {
			c.IndicatorCache.MemoryBudgetBytes = share
		}
		if c.CandleCache.MemoryBudgetBytes == 0 {
			c.CandleCache.MemoryBudgetBytes = share / 10
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate tier configuration
	if err := validateTier("candle_cache", c.CandleCache); err != nil {
		return err
	}
	if err := validateTier("indicator_cache", c.IndicatorCache); err != nil {
		return err
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}
	if c.Storage.TTLMinutes <= 0 {
		return fmt.Errorf("storage ttl must be greater than 0")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

func validateTier(name string, tier models.MTierConfig) error {
	if tier.MaxEntries <= 0 {
		return fmt.Errorf("%s: max_entries must be greater than 0", name)
	}
	if tier.TTLMillis <= 0 {
		return fmt.Errorf("%s: ttl_millis must be greater than 0", name)
	}
	if tier.MemoryBudgetBytes <= 0 {
		return fmt.Errorf("%s: memory_budget_bytes must be greater than 0", name)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
