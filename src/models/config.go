package models

// MConfig Structure
type MConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	LogLevel       string            `yaml:"log_level"`
	CandleCache    MTierConfig       `yaml:"candle_cache"`
	IndicatorCache MTierConfig       `yaml:"indicator_cache"`
	Storage        MStorageConfig    `yaml:"storage"`
	Network        MNetworkConfig    `yaml:"network"`
	DataSource     MDataSourceConfig `yaml:"data_source"`
}

// MTierConfig bounds one in-memory cache tier. A zero MemoryBudgetBytes means
// "derive from system RAM" (see helpers.GetRecommendedMemoryLimit).
type MTierConfig struct {
	MaxEntries        int   `yaml:"max_entries"`
	TTLMillis         int64 `yaml:"ttl_millis"`
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes"`
}

type MStorageConfig struct {
	DBType                 string `yaml:"db_type"`
	DBPath                 string `yaml:"db_path"`
	DBConnectionString     string `yaml:"db_connection_string"`
	TTLMinutes             int    `yaml:"ttl_minutes"`
	CleanupIntervalMinutes int    `yaml:"cleanup_interval_minutes"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Symbols      []string `yaml:"symbols"`
	DefaultRange string   `yaml:"default_range"`
}
