package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Fanout     FanoutConfig     `mapstructure:"fanout"     validate:"required"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// TaskConfig contains settings for the background job pipeline.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}

// FanoutConfig contains settings for the fan-out coordinator.
type FanoutConfig struct {
	// MaxInFlight bounds how many clone operations a single fan-out event may
	// run concurrently, protecting the storage layer from saturation.
	MaxInFlight int `mapstructure:"max_in_flight" validate:"required,gt=0"`
}

// EnrichmentConfig contains settings for the page-metadata extraction client.
type EnrichmentConfig struct {
	BaseURL        string `mapstructure:"base_url"        validate:"required,url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}
