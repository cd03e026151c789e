package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Study    StudyConfig    `mapstructure:"study" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile switches log output from stdout to a rotated file.
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups int    `mapstructure:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" validate:"gte=0"`
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL        string `mapstructure:"url" validate:"required_if=Driver postgres,omitempty,url"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
}

// RedisConfig enables the Redis-backed daily progress counters.
// When disabled, progress is kept in the SQL database.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// StudyConfig holds the scheduling limits applied to study sessions.
type StudyConfig struct {
	// NewCardsPerDay caps how many new cards a user may learn per calendar day.
	NewCardsPerDay int `mapstructure:"new_cards_per_day" validate:"gte=0"`

	// NewCardsPerSession bounds how many new cards are queued when a session
	// starts. Zero means the same as NewCardsPerDay.
	NewCardsPerSession int `mapstructure:"new_cards_per_session" validate:"gte=0"`

	MaxIntervalDays int `mapstructure:"max_interval_days" validate:"gt=0"`

	// SessionIdleMinutes expires live sessions without activity for this long.
	// Zero keeps sessions until they finish.
	SessionIdleMinutes int `mapstructure:"session_idle_minutes" validate:"gte=0"`
}

// SessionNewCardLimit returns the number of new cards queued per session.
func (c StudyConfig) SessionNewCardLimit() int {
	if c.NewCardsPerSession == 0 {
		return c.NewCardsPerDay
	}
	return c.NewCardsPerSession
}

// LLMConfig contains the document-extraction generator settings.
// Extraction is disabled when GeminiAPIKey is empty.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name" validate:"required"`

	// PromptTemplatePath overrides the built-in extraction prompt.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`

	// MaxRetries is the number of retries after a transient API failure.
	MaxRetries        int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
}

// Enabled reports whether document extraction can be offered.
func (c LLMConfig) Enabled() bool {
	return c.GeminiAPIKey != ""
}

// TaskConfig sizes the background worker pool.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
}
