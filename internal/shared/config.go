package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Cache     CacheConfig     `toml:"cache"`
	Database  DatabaseConfig  `toml:"database"`
	Core      CoreConfig      `toml:"core"`
	Source    SourceConfig    `toml:"source"`
	Directory DirectoryConfig `toml:"directory"`
	Auth      AuthConfig      `toml:"auth"`
	Ingest    IngestConfig    `toml:"ingest"`
	Logging   LoggingConfig   `toml:"logging"`
}

// CacheConfig locates the on-disk document cache and the error artifact directory.
type CacheConfig struct {
	Dir       string `toml:"dir"`
	ErrorsDir string `toml:"errors_dir"`
}

// DatabaseConfig contains local mapping database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CoreConfig contains the relational Core database settings.
type CoreConfig struct {
	Driver       string        `toml:"driver"`
	DSN          string        `toml:"dsn"`
	MaxOpenConns int           `toml:"max_open_conns"`
	MaxIdleConns int           `toml:"max_idle_conns"`
	QueryTimeout time.Duration `toml:"query_timeout"`
}

// SourceConfig contains the legacy document store query service settings.
type SourceConfig struct {
	URL      string        `toml:"url"`
	Bucket   string        `toml:"bucket"`
	Username string        `toml:"username"`
	Password string        `toml:"password"`
	PageSize int           `toml:"page_size"`
	Timeout  time.Duration `toml:"timeout"`
}

// DirectoryConfig contains SSO directory credentials and retry policy.
//
// Each entry in Tokens becomes one member of the credential pool.
type DirectoryConfig struct {
	BaseURL           string        `toml:"base_url"`
	SearchAttribute   string        `toml:"search_attribute"`
	Tokens            []string      `toml:"tokens"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	MaxRetries        int           `toml:"max_retries"`
	BackoffBase       time.Duration `toml:"backoff_base"`
	ResetBuffer       time.Duration `toml:"reset_buffer"`
}

// AuthConfig contains auth provider credentials (OAuth2 client credentials grant).
type AuthConfig struct {
	BaseURL      string   `toml:"base_url"`
	ProjectID    string   `toml:"project_id"`
	TokenURL     string   `toml:"token_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
	ProviderID   string   `toml:"provider_id"`
}

// IngestConfig contains batch and reconciliation settings.
type IngestConfig struct {
	Concurrency  int      `toml:"concurrency"`
	SlugLength   int      `toml:"slug_length"`
	SlugAttempts int      `toml:"slug_attempts"`
	SkipCAS      []string `toml:"skip_cas"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings that would make a run impossible.
func (c *Config) Validate() error {
	switch {
	case c.Cache.Dir == "":
		return fmt.Errorf("%w: cache.dir is required", ErrInvalidConfig)
	case c.Cache.ErrorsDir == "":
		return fmt.Errorf("%w: cache.errors_dir is required", ErrInvalidConfig)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Ingest.Concurrency <= 0:
		return fmt.Errorf("%w: ingest.concurrency must be positive", ErrInvalidConfig)
	case c.Ingest.SlugLength <= 0 || c.Ingest.SlugAttempts <= 0:
		return fmt.Errorf("%w: ingest.slug_length and ingest.slug_attempts must be positive", ErrInvalidConfig)
	case c.Directory.MaxRetries < 0:
		return fmt.Errorf("%w: directory.max_retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// SkipSet returns the configured cas exclusion list as a lookup set.
func (c *Config) SkipSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Ingest.SkipCAS))
	for _, cas := range c.Ingest.SkipCAS {
		set[cas] = struct{}{}
	}
	return set
}
