package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the obstore API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Index    IndexConfig    `yaml:"index"`
	Access   AccessConfig   `yaml:"access"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Each API key runs requests
// as its user; no users disables authentication.
type AuthConfig struct {
	Users []UserConfig `yaml:"users"`
}

// UserConfig maps an API key to the identity requests run as.
type UserConfig struct {
	APIKey       string   `yaml:"api_key"`
	Name         string   `yaml:"name"`
	Tenant       string   `yaml:"tenant"`
	Roles        []string `yaml:"roles"`
	BackendRoles []string `yaml:"backend_roles"`
}

// AccessConfig holds the visibility policy within a tenant.
type AccessConfig struct {
	FilterBy    string   `yaml:"filter_by"`    // none, user, roles, backend_roles (default: none)
	AdminRoles  []string `yaml:"admin_roles"`  // default: all_access
	AdminAccess string   `yaml:"admin_access"` // all, none (default: all)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver             string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs              []string `yaml:"addrs"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	ReadinessTimeout   int      `yaml:"readiness_timeout_sec"`
	OperationTimeoutMs int      `yaml:"operation_timeout_ms"`
}

// IndexConfig holds index naming and pagination settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	LegacyName      string `yaml:"legacy_name"` // "-" disables the legacy migration
	KeyPrefix       string `yaml:"key_prefix"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// Legacy returns the legacy index name, or "" when the migration is disabled.
func (c IndexConfig) Legacy() string {
	if c.LegacyName == "-" {
		return ""
	}
	return c.LegacyName
}

// UsersByKey returns the configured users keyed by API key.
func (c AuthConfig) UsersByKey() map[string]UserConfig {
	out := make(map[string]UserConfig, len(c.Users))
	for _, u := range c.Users {
		out[u.APIKey] = u
	}
	return out
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.OperationTimeoutMs <= 0 {
		c.Database.OperationTimeoutMs = 30000
	}
	if c.Index.Name == "" {
		c.Index.Name = "observability"
	}
	if c.Index.LegacyName == "" {
		c.Index.LegacyName = "notebooks"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "obs"
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 100
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 10000
	}
	if c.Access.FilterBy == "" {
		c.Access.FilterBy = "none"
	}
	if c.Access.AdminRoles == nil {
		c.Access.AdminRoles = []string{"all_access"}
	}
	if c.Access.AdminAccess == "" {
		c.Access.AdminAccess = "all"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Index.DefaultPageSize > c.Index.MaxPageSize {
		return fmt.Errorf("index.default_page_size %d exceeds index.max_page_size %d",
			c.Index.DefaultPageSize, c.Index.MaxPageSize)
	}
	if c.Index.LegacyName == c.Index.Name {
		return fmt.Errorf("index.legacy_name must differ from index.name %q", c.Index.Name)
	}
	switch c.Access.FilterBy {
	case "none", "user", "roles", "backend_roles":
	default:
		return fmt.Errorf("access.filter_by must be one of none, user, roles, backend_roles, got %q",
			c.Access.FilterBy)
	}
	switch c.Access.AdminAccess {
	case "all", "none":
	default:
		return fmt.Errorf("access.admin_access must be \"all\" or \"none\", got %q", c.Access.AdminAccess)
	}
	seen := make(map[string]bool, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.APIKey == "" || u.Name == "" {
			return fmt.Errorf("auth.users[%d]: api_key and name are required", i)
		}
		if seen[u.APIKey] {
			return fmt.Errorf("auth.users[%d]: duplicate api_key", i)
		}
		seen[u.APIKey] = true
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
