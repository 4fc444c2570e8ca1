package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the collector reads.
const EnvPrefix = "SIMCOLLECT_"

// Config holds all configuration options for a collection session
type Config struct {
	// Identity used to sign in
	Account AccountConfig `yaml:"account" json:"account"`

	// Polling cadence, endpoint selection and destination
	Collect CollectConfig `yaml:"collect" json:"collect"`

	// Extra or overridden endpoints, id -> URL
	Endpoints map[string]string `yaml:"endpoints,omitempty" json:"endpoints,omitempty" validate:"omitempty,dive,keys,required,endkeys,required,url"`

	// Session acquisition
	Session SessionConfig `yaml:"session" json:"session"`

	// HTTP fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry settings for session acquisition
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountConfig identifies the operator's account. The password is usually
// kept in the credential store or the environment rather than in a file.
type AccountConfig struct {
	Email    string `yaml:"email" json:"email" validate:"omitempty,email"`
	Password string `yaml:"password,omitempty" json:"-"`
}

// CollectConfig controls the poll loop
type CollectConfig struct {
	// "all" or a comma separated list of endpoint ids
	Endpoints    string        `yaml:"endpoints" json:"endpoints" validate:"required"`
	OutputDir    string        `yaml:"output_dir" json:"output_dir" validate:"required"`
	Interval     time.Duration `yaml:"interval" json:"interval" validate:"gte=0"`
	Iterations   int           `yaml:"iterations" json:"iterations" validate:"gte=0"`
	SaveInterval int           `yaml:"save_interval" json:"save_interval" validate:"gte=1"`
	Extension    string        `yaml:"extension" json:"extension" validate:"required,alphanum"`
	UseTUI       bool          `yaml:"tui" json:"tui"`
}

// SessionConfig controls how the authenticated session is obtained
type SessionConfig struct {
	// "browser" signs in through headless Chrome, "static" uses Cookies as-is
	Mode         string            `yaml:"mode" json:"mode" validate:"oneof=browser static"`
	LoginURL     string            `yaml:"login_url" json:"login_url" validate:"required,url"`
	CookieName   string            `yaml:"cookie_name" json:"cookie_name" validate:"required"`
	Headless     bool              `yaml:"headless" json:"headless"`
	ChromePath   string            `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
	SettleDelay  time.Duration     `yaml:"settle_delay" json:"settle_delay" validate:"gte=0"`
	LoginTimeout time.Duration     `yaml:"login_timeout" json:"login_timeout" validate:"gt=0"`
	Cookies      map[string]string `yaml:"cookies,omitempty" json:"-"`
}

// FetchConfig holds HTTP client settings
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=1"`
	BurstSize         int `yaml:"burst_size" json:"burst_size" validate:"gte=1"`
}

// RetryConfig holds backoff settings
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type" validate:"oneof=terminal desktop none"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Collect: CollectConfig{
			Endpoints:    "all",
			OutputDir:    "./data",
			Interval:     60 * time.Second,
			Iterations:   0,
			SaveInterval: 10,
			Extension:    "jsonl",
		},
		Session: SessionConfig{
			Mode:         "browser",
			LoginURL:     "https://www.simcompanies.com/signin/",
			CookieName:   "sessionid",
			Headless:     true,
			SettleDelay:  10 * time.Second,
			LoginTimeout: 90 * time.Second,
		},
		Fetch: FetchConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         4,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Second,
			MaxDelay:    time.Minute,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ParseSeconds accepts either a bare number of seconds or a Go duration.
func ParseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getenv("EMAIL"); v != "" {
		c.Account.Email = v
	}
	if v := getenv("PASSWORD"); v != "" {
		c.Account.Password = v
	}
	if v := getenv("ENDPOINTS"); v != "" {
		c.Collect.Endpoints = v
	}
	if v := getenv("OUTPUT_DIR"); v != "" {
		c.Collect.OutputDir = v
	}
	if v := getenv("INTERVAL"); v != "" {
		d, err := ParseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINTERVAL: %w", EnvPrefix, err))
		} else {
			c.Collect.Interval = d
		}
	}
	if v := getenv("ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sITERATIONS: %w", EnvPrefix, err))
		} else {
			c.Collect.Iterations = n
		}
	}
	if v := getenv("SAVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSAVE_INTERVAL: %w", EnvPrefix, err))
		} else {
			c.Collect.SaveInterval = n
		}
	}
	if v := getenv("SESSION_MODE"); v != "" {
		c.Session.Mode = v
	}
	if v := getenv("SESSION_COOKIE"); v != "" {
		if c.Session.Cookies == nil {
			c.Session.Cookies = make(map[string]string)
		}
		c.Session.Cookies[c.Session.CookieName] = v
	}
	if v := getenv("CHROME_PATH"); v != "" {
		c.Session.ChromePath = v
	}
	if v := getenv("HEADLESS"); v != "" {
		c.Session.Headless = strings.ToLower(v) != "false"
	}
	if v := getenv("REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := getenv("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations and
// returns the first one that exists.
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".simcollect.yaml",
		".simcollect.yml",
		filepath.Join(home, ".config", "simcollect", "config.yaml"),
		filepath.Join(home, ".config", "simcollect", "config.yml"),
		filepath.Join(home, ".simcollect.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes a new file.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "simcollect", "config.yaml")
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		errs = append(errs, errors.New("retry base delay exceeds max delay"))
	}
	if strings.TrimSpace(c.Collect.Endpoints) == "" || strings.Trim(c.Collect.Endpoints, ", ") == "" {
		errs = append(errs, errors.New("endpoint selection is empty"))
	}

	return errors.Join(errs...)
}

// ValidateSession checks that the session mode has what it needs to start.
// It runs after credentials from the store have been applied, so Load does
// not call it.
func (c *Config) ValidateSession() error {
	if c.Session.Mode == "static" && c.Session.Cookies[c.Session.CookieName] == "" {
		return fmt.Errorf("static session mode requires the %q cookie", c.Session.CookieName)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the operator actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["email"].(string); ok && v != "" {
		c.Account.Email = v
	}
	if v, ok := flags["endpoints"].(string); ok && v != "" {
		c.Collect.Endpoints = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Collect.OutputDir = v
	}
	if v, ok := flags["interval"].(time.Duration); ok {
		c.Collect.Interval = v
	}
	if v, ok := flags["iterations"].(int); ok {
		c.Collect.Iterations = v
	}
	if v, ok := flags["save-interval"].(int); ok {
		c.Collect.SaveInterval = v
	}
	if v, ok := flags["extension"].(string); ok && v != "" {
		c.Collect.Extension = strings.TrimPrefix(v, ".")
	}
	if v, ok := flags["tui"].(bool); ok {
		c.Collect.UseTUI = v
	}
	if v, ok := flags["session-mode"].(string); ok && v != "" {
		c.Session.Mode = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Session.Headless = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".simcollect.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
