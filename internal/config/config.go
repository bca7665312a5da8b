package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the downtime alert agent.
type Config struct {
	// APIURL is the base URL of the maintenance backend, e.g. https://factory.local/api/.
	APIURL string `yaml:"api_url"`
	// Timeout is the duration for HTTP requests and control-surface calls.
	Timeout time.Duration `yaml:"timeout"`
	// EmployeeID identifies the operator whose device subscribes to push notifications.
	EmployeeID string `yaml:"employee_id,omitempty"`
	// LogLevel is the minimum level of log messages (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is the log output format (console, json).
	LogFormat string `yaml:"log_format,omitempty"`
	// LogFile redirects logs from stdout to a file when set.
	LogFile string `yaml:"log_file,omitempty"`
	// ControlAddress is the host:port of the local gRPC control surface.
	ControlAddress string `yaml:"control_addr"`
	// MetricsAddress is an optional host:port serving Prometheus metrics.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// Cache configures the persistence fallback.
	Cache CacheConfig `yaml:"cache"`
	// Push configures the push subscription platform.
	Push PushConfig `yaml:"push"`
	// FailureThreshold is the number of consecutive failed polls before the agent reports disconnected.
	FailureThreshold int `yaml:"failure_threshold"`
	// UseKeyring makes the agent read the API token from the OS keyring.
	UseKeyring bool `yaml:"use_keyring,omitempty"`
	// Token is an inline API token, used when the keyring is disabled.
	Token string `yaml:"token,omitempty"`
}

// CacheConfig selects and configures the local key/value backend.
type CacheConfig struct {
	// Backend is one of sqlite, redis or memory.
	Backend string `yaml:"backend"`
	// Path is the sqlite database file.
	Path string `yaml:"path,omitempty"`
	// RedisAddress is the host:port of the redis server.
	RedisAddress string `yaml:"redis_addr,omitempty"`
	// RedisDB is the redis logical database.
	RedisDB int `yaml:"redis_db,omitempty"`
	// KeyPrefix namespaces keys, letting several consoles share one redis.
	KeyPrefix string `yaml:"key_prefix,omitempty"`
	// MaxAlerts caps the number of mirrored alerts.
	MaxAlerts int `yaml:"max_alerts"`
}

// PushConfig configures the push registration of this device.
type PushConfig struct {
	// ServiceWorkerPath is the well-known path of the push service worker.
	ServiceWorkerPath string `yaml:"service_worker_path"`
	// Scope is the registration scope of the service worker.
	Scope string `yaml:"scope"`
	// Endpoint is the push-service endpoint this device receives messages on.
	// Push is reported as unsupported when it is empty.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Permission is the notification permission granted to the agent (default, granted, denied).
	Permission string `yaml:"permission,omitempty"`
	// FallbackVAPIDKey overrides the built-in key used when the server key cannot be fetched.
	FallbackVAPIDKey string `yaml:"fallback_vapid_key,omitempty"`
}

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	// DefaultConfigFilename is the default filename for agent settings.
	DefaultConfigFilename = "downtime-alerts.yaml"

	// DefaultCacheFilename is the default sqlite file of the persistence fallback.
	DefaultCacheFilename = "downtime-alerts-cache.db"

	// DefaultControlAddress is the default listen address of the control surface.
	DefaultControlAddress = "127.0.0.1:50071"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAlerts is the number of alerts mirrored to the local cache.
	DefaultMaxAlerts = 100

	// DefaultServiceWorkerPath is the well-known path of the push service worker.
	DefaultServiceWorkerPath = "/sw.js"

	// DefaultScope is the default service-worker registration scope.
	DefaultScope = "/"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAPIURLRequired is returned when the backend URL is missing.
	errAPIURLRequired = errors.New("api url must be provided")
	// errUnknownBackend is returned for an unsupported cache backend.
	errUnknownBackend = errors.New("unknown cache backend")
	// errUnknownLogFormat is returned for an unsupported log format.
	errUnknownLogFormat = errors.New("unknown log format")
	// errRedisAddressRequired is returned when the redis backend has no address.
	errRedisAddressRequired = errors.New("redis address must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold a token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.APIURL == "" {
		return errAPIURLRequired
	}

	apiURL, err := url.ParseRequestURI(settings.APIURL)
	if err != nil || apiURL.Host == "" {
		return fmt.Errorf("invalid api url %q: %w", settings.APIURL, errAPIURLRequired)
	}

	// Endpoint paths are relative, so the base must end with a slash.
	if !strings.HasSuffix(settings.APIURL, "/") {
		settings.APIURL += "/"
	}

	switch settings.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: %s", errUnknownLogFormat, settings.LogFormat)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ControlAddress == "" {
		settings.ControlAddress = DefaultControlAddress
	}

	if _, _, err := net.SplitHostPort(settings.ControlAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 1
	}

	if settings.Push.ServiceWorkerPath == "" {
		settings.Push.ServiceWorkerPath = DefaultServiceWorkerPath
	}

	if settings.Push.Scope == "" {
		settings.Push.Scope = DefaultScope
	}

	return validateCache(&settings.Cache)
}

// validateCache fills cache defaults and checks backend-specific fields.
func validateCache(cache *CacheConfig) error {
	if cache.MaxAlerts <= 0 {
		cache.MaxAlerts = DefaultMaxAlerts
	}

	switch cache.Backend {
	case "", BackendSQLite:
		cache.Backend = BackendSQLite
		if cache.Path == "" {
			cache.Path = DefaultCacheFilename
		}
	case BackendRedis:
		if cache.RedisAddress == "" {
			return errRedisAddressRequired
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %s", errUnknownBackend, cache.Backend)
	}

	return nil
}
