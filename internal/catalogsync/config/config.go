// Package config loads and validates the sync service configuration. The
// configuration file is TOML; a .env file or process environment can
// override the server URL, sync URL, and API token, which keeps credentials
// out of the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// ConfigFormatVersion is the current version of the configuration file format
const ConfigFormatVersion = "0.1.0"

// Environment variable overrides. Values set here win over the config file.
const (
	EnvServerURL    = "CATALOGSYNC_SERVER_URL"
	EnvSyncURL      = "CATALOGSYNC_SYNC_URL"
	EnvToken        = "CATALOGSYNC_TOKEN"
	EnvSnapshotPath = "CATALOGSYNC_SNAPSHOT_PATH"
)

// ServerConfig holds catalog server related configuration
type ServerConfig struct {
	URL     string `toml:"url" validate:"required,url"`      // Catalog REST API base URL
	SyncURL string `toml:"sync_url" validate:"required,uri"` // Sync channel ws:// or wss:// URL
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	Token string `toml:"token"` // Bearer token for the catalog API
}

// GetToken returns the configured API token
func (a *AuthConfig) GetToken() string {
	return a.Token
}

// GetTokenExpiry returns the expiry encoded in the token. A token that is
// not a JWT, or one without an exp claim, returns the zero time, which
// callers treat as "no expiry".
func (a *AuthConfig) GetTokenExpiry() time.Time {
	if a.Token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(a.Token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SyncConfig holds sync channel and snapshot related configuration
type SyncConfig struct {
	HeartbeatInterval string `toml:"heartbeat_interval"` // Ping interval on the sync channel
	DialTimeout       string `toml:"dial_timeout"`       // Timeout for establishing the sync channel
	SnapshotPath      string `toml:"snapshot_path"`      // Path to the snapshot database file
	SubscriberBuffer  int    `toml:"subscriber_buffer"`  // Buffer size for state subscriber channels
}

// GetHeartbeatInterval returns the heartbeat interval, or zero when unset so
// the connection manager applies its default.
func (s *SyncConfig) GetHeartbeatInterval() time.Duration {
	if s.HeartbeatInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(s.HeartbeatInterval)
	if err != nil {
		return 0
	}
	return d
}

// defaultSubscriberBuffer absorbs short bursts of commits without
// dropping deliveries to the daemon's status subscriber.
const defaultSubscriberBuffer = 16

// GetSubscriberBuffer returns the configured subscriber channel buffer,
// or the default when unset.
func (s *SyncConfig) GetSubscriberBuffer() int {
	if s.SubscriberBuffer <= 0 {
		return defaultSubscriberBuffer
	}
	return s.SubscriberBuffer
}

// GetDialTimeout returns the dial timeout, or zero when unset.
func (s *SyncConfig) GetDialTimeout() time.Duration {
	if s.DialTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.DialTimeout)
	if err != nil {
		return 0
	}
	return d
}

// ConfigParam holds all configuration parameters for the sync service
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version" validate:"required"` // Version of this configuration file format

	// Catalog server configuration
	Server ServerConfig `toml:"server"`

	// Auth configuration
	Auth AuthConfig `toml:"auth"`

	// Sync configuration
	Sync SyncConfig `toml:"sync"`
}

// GetServerURL returns the catalog REST API base URL
func (c *ConfigParam) GetServerURL() string {
	return c.Server.URL
}

// GetToken returns the configured API token
func (c *ConfigParam) GetToken() string {
	return c.Auth.GetToken()
}

// GetTokenExpiry returns the expiry encoded in the configured token
func (c *ConfigParam) GetTokenExpiry() time.Time {
	return c.Auth.GetTokenExpiry()
}

var cfg *ConfigParam

var validate = validator.New()

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// SetTestConfig replaces the current configuration. Test use only.
func SetTestConfig(c *ConfigParam) {
	cfg = c
}

// applyEnvOverrides overlays environment values on the loaded file. A .env
// file in the working directory is read first when present.
func applyEnvOverrides(c *ConfigParam) {
	// Missing .env is the common case outside development.
	_ = godotenv.Load()

	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvSyncURL); v != "" {
		c.Server.SyncURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv(EnvSnapshotPath); v != "" {
		c.Sync.SnapshotPath = v
	}
}

// ValidateConfig checks if all required configuration values are present and
// valid, and fills in defaults for the optional ones.
func ValidateConfig(c *ConfigParam) error {
	if c.FormatVersion != ConfigFormatVersion {
		return fmt.Errorf("unsupported config file format version: %s", c.FormatVersion)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	if c.Sync.HeartbeatInterval != "" {
		if _, err := time.ParseDuration(c.Sync.HeartbeatInterval); err != nil {
			return fmt.Errorf("invalid sync.heartbeat_interval: %v", err)
		}
	}
	if c.Sync.DialTimeout != "" {
		if _, err := time.ParseDuration(c.Sync.DialTimeout); err != nil {
			return fmt.Errorf("invalid sync.dial_timeout: %v", err)
		}
	}

	if c.Sync.SnapshotPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error getting user home directory: %v", err)
		}
		dir := filepath.Join(homeDir, ".catalogsync")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating snapshot directory: %v", err)
		}
		c.Sync.SnapshotPath = filepath.Join(dir, "snapshot.db")
	}

	return nil
}

// LoadConfig loads configuration from a file, applies environment
// overrides, and validates the result.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	loaded := &ConfigParam{}
	if _, err := toml.Decode(string(content), loaded); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	applyEnvOverrides(loaded)

	if err := ValidateConfig(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	cfg = loaded
	return nil
}
