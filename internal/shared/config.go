package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	API         APIConfig         `toml:"api"`
	Device      DeviceConfig      `toml:"device"`
}

// CredentialsConfig contains provider-specific settings.
type CredentialsConfig struct {
	TMDB     TMDBConfig     `toml:"tmdb"`
	AniList  AniListConfig  `toml:"anilist"`
	Streamed StreamedConfig `toml:"streamed"`
	OIDC     OIDCConfig     `toml:"oidc"`
}

// TMDBConfig contains The Movie Database API settings.
type TMDBConfig struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	ImageBaseURL    string  `toml:"image_base_url"`
	RateLimit       float64 `toml:"rate_limit"`
	CacheSize       int     `toml:"cache_size"`
	CacheTTLSeconds int     `toml:"cache_ttl_seconds"`
}

// AniListConfig contains AniList GraphQL settings.
type AniListConfig struct {
	URL       string  `toml:"url"`
	RateLimit float64 `toml:"rate_limit"`
}

// StreamedConfig contains sports aggregator settings.
type StreamedConfig struct {
	BaseURL string `toml:"base_url"`
}

// OIDCConfig contains identity provider settings.
//
// The server only needs Issuer and ClientID to verify tokens; the CLI login flow also uses the secret and redirect.
type OIDCConfig struct {
	Issuer       string   `toml:"issuer"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	AdminPasswordHash string   `toml:"admin_password_hash"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig tells the CLI where the remote progress store lives.
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	TokenPath string `toml:"token_path"`
}

// DeviceConfig contains settings for device-local storage.
type DeviceConfig struct {
	Dir string `toml:"dir"`
}

// ResolveDir returns the configured device directory or [DataDir].
func (d DeviceConfig) ResolveDir() (string, error) {
	if d.Dir != "" {
		return d.Dir, nil
	}
	return DataDir()
}

// ResolveTokenPath returns the configured token path or a file in the device directory.
func (c *Config) ResolveTokenPath() (string, error) {
	if c.API.TokenPath != "" {
		return c.API.TokenPath, nil
	}
	dir, err := c.Device.ResolveDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token.json"), nil
}

// Validate reports configuration values that would fail at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Credentials.TMDB.RateLimit < 0 || c.Credentials.AniList.RateLimit < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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
