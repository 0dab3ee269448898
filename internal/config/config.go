package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the dungeon service and the client tools.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Client      ClientConfig      `yaml:"client"`
	Generator   GeneratorConfig   `yaml:"generator"`
	CORS        CORSConfig        `yaml:"cors"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Database    DatabaseConfig    `yaml:"database"`
}

// ServerConfig holds the HTTP listener settings for the dungeon service.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`

	// TrustedProxies lists peer IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means headers are ignored and
	// the socket address identifies the caller.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single-host prefix.
func (c ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("server.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ClientConfig holds settings for calling the dungeon service.
type ClientConfig struct {
	// BaseURL is the service root; "/generate-dungeon" is appended.
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds a single generate request. 0 disables the timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// DungeonType is sent with every request (standard, boss, treasure).
	DungeonType string `yaml:"dungeon_type"`
}

// GeneratorConfig holds procedural generator settings.
type GeneratorConfig struct {
	// Seed for the procedural generator. 0 means seed from the clock.
	Seed int64 `yaml:"seed"`
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ConnectionsConfig holds websocket connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// RateLimitConfig bounds how often one caller may generate rooms.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxRequests   int  `yaml:"max_requests"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DatabaseConfig holds settings for the generation history store.
type DatabaseConfig struct {
	// Enabled turns history recording on. The service works without it.
	Enabled bool `yaml:"enabled"`

	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	SQLitePath string `yaml:"sqlite_path"`

	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	// URL, when set, is used as the DSN and the discrete fields are ignored.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DefaultConfig returns a Config with defaults that run locally without setup.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    10,
			ShutdownTimeoutSeconds: 5,
		},
		Client: ClientConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 10,
			DungeonType:    "standard",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 3,
			MaxTotal: 100,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			MaxRequests:   30,
			WindowSeconds: 60,
		},
		Database: DatabaseConfig{
			Enabled:    false,
			Driver:     "sqlite",
			SQLitePath: "data/dungeons.db",
			Postgres: PostgresConfig{
				Host:                   "localhost",
				Port:                   5432,
				SSLMode:                "disable",
				MaxOpenConns:           25,
				MaxIdleConns:           5,
				ConnMaxLifetimeSeconds: 300,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, defaults are used.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return config, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return DefaultConfig(), fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if apiURL := os.Getenv("CLOUDQUEST_API_URL"); apiURL != "" {
		c.Client.BaseURL = apiURL
	}
	if addr := os.Getenv("CLOUDQUEST_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.Enabled = true
		c.Database.Driver = "postgres"
		c.Database.Postgres.URL = dsn
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.base_url %q is not an absolute URL", c.Client.BaseURL)
	}
	if c.Client.TimeoutSeconds < 0 {
		return fmt.Errorf("client.timeout_seconds must not be negative")
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IsOriginAllowed checks an API caller's Origin against the CORS list.
func (c *CORSConfig) IsOriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
