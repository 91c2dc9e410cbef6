/*
Package configs is responsible for loading and parsing the application's configuration settings.

Both commands read operating system environment variables, after an optional .env file has been
loaded by the caller. AppConfig configures the headless client: the authentication API, the presence
endpoint, reconnection, and the durable token store. ServerConfig configures the development server.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"hzpresence/internal/app/tokenstore"
)

const envDevelopment = "development"

// AppConfig contains all configuration parameters of the client.
type AppConfig struct {
	// General Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Backend Settings
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	PresenceURL    string        `env:"PRESENCE_URL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// Session Settings
	NavigationDelay       time.Duration `env:"NAVIGATION_DELAY" envDefault:"500ms"`
	ClearOnRestoreFailure bool          `env:"CLEAR_ON_RESTORE_FAILURE" envDefault:"false"`

	// Presence Reconnect Settings. Zero attempts disables reconnecting.
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"0"`
	ReconnectBaseDelay   time.Duration `env:"RECONNECT_BASE_DELAY" envDefault:"500ms"`
	ReconnectMaxDelay    time.Duration `env:"RECONNECT_MAX_DELAY" envDefault:"30s"`

	// Token Store Settings
	TokenStore    string `env:"TOKEN_STORE" envDefault:"file"`
	TokenFileDir  string `env:"TOKEN_FILE_DIR"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	DatabaseDSN   string `env:"DATABASE_URL"`

	// Fallback Credentials, used when no session could be restored.
	LoginMode     string `env:"LOGIN_MODE" envDefault:"login"`
	LoginEmail    string `env:"LOGIN_EMAIL"`
	LoginPassword string `env:"LOGIN_PASSWORD"`
	LoginFullName string `env:"LOGIN_FULL_NAME"`
	LoginBio      string `env:"LOGIN_BIO"`
}

// IsDevelopment reports whether the development logger should be used.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == envDevelopment
}

// Backend returns the validated token store backend.
func (c *AppConfig) Backend() tokenstore.Backend {
	return tokenstore.Backend(c.TokenStore)
}

// HasLoginCredentials reports whether fallback credentials are configured.
func (c *AppConfig) HasLoginCredentials() bool {
	return c.LoginEmail != "" && c.LoginPassword != ""
}

// LoadConfig reads and validates the client configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// --- Backend Settings ---
	backend, err := url.Parse(strings.TrimRight(cfg.BackendURL, "/"))
	if err != nil || (backend.Scheme != "http" && backend.Scheme != "https") || backend.Host == "" {
		return nil, fmt.Errorf("BACKEND_URL %q must be an absolute http(s) URL", cfg.BackendURL)
	}
	cfg.BackendURL = backend.String()

	if cfg.PresenceURL == "" {
		cfg.PresenceURL = derivePresenceURL(backend)
	} else {
		presence, err := url.Parse(cfg.PresenceURL)
		if err != nil || (presence.Scheme != "ws" && presence.Scheme != "wss") || presence.Host == "" {
			return nil, fmt.Errorf("PRESENCE_URL %q must be an absolute ws(s) URL", cfg.PresenceURL)
		}
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	// --- Presence Reconnect Settings ---
	if cfg.ReconnectMaxAttempts < 0 {
		return nil, fmt.Errorf("RECONNECT_MAX_ATTEMPTS must not be negative, got %d", cfg.ReconnectMaxAttempts)
	}
	if cfg.ReconnectBaseDelay <= 0 || cfg.ReconnectMaxDelay < cfg.ReconnectBaseDelay {
		return nil, fmt.Errorf("reconnect delays must satisfy 0 < RECONNECT_BASE_DELAY <= RECONNECT_MAX_DELAY, got %s and %s",
			cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay)
	}

	// --- Token Store Settings ---
	if _, err := tokenstore.ParseBackend(cfg.TokenStore); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_STORE: %w", err)
	}
	switch cfg.Backend() {
	case tokenstore.BackendFile:
		if cfg.TokenFileDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("TOKEN_FILE_DIR is not set and the home directory is unknown: %w", err)
			}
			cfg.TokenFileDir = filepath.Join(home, ".hzpresence")
		}
	case tokenstore.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR environment variable is required for the redis token store")
		}
	case tokenstore.BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres token store")
		}
	}

	// --- Fallback Credentials ---
	cfg.LoginMode = strings.ToLower(strings.TrimSpace(cfg.LoginMode))
	if cfg.LoginMode != "login" && cfg.LoginMode != "signup" {
		return nil, fmt.Errorf("LOGIN_MODE must be login or signup, got %q", cfg.LoginMode)
	}

	return cfg, nil
}

// derivePresenceURL maps http(s)://host/base to ws(s)://host/base/ws.
func derivePresenceURL(backend *url.URL) string {
	u := *backend
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String()
}

// ServerConfig contains the configuration of the development server.
type ServerConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	JWTSecret      string   `env:"JWT_SECRET"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == envDevelopment
}

// LoadServerConfig reads and validates the development server configuration.
func LoadServerConfig() (*ServerConfig, error) {
	return loadServerConfig(env.Options{})
}

func loadServerConfig(opts env.Options) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = "your_default_insecure_secret_key_change_me"
	}

	return cfg, nil
}
