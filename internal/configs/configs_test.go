package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v10"

	"hzpresence/internal/app/tokenstore"
)

func withEnv(vars map[string]string) env.Options {
	if vars == nil {
		vars = map[string]string{}
	}
	return env.Options{Environment: vars}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(withEnv(map[string]string{"TOKEN_FILE_DIR": "/tmp/hz"}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if !cfg.IsDevelopment() {
		t.Fatalf("expected development by default")
	}
	if cfg.BackendURL != "http://localhost:8080" || cfg.PresenceURL != "ws://localhost:8080/ws" {
		t.Fatalf("unexpected urls %q %q", cfg.BackendURL, cfg.PresenceURL)
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.NavigationDelay != 500*time.Millisecond {
		t.Fatalf("unexpected durations %s %s", cfg.RequestTimeout, cfg.NavigationDelay)
	}
	if cfg.ClearOnRestoreFailure || cfg.ReconnectMaxAttempts != 0 {
		t.Fatalf("restore policy and reconnect must be off by default")
	}
	if cfg.Backend() != tokenstore.BackendFile || cfg.LoginMode != "login" || cfg.HasLoginCredentials() {
		t.Fatalf("unexpected store/login defaults %+v", cfg)
	}
}

func TestLoadConfig_DerivesSecurePresenceURL(t *testing.T) {
	cfg, err := loadConfig(withEnv(map[string]string{
		"BACKEND_URL":    "https://chat.example.com/app/",
		"TOKEN_STORE":    "memory",
		"LOGIN_EMAIL":    "a@x.io",
		"LOGIN_PASSWORD": "pw",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BackendURL != "https://chat.example.com/app" || cfg.PresenceURL != "wss://chat.example.com/app/ws" {
		t.Fatalf("unexpected urls %q %q", cfg.BackendURL, cfg.PresenceURL)
	}
	if !cfg.HasLoginCredentials() {
		t.Fatalf("expected login credentials")
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"backend scheme":     {"BACKEND_URL": "ftp://x", "TOKEN_STORE": "memory"},
		"presence scheme":    {"PRESENCE_URL": "http://x/ws", "TOKEN_STORE": "memory"},
		"timeout":            {"REQUEST_TIMEOUT": "0s", "TOKEN_STORE": "memory"},
		"duration syntax":    {"NAVIGATION_DELAY": "soon", "TOKEN_STORE": "memory"},
		"negative attempts":  {"RECONNECT_MAX_ATTEMPTS": "-1", "TOKEN_STORE": "memory"},
		"delay order":        {"RECONNECT_BASE_DELAY": "10s", "RECONNECT_MAX_DELAY": "1s", "TOKEN_STORE": "memory"},
		"unknown store":      {"TOKEN_STORE": "s3"},
		"redis without addr": {"TOKEN_STORE": "redis"},
		"postgres sans dsn":  {"TOKEN_STORE": "postgres"},
		"login mode":         {"TOKEN_STORE": "memory", "LOGIN_MODE": "reset"},
	}
	for name, vars := range cases {
		if _, err := loadConfig(withEnv(vars)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadServerConfig(t *testing.T) {
	cfg, err := loadServerConfig(withEnv(map[string]string{
		"PORT":            "9090",
		"ALLOWED_ORIGINS": "http://a.test, ,http://b.test",
	}))
	if err != nil {
		t.Fatalf("loadServerConfig: %v", err)
	}
	if cfg.Port != 9090 || strings.Join(cfg.AllowedOrigins, "|") != "http://a.test|http://b.test" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("development must fall back to a default secret")
	}

	if _, err := loadServerConfig(withEnv(map[string]string{"ENVIRONMENT": "production"})); err == nil {
		t.Fatalf("expected JWT_SECRET to be required in production")
	}
	if _, err := loadServerConfig(withEnv(map[string]string{"PORT": "80"})); err == nil {
		t.Fatalf("expected privileged port to be rejected")
	}
}
