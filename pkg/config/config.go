package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read when no explicit path is given.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for reportly.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`

	// MaxUploadMB caps multipart uploads (data files and logos).
	MaxUploadMB int64 `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"20"`

	// SessionSecret signs the editor resume cookie.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Editor   EditorConfig   `yaml:"editor"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	// DisableVerification skips JWT signature validation.
	// Only for local development without the auth backend.
	DisableVerification bool `yaml:"disable_verification" env:"AUTH_DISABLE_VERIFICATION"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is parsed from JWKSEndpointsStr.
	JWKSEndpoints map[string]string `yaml:"-"`

	// CookieName is the cookie browsers carry the access token in.
	CookieName string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" env-default:"reportly_jwt"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"reportly"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"reportly"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	SkipMigrations bool   `yaml:"skip_migrations" env:"DB_SKIP_MIGRATIONS"`
}

// StorageConfig selects and configures the logo object store.
type StorageConfig struct {
	// Backend is "badger" (embedded, served by this process) or "supabase".
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"badger"`
	// BadgerDir is the data directory for the embedded store.
	BadgerDir string `yaml:"badger_dir" env:"STORAGE_BADGER_DIR" env-default:"./data/storage"`
	// GCInterval is how often the embedded store's value log is collected.
	GCInterval time.Duration `yaml:"gc_interval" env:"STORAGE_GC_INTERVAL" env-default:"10m"`

	SupabaseURL string `yaml:"supabase_url" env:"STORAGE_SUPABASE_URL" env-default:""`
	Bucket      string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"logos"`
	ServiceKey  string `yaml:"-" env:"STORAGE_SERVICE_KEY"` // Secret - not in YAML
}

// EditorConfig controls script edit sessions.
type EditorConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl" env:"EDITOR_SESSION_TTL" env-default:"2h"`
}

// LimitsConfig holds free-tier caps. Paid tiers are unlimited.
type LimitsConfig struct {
	FreeMonthlyReports int           `yaml:"free_monthly_reports" env:"LIMIT_FREE_MONTHLY_REPORTS" env-default:"10"`
	FreeScripts        int           `yaml:"free_scripts" env:"LIMIT_FREE_SCRIPTS" env-default:"5"`
	PlanCacheTTL       time.Duration `yaml:"plan_cache_ttl" env:"LIMIT_PLAN_CACHE_TTL" env-default:"5m"`
}

// Load reads configuration from path (DefaultConfigPath when empty) with
// environment variable overrides. A missing file is not an error: the
// configuration then comes from the environment and defaults alone.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "badger":
	case "supabase":
		if c.Storage.SupabaseURL == "" {
			return fmt.Errorf("storage.supabase_url is required for the supabase backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if !c.Auth.DisableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth.jwks_endpoints is required when verification is enabled")
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

// IsLocal reports whether the service runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "test"
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return ResolveBindAddr(c.BindAddr) + ":" + c.Port
}

// PricingURL is where limit-exceeded responses send the user.
func (c *Config) PricingURL() string {
	return c.BaseURL + "/pricing"
}

// parseJWKSEndpoints parses "issuer1=url1,issuer2=url2" into a map.
// Issuers may themselves contain '=' only in the URL part, so only the first
// '=' separates issuer from URL.
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		issuer = strings.TrimSpace(issuer)
		jwksURL = strings.TrimSpace(jwksURL)
		if issuer == "" || jwksURL == "" {
			continue
		}
		endpoints[issuer] = jwksURL
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
