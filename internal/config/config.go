package config

import (
	"net"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/internal/errors"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
)

const (
	// ConfigFileName is the default configuration file.
	ConfigFileName = "dashboard.yaml"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":3000"

	// DefaultCookieMaxAge is the session cookie lifetime, seven days.
	DefaultCookieMaxAge = 7 * 24 * 60 * 60
)

// sqlIdentifier matches table names that are safe to splice into SQL.
var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the complete dashboard configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Assets  AssetsConfig  `yaml:"assets"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// HTTPConfig configures the listener and cookies.
type HTTPConfig struct {
	Addr string `yaml:"addr"`

	// SecureCookies marks the session cookies Secure. Enable behind TLS.
	SecureCookies bool   `yaml:"secure_cookies"`
	CookieDomain  string `yaml:"cookie_domain"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BackendConfig configures the authentication backend client.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each backend call. Zero means no client timeout;
	// the request context still applies.
	Timeout time.Duration `yaml:"timeout"`

	AccountIDPrefix string `yaml:"account_id_prefix"`
}

// AuthConfig configures sessions and route protection.
type AuthConfig struct {
	CookieMaxAge  int      `yaml:"cookie_max_age"`
	LoginPath     string   `yaml:"login_path"`
	HomePath      string   `yaml:"home_path"`
	SignUpPath    string   `yaml:"signup_path"`
	DashboardPath string   `yaml:"dashboard_path"`
	PublicPaths   []string `yaml:"public_paths"`

	// Revalidate asks the backend whether a restored token is still valid.
	Revalidate bool `yaml:"revalidate"`

	// CheckExpiry discards restored JWTs whose exp claim has passed.
	CheckExpiry bool `yaml:"check_expiry"`

	// DistinguishFailures shows a separate message when the backend is
	// unreachable instead of the generic sign-in failure.
	DistinguishFailures bool `yaml:"distinguish_failures"`

	// IdleTimeout evicts per-client state with no live connection.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// StorageConfig selects the durable token store.
type StorageConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	Table           string        `yaml:"table"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// AssetsConfig selects where static assets come from.
type AssetsConfig struct {
	// Dir serves assets from a local directory. Empty with no bucket
	// serves the embedded bundle.
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`

	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Prefix   string `yaml:"s3_prefix"`

	// Manifest names the fingerprint manifest inside the source.
	Manifest string `yaml:"manifest"`

	// Cache is "production" or "none".
	Cache string `yaml:"cache"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// New creates a Config with default values.
func New() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration at path if it exists, then applies .env
// and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, false)
}

// LoadFile is like Load but the file must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := New()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.New("E101").
					WithKey(path).
					Wrap(err).
					WithSuggestion("Check the YAML syntax and that durations look like \"10s\".")
			}
			cfg.configPath = path
		case os.IsNotExist(err) && !required:
		default:
			return nil, errors.New("E100").WithKey(path).Wrap(err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the path the config was loaded from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = backend.DefaultBaseURL
	}
	if c.Backend.AccountIDPrefix == "" {
		c.Backend.AccountIDPrefix = "MEX"
	}

	if c.Auth.CookieMaxAge == 0 {
		c.Auth.CookieMaxAge = DefaultCookieMaxAge
	}
	if c.Auth.LoginPath == "" {
		c.Auth.LoginPath = routegate.DefaultLoginPath
	}
	if c.Auth.HomePath == "" {
		c.Auth.HomePath = routegate.DefaultHomePath
	}
	if c.Auth.SignUpPath == "" {
		c.Auth.SignUpPath = routegate.DefaultSignUpPath
	}
	if c.Auth.DashboardPath == "" {
		c.Auth.DashboardPath = routegate.DefaultDashboardPath
	}
	if c.Auth.PublicPaths == nil {
		c.Auth.PublicPaths = slices.Clone(routegate.DefaultPublicPaths)
	}
	if c.Auth.IdleTimeout == 0 {
		c.Auth.IdleTimeout = 30 * time.Minute
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = "dashboard:storage:"
	}
	if c.Storage.Table == "" {
		c.Storage.Table = "dashboard_storage"
	}
	if c.Storage.CleanupInterval == 0 {
		c.Storage.CleanupInterval = 5 * time.Minute
	}

	if c.Assets.Prefix == "" {
		c.Assets.Prefix = "/_assets/"
	}
	if c.Assets.Cache == "" {
		c.Assets.Cache = "production"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "dashboard"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "hub-dashboard"
	}
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v := getenv(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E101").WithKey(name).Wrap(err)
		}
		*dst = b
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v := getenv(name)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("E107").WithKey(name).Wrap(err)
		}
		*dst = d
		return nil
	}

	if v := getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	str("DASHBOARD_ADDR", &c.HTTP.Addr)
	str("DASHBOARD_COOKIE_DOMAIN", &c.HTTP.CookieDomain)
	str("DASHBOARD_BACKEND_URL", &c.Backend.BaseURL)
	str("DASHBOARD_ACCOUNT_ID_PREFIX", &c.Backend.AccountIDPrefix)
	str("DASHBOARD_STORAGE_DRIVER", &c.Storage.Driver)
	str("DASHBOARD_STORAGE_DSN", &c.Storage.DSN)
	str("DASHBOARD_REDIS_ADDR", &c.Storage.RedisAddr)
	str("DASHBOARD_REDIS_PASSWORD", &c.Storage.RedisPassword)
	str("DASHBOARD_ASSETS_DIR", &c.Assets.Dir)
	str("DASHBOARD_S3_BUCKET", &c.Assets.S3Bucket)
	str("DASHBOARD_S3_REGION", &c.Assets.S3Region)
	str("DASHBOARD_S3_ENDPOINT", &c.Assets.S3Endpoint)
	str("DASHBOARD_LOG_LEVEL", &c.Log.Level)
	str("DASHBOARD_LOG_FORMAT", &c.Log.Format)

	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"DASHBOARD_SECURE_COOKIES", &c.HTTP.SecureCookies},
		{"DASHBOARD_REVALIDATE", &c.Auth.Revalidate},
		{"DASHBOARD_CHECK_EXPIRY", &c.Auth.CheckExpiry},
		{"DASHBOARD_DISTINGUISH_FAILURES", &c.Auth.DistinguishFailures},
		{"DASHBOARD_METRICS", &c.Metrics.Enabled},
		{"DASHBOARD_TRACING", &c.Tracing.Enabled},
	} {
		if err := boolean(b.name, b.dst); err != nil {
			return err
		}
	}

	if err := duration("DASHBOARD_BACKEND_TIMEOUT", &c.Backend.Timeout); err != nil {
		return err
	}
	return duration("DASHBOARD_IDLE_TIMEOUT", &c.Auth.IdleTimeout)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.HTTP.Addr); err != nil || port == "" {
		return errors.New("E102").WithKey("http.addr").
			WithSuggestion(`Use a value like ":3000" or "127.0.0.1:8080".`)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("E103").WithKey("backend.base_url")
	}

	for key, d := range map[string]time.Duration{
		"backend.timeout":          c.Backend.Timeout,
		"auth.idle_timeout":        c.Auth.IdleTimeout,
		"http.shutdown_timeout":    c.HTTP.ShutdownTimeout,
		"storage.cleanup_interval": c.Storage.CleanupInterval,
	} {
		if d < 0 {
			return errors.New("E107").WithKey(key)
		}
	}

	if c.Auth.CookieMaxAge <= 0 {
		return errors.New("E110").WithKey("auth.cookie_max_age")
	}
	for key, p := range map[string]string{
		"auth.login_path":     c.Auth.LoginPath,
		"auth.home_path":      c.Auth.HomePath,
		"auth.signup_path":    c.Auth.SignUpPath,
		"auth.dashboard_path": c.Auth.DashboardPath,
	} {
		if !validRoutePath(p) {
			return errors.New("E106").WithKey(key)
		}
	}
	for _, p := range c.Auth.PublicPaths {
		if !validRoutePath(p) {
			return errors.New("E106").WithKey("auth.public_paths").
				WithDetail("Public path " + strconv.Quote(p) + " must start with a single '/'.")
		}
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("E105").WithKey("storage.redis_addr")
		}
	case DriverPostgres, DriverSQLite:
		if c.Storage.DSN == "" {
			return errors.New("E105").WithKey("storage.dsn")
		}
	default:
		return errors.New("E104").WithKey("storage.driver").
			WithSuggestion(`Use one of "memory", "redis", "postgres" or "sqlite".`)
	}
	if c.Storage.Table != "" && !sqlIdentifier.MatchString(c.Storage.Table) {
		return errors.New("E111").WithKey("storage.table").
			WithDetail("Table name " + strconv.Quote(c.Storage.Table) + " is not a plain SQL identifier.").
			WithSuggestion("Use letters, digits and underscores, starting with a letter or underscore.")
	}

	if c.Assets.Dir != "" && c.Assets.S3Bucket != "" {
		return errors.New("E109").WithKey("assets")
	}
	if c.Assets.Cache != "production" && c.Assets.Cache != "none" {
		return errors.New("E109").WithKey("assets.cache").
			WithDetail(`The asset cache mode must be "production" or "none".`)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E108").WithKey("log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E108").WithKey("log.format")
	}
	return nil
}

func validRoutePath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}

// UsesS3 reports whether assets come from a bucket.
func (c *Config) UsesS3() bool {
	return c.Assets.S3Bucket != ""
}
