// Package config loads HyprCAT's configuration from a YAML file layered
// with environment-variable overrides and hard defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration struct, decoded from YAML and
// then overridden from the environment.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Security   SecurityConfig   `yaml:"security"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Redis      RedisConfig      `yaml:"redis"`
	Federation FederationConfig `yaml:"federation"`
	PubSub     PubSubConfig     `yaml:"pubsub"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port              string   `yaml:"port"`
	Env               string   `yaml:"env"`
	BaseURL           string   `yaml:"base_url"`
	CORSAllowOrigins  []string `yaml:"cors_allow_origins"`
	ReadTimeoutSec    int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int      `yaml:"write_timeout_sec"`
	IdleTimeoutSec    int      `yaml:"idle_timeout_sec"`
	ShutdownTimeoutSec int     `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
}

// StorageConfig selects and configures the resource store backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // memory | file | postgres
	Dir         string `yaml:"dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SecurityConfig holds the signing secrets for session tokens and
// payment proofs. When absent, both are generated with crypto/rand at
// startup as a HMAC-secret fallback — this
// is fine for a single-process deployment but will not survive a restart
// with active sessions.
type SecurityConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	PaymentSecret     string `yaml:"payment_secret"`
	SessionTTLSec     int    `yaml:"session_ttl_sec"`
	ChallengeTTLSec   int    `yaml:"challenge_ttl_sec"`
	RequireProduction bool   `yaml:"require_production_signatures"`
}

type RateLimitConfig struct {
	WindowSec int `yaml:"window_sec"`
	Max       int `yaml:"max"`
	Burst     int `yaml:"burst"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FederationConfig struct {
	InstanceID   string `yaml:"instance_id"`
	DefaultLimit int    `yaml:"default_limit"`
	HardCapLimit int    `yaml:"hard_cap_limit"`
	WorkerCount  int    `yaml:"worker_count"`
	SourceTimeoutSec int `yaml:"source_timeout_sec"`
}

type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton, loading CONFIG_PATH (default
// "config.yaml") the first time it is called.
func Get() *Config {
	once.Do(func() {
		cfg, err := Load(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
			cfg = &Config{}
			cfg.applyEnvOverrides()
		}
		instance = cfg
	})
	return instance
}

// Load reads path (if present), applies environment overrides and
// defaults, and returns a fresh Config — useful for tests that need
// isolated configuration.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort; local dev convenience only

	cfg := &Config{}
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("HYPRCAT_ENV", c.Server.Env)
	c.Server.BaseURL = getEnv("HYPRCAT_BASE_URL", c.Server.BaseURL)
	if origins := getEnv("CORS_ALLOW_ORIGINS", ""); origins != "" {
		c.Server.CORSAllowOrigins = splitCSV(origins)
	}
	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeoutSec = v
	}
	if v := getEnvInt("SERVER_REQUEST_TIMEOUT_SEC", 0); v > 0 {
		c.Server.RequestTimeoutSec = v
	}

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Dir = getEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.PostgresDSN = getEnv("STORAGE_POSTGRES_DSN", c.Storage.PostgresDSN)

	c.Security.JWTSecret = getEnv("HYPRCAT_JWT_SECRET", c.Security.JWTSecret)
	c.Security.PaymentSecret = getEnv("HYPRCAT_PAYMENT_SECRET", c.Security.PaymentSecret)
	if v := getEnvInt("SESSION_TTL_SEC", 0); v > 0 {
		c.Security.SessionTTLSec = v
	}
	if v := getEnvInt("CHALLENGE_TTL_SEC", 0); v > 0 {
		c.Security.ChallengeTTLSec = v
	}

	if v := getEnvInt("RATE_LIMIT_WINDOW_SEC", 0); v > 0 {
		c.RateLimit.WindowSec = v
	}
	if v := getEnvInt("RATE_LIMIT_MAX", 0); v > 0 {
		c.RateLimit.Max = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		c.RateLimit.Burst = v
	}

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if v := getEnvInt("REDIS_DB", -1); v >= 0 {
		c.Redis.DB = v
	}

	c.Federation.InstanceID = getEnv("HYPRCAT_INSTANCE_ID", c.Federation.InstanceID)
	if v := getEnvInt("FEDERATION_DEFAULT_LIMIT", 0); v > 0 {
		c.Federation.DefaultLimit = v
	}
	if v := getEnvInt("FEDERATION_HARD_CAP_LIMIT", 0); v > 0 {
		c.Federation.HardCapLimit = v
	}
	if v := getEnvInt("FEDERATION_WORKER_COUNT", 0); v > 0 {
		c.Federation.WorkerCount = v
	}
	if v := getEnvInt("FEDERATION_SOURCE_TIMEOUT_SEC", 0); v > 0 {
		c.Federation.SourceTimeoutSec = v
	}

	c.PubSub.Enabled = getEnvBool("PUBSUB_ENABLED", c.PubSub.Enabled)
	c.PubSub.ProjectID = getEnv("GCP_PROJECT_ID", c.PubSub.ProjectID)
	c.PubSub.TopicID = getEnv("PUBSUB_TOPIC_ID", c.PubSub.TopicID)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:" + c.Server.Port
	}
	if len(c.Server.CORSAllowOrigins) == 0 {
		c.Server.CORSAllowOrigins = []string{"*"}
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 30
	}
	if c.Server.RequestTimeoutSec == 0 {
		c.Server.RequestTimeoutSec = 10
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data"
	}

	if c.Security.JWTSecret == "" {
		c.Security.JWTSecret = randomSecret()
	}
	if c.Security.PaymentSecret == "" {
		c.Security.PaymentSecret = randomSecret()
	}
	if c.Security.SessionTTLSec == 0 {
		c.Security.SessionTTLSec = 900 // 15 minutes
	}
	if c.Security.ChallengeTTLSec == 0 {
		c.Security.ChallengeTTLSec = 120 // 2 minutes
	}

	if c.RateLimit.WindowSec == 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 120
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.Max * 2
	}

	if c.Federation.InstanceID == "" {
		c.Federation.InstanceID = "hyprcat-local"
	}
	if c.Federation.DefaultLimit == 0 {
		c.Federation.DefaultLimit = 50
	}
	if c.Federation.HardCapLimit == 0 {
		c.Federation.HardCapLimit = 500
	}
	if c.Federation.WorkerCount == 0 {
		c.Federation.WorkerCount = 4
	}
	if c.Federation.SourceTimeoutSec == 0 {
		c.Federation.SourceTimeoutSec = 5
	}

	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = "hyprcat-events"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		if c.IsProduction() {
			c.Logging.Format = "json"
		} else {
			c.Logging.Format = "text"
		}
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the host is unusable; a fixed
		// fallback keeps startup from panicking in that unlikely case.
		return "hyprcat-dev-secret-change-in-production"
	}
	return hex.EncodeToString(buf)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func (c *Config) IsProduction() bool  { return c.Server.Env == "production" }
func (c *Config) IsDevelopment() bool { return c.Server.Env == "development" }
