package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backend selectors.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Store    StoreConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Platform PlatformConfig
	Content  ContentConfig
	Checkout CheckoutConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// StoreConfig selects the entity store backend. The in-memory backend is a
// single-process development shortcut and must never be used with more than
// one instance.
type StoreConfig struct {
	Backend string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlatformConfig carries the global-admin escape hatch configuration: the
// designated dev/test identity, an email allow-list, and an optional role
// override honoured on top of the fixed superadmin role set.
type PlatformConfig struct {
	DevUserID         string
	AdminEmails       []string
	AdminRoleOverride string
	GuardLogSize      int
}

// ContentConfig provides fallbacks used when a school has no content
// protection policy row.
type ContentConfig struct {
	AllowPreviews      bool
	MaxPreviewSeconds  int
	MaxPreviewChars    int
	PolicyCacheTTL     time.Duration
	PolicyCacheEnabled bool
}

// CheckoutConfig governs entitlement issuance from payment events.
type CheckoutConfig struct {
	WebhookSecret string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Store = StoreConfig{Backend: strings.ToLower(v.GetString("STORE_BACKEND"))}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Platform = PlatformConfig{
		DevUserID:         v.GetString("PLATFORM_DEV_USER_ID"),
		AdminEmails:       splitAndTrim(v.GetString("PLATFORM_ADMIN_EMAILS")),
		AdminRoleOverride: strings.ToUpper(v.GetString("PLATFORM_ADMIN_ROLE_OVERRIDE")),
		GuardLogSize:      v.GetInt("GUARD_LOG_SIZE"),
	}

	cfg.Content = ContentConfig{
		AllowPreviews:      v.GetBool("CONTENT_ALLOW_PREVIEWS"),
		MaxPreviewSeconds:  v.GetInt("CONTENT_MAX_PREVIEW_SECONDS"),
		MaxPreviewChars:    v.GetInt("CONTENT_MAX_PREVIEW_CHARS"),
		PolicyCacheTTL:     parseDuration(v.GetString("POLICY_CACHE_TTL"), 5*time.Minute),
		PolicyCacheEnabled: v.GetBool("POLICY_CACHE_ENABLED"),
	}

	cfg.Checkout = CheckoutConfig{
		WebhookSecret: v.GetString("CHECKOUT_WEBHOOK_SECRET"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "breslov_academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("STORE_BACKEND", StoreBackendPostgres)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "breslov-academy")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLATFORM_DEV_USER_ID", "")
	v.SetDefault("PLATFORM_ADMIN_EMAILS", "")
	v.SetDefault("PLATFORM_ADMIN_ROLE_OVERRIDE", "")
	v.SetDefault("GUARD_LOG_SIZE", 256)

	v.SetDefault("CONTENT_ALLOW_PREVIEWS", true)
	v.SetDefault("CONTENT_MAX_PREVIEW_SECONDS", 90)
	v.SetDefault("CONTENT_MAX_PREVIEW_CHARS", 1500)
	v.SetDefault("POLICY_CACHE_TTL", "5m")
	v.SetDefault("POLICY_CACHE_ENABLED", true)

	v.SetDefault("CHECKOUT_WEBHOOK_SECRET", "dev_webhook_secret")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
