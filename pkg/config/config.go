package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret     = "dev_secret"
	devStorageSecret = "dev_storage_secret"
)

// Config is the process configuration read from the environment and an
// optional .env file.
type Config struct {
	Env       string
	Port      int
	APIPrefix string
	PublicURL string

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Webhook        WebhookConfig
	Storage        StorageConfig
	Notifications  NotificationsConfig
	LiveKit        LiveKitConfig
	SupportConfigs SupportConfigsConfig
	Applications   ApplicationsConfig
	Bulk           BulkConfig
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

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WebhookConfig holds identity-provider webhook verification settings.
type WebhookConfig struct {
	ClerkSigningSecret string
}

// StorageConfig controls document storage and signed URL issuance.
type StorageConfig struct {
	Dir              string
	SignedURLSecret  string
	UploadURLTTL     time.Duration
	DownloadURLTTL   time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// NotificationsConfig tunes the outbox dispatcher and delivery providers.
type NotificationsConfig struct {
	Enabled          bool
	PollInterval     time.Duration
	BatchSize        int
	Workers          int
	MaxAttempts      int
	RetryDelay       time.Duration
	// InlineRetries is how often a worker retries a failed send before the
	// row is rescheduled with RetryDelay backoff.
	InlineRetries    int
	InlineRetryDelay time.Duration
	EmailProvider    string
	SMSProvider      string
	FromEmail        string
	FromName         string
	SendGridKey      string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
}

// LiveKitConfig holds credentials for meeting access tokens.
type LiveKitConfig struct {
	APIKey    string
	APISecret string
	URL       string
	TokenTTL  time.Duration
}

// SupportConfigsConfig governs support configuration caching and seeding.
type SupportConfigsConfig struct {
	CacheTTL time.Duration
	SeedFile string
}

// ApplicationsConfig toggles review workflow behaviour.
type ApplicationsConfig struct {
	AllowAdminOverride bool
}

// BulkConfig bounds fan-out for bulk actions.
type BulkConfig struct {
	Concurrency int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")

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

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Webhook = WebhookConfig{
		ClerkSigningSecret: v.GetString("CLERK_WEBHOOK_SECRET"),
	}

	maxFileSize := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:              v.GetString("STORAGE_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		UploadURLTTL:     parseDuration(v.GetString("STORAGE_UPLOAD_URL_TTL"), 15*time.Minute),
		DownloadURLTTL:   parseDuration(v.GetString("STORAGE_DOWNLOAD_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxFileSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:          v.GetBool("ENABLE_NOTIFICATIONS"),
		PollInterval:     parseDuration(v.GetString("NOTIFICATIONS_POLL_INTERVAL"), 10*time.Second),
		BatchSize:        v.GetInt("NOTIFICATIONS_BATCH_SIZE"),
		Workers:          v.GetInt("NOTIFICATIONS_WORKERS"),
		MaxAttempts:      v.GetInt("NOTIFICATIONS_MAX_ATTEMPTS"),
		RetryDelay:       parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 30*time.Second),
		InlineRetries:    v.GetInt("NOTIFICATIONS_INLINE_RETRIES"),
		InlineRetryDelay: parseDuration(v.GetString("NOTIFICATIONS_INLINE_RETRY_DELAY"), 2*time.Second),
		EmailProvider:    v.GetString("EMAIL_PROVIDER"),
		SMSProvider:      v.GetString("SMS_PROVIDER"),
		FromEmail:        v.GetString("EMAIL_FROM_ADDRESS"),
		FromName:         v.GetString("EMAIL_FROM_NAME"),
		SendGridKey:      v.GetString("SENDGRID_API_KEY"),
		TwilioSID:        v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioToken:      v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       v.GetString("TWILIO_FROM_NUMBER"),
	}

	cfg.LiveKit = LiveKitConfig{
		APIKey:    v.GetString("LIVEKIT_API_KEY"),
		APISecret: v.GetString("LIVEKIT_API_SECRET"),
		URL:       v.GetString("LIVEKIT_URL"),
		TokenTTL:  parseDuration(v.GetString("LIVEKIT_TOKEN_TTL"), 2*time.Hour),
	}

	cfg.SupportConfigs = SupportConfigsConfig{
		CacheTTL: parseDuration(v.GetString("SUPPORT_CONFIG_CACHE_TTL"), 10*time.Minute),
		SeedFile: v.GetString("SUPPORT_CONFIG_SEED_FILE"),
	}

	cfg.Applications = ApplicationsConfig{
		AllowAdminOverride: v.GetBool("ENABLE_ADMIN_STATUS_OVERRIDE"),
	}

	cfg.Bulk = BulkConfig{
		Concurrency: v.GetInt("BULK_CONCURRENCY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects production settings that still carry development secrets.
func (c *Config) Validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	var problems []string
	if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
		problems = append(problems, "JWT_SECRET must be set")
	}
	if c.Storage.SignedURLSecret == "" || c.Storage.SignedURLSecret == devStorageSecret {
		problems = append(problems, "STORAGE_SIGNED_URL_SECRET must be set")
	}
	if c.Webhook.ClerkSigningSecret == "" {
		problems = append(problems, "CLERK_WEBHOOK_SECRET must be set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid production configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "foundation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "foundation-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLERK_WEBHOOK_SECRET", "")

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", devStorageSecret)
	v.SetDefault("STORAGE_UPLOAD_URL_TTL", "15m")
	v.SetDefault("STORAGE_DOWNLOAD_URL_TTL", "30m")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATIONS_POLL_INTERVAL", "10s")
	v.SetDefault("NOTIFICATIONS_BATCH_SIZE", 50)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "30s")
	v.SetDefault("NOTIFICATIONS_INLINE_RETRIES", 1)
	v.SetDefault("NOTIFICATIONS_INLINE_RETRY_DELAY", "2s")
	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("SMS_PROVIDER", "log")
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@foundation.local")
	v.SetDefault("EMAIL_FROM_NAME", "Foundation")

	v.SetDefault("LIVEKIT_URL", "ws://localhost:7880")
	v.SetDefault("LIVEKIT_TOKEN_TTL", "2h")

	v.SetDefault("SUPPORT_CONFIG_CACHE_TTL", "10m")
	v.SetDefault("SUPPORT_CONFIG_SEED_FILE", "")

	v.SetDefault("ENABLE_ADMIN_STATUS_OVERRIDE", true)
	v.SetDefault("BULK_CONCURRENCY", 4)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
