package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	httpadapter "github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/http"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the resolved runtime configuration for M60.
type Config struct {
	ServiceID string
	LogLevel  slog.Level

	HTTPPort       int
	GRPCPort       int
	PublicBaseURL  string
	AllowedOrigins []string
	TrustedProxies []string

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32
	AutoMigrate bool

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	JWTIssuer         string
	AllowEphemeralJWT bool

	BcryptCost         int
	AccessTokenTTL     time.Duration
	CustomerSessionTTL time.Duration
	FailedThreshold    int
	LockoutDuration    time.Duration

	CacheBackend     string
	RateLimitBackend string
	DedupBackend     string

	PublicRateLimit     int
	PublicRateWindow    time.Duration
	PrincipalRateLimit  int
	PrincipalRateWindow time.Duration

	DuplicateOrderWindow time.Duration
	IdempotencyTTL       time.Duration
	TableCodeLength      int
	TableCodeMaxAttempts int
	QRSize               int
	MenuCacheTTL         time.Duration

	KafkaBrokers []string
	KafkaTopics  map[string]string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	ArchiveSchedule  string
	PurgeSchedule    string
	ArchiveAfter     time.Duration
	ArchiveBatchSize int
}

type rateLimitFile struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID             string   `yaml:"id"`
		LogLevel       string   `yaml:"log_level"`
		HTTPPort       int      `yaml:"http_port"`
		GRPCPort       int      `yaml:"grpc_port"`
		PublicBaseURL  string   `yaml:"public_base_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		MaxDBConns   int32    `yaml:"max_db_conns"`
		AutoMigrate  *bool    `yaml:"auto_migrate"`
	} `yaml:"dependencies"`
	Auth struct {
		JWTKeyID             string        `yaml:"jwt_key_id"`
		JWTIssuer            string        `yaml:"jwt_issuer"`
		AllowEphemeralJWT    *bool         `yaml:"allow_ephemeral_jwt"`
		BcryptCost           int           `yaml:"bcrypt_cost"`
		AccessTokenTTL       time.Duration `yaml:"access_token_ttl"`
		CustomerSessionTTL   time.Duration `yaml:"customer_session_ttl"`
		FailedLoginThreshold int           `yaml:"failed_login_threshold"`
		LockoutDuration      time.Duration `yaml:"lockout_duration"`
	} `yaml:"auth"`
	Backends struct {
		Cache     string `yaml:"cache"`
		RateLimit string `yaml:"rate_limit"`
		Dedup     string `yaml:"dedup"`
	} `yaml:"backends"`
	RateLimits struct {
		Public    rateLimitFile `yaml:"public"`
		Principal rateLimitFile `yaml:"principal"`
	} `yaml:"rate_limits"`
	Ordering struct {
		DuplicateWindow      time.Duration `yaml:"duplicate_window"`
		IdempotencyTTL       time.Duration `yaml:"idempotency_ttl"`
		TableCodeLength      int           `yaml:"table_code_length"`
		TableCodeMaxAttempts int           `yaml:"table_code_max_attempts"`
		QRSize               int           `yaml:"qr_size"`
		MenuCacheTTL         time.Duration `yaml:"menu_cache_ttl"`
	} `yaml:"ordering"`
	Events struct {
		Topics             map[string]string `yaml:"topics"`
		OutboxPollInterval time.Duration     `yaml:"outbox_poll_interval"`
		OutboxBatchSize    int               `yaml:"outbox_batch_size"`
		OutboxClaimTTL     time.Duration     `yaml:"outbox_claim_ttl"`
		OutboxMaxRetries   int               `yaml:"outbox_max_retries"`
	} `yaml:"events"`
	Housekeeping struct {
		ArchiveSchedule string        `yaml:"archive_schedule"`
		PurgeSchedule   string        `yaml:"purge_schedule"`
		ArchiveAfter    time.Duration `yaml:"archive_after"`
		BatchSize       int           `yaml:"batch_size"`
	} `yaml:"housekeeping"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:            "M60-Restaurant-Ordering-Service",
		LogLevel:             slog.LevelInfo,
		HTTPPort:             8080,
		GRPCPort:             9090,
		PublicBaseURL:        "http://localhost:3000",
		MaxDBConns:           20,
		AutoMigrate:          true,
		JWTKeyID:             "m60-ordering-key-1",
		JWTIssuer:            "m60-restaurant-ordering",
		AllowEphemeralJWT:    true,
		BcryptCost:           12,
		AccessTokenTTL:       12 * time.Hour,
		CustomerSessionTTL:   4 * time.Hour,
		FailedThreshold:      5,
		LockoutDuration:      15 * time.Minute,
		CacheBackend:         BackendMemory,
		RateLimitBackend:     BackendMemory,
		DedupBackend:         BackendMemory,
		PublicRateLimit:      60,
		PublicRateWindow:     time.Minute,
		PrincipalRateLimit:   300,
		PrincipalRateWindow:  time.Minute,
		DuplicateOrderWindow: 10 * time.Second,
		IdempotencyTTL:       24 * time.Hour,
		TableCodeLength:      6,
		TableCodeMaxAttempts: 8,
		QRSize:               512,
		MenuCacheTTL:         5 * time.Minute,
		KafkaTopics:          map[string]string{},
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
		OutboxClaimTTL:       30 * time.Second,
		OutboxMaxRetries:     5,
		ArchiveSchedule:      "@every 15m",
		PurgeSchedule:        "@hourly",
		ArchiveAfter:         48 * time.Hour,
		ArchiveBatchSize:     500,
	}
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	setString(&cfg.ServiceID, f.Service.ID)
	if f.Service.LogLevel != "" {
		cfg.LogLevel = parseLevel(f.Service.LogLevel, cfg.LogLevel)
	}
	setInt(&cfg.HTTPPort, f.Service.HTTPPort)
	setInt(&cfg.GRPCPort, f.Service.GRPCPort)
	setString(&cfg.PublicBaseURL, f.Service.PublicBaseURL)
	if len(f.Service.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Service.AllowedOrigins
	}
	if len(f.Service.TrustedProxies) > 0 {
		cfg.TrustedProxies = f.Service.TrustedProxies
	}

	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Dependencies.MaxDBConns > 0 {
		cfg.MaxDBConns = f.Dependencies.MaxDBConns
	}
	if f.Dependencies.AutoMigrate != nil {
		cfg.AutoMigrate = *f.Dependencies.AutoMigrate
	}

	setString(&cfg.JWTKeyID, f.Auth.JWTKeyID)
	setString(&cfg.JWTIssuer, f.Auth.JWTIssuer)
	if f.Auth.AllowEphemeralJWT != nil {
		cfg.AllowEphemeralJWT = *f.Auth.AllowEphemeralJWT
	}
	setInt(&cfg.BcryptCost, f.Auth.BcryptCost)
	setDuration(&cfg.AccessTokenTTL, f.Auth.AccessTokenTTL)
	setDuration(&cfg.CustomerSessionTTL, f.Auth.CustomerSessionTTL)
	setInt(&cfg.FailedThreshold, f.Auth.FailedLoginThreshold)
	setDuration(&cfg.LockoutDuration, f.Auth.LockoutDuration)

	setString(&cfg.CacheBackend, f.Backends.Cache)
	setString(&cfg.RateLimitBackend, f.Backends.RateLimit)
	setString(&cfg.DedupBackend, f.Backends.Dedup)

	setInt(&cfg.PublicRateLimit, f.RateLimits.Public.Limit)
	setDuration(&cfg.PublicRateWindow, f.RateLimits.Public.Window)
	setInt(&cfg.PrincipalRateLimit, f.RateLimits.Principal.Limit)
	setDuration(&cfg.PrincipalRateWindow, f.RateLimits.Principal.Window)

	setDuration(&cfg.DuplicateOrderWindow, f.Ordering.DuplicateWindow)
	setDuration(&cfg.IdempotencyTTL, f.Ordering.IdempotencyTTL)
	setInt(&cfg.TableCodeLength, f.Ordering.TableCodeLength)
	setInt(&cfg.TableCodeMaxAttempts, f.Ordering.TableCodeMaxAttempts)
	setInt(&cfg.QRSize, f.Ordering.QRSize)
	setDuration(&cfg.MenuCacheTTL, f.Ordering.MenuCacheTTL)

	for event, topic := range f.Events.Topics {
		cfg.KafkaTopics[event] = topic
	}
	setDuration(&cfg.OutboxPollInterval, f.Events.OutboxPollInterval)
	setInt(&cfg.OutboxBatchSize, f.Events.OutboxBatchSize)
	setDuration(&cfg.OutboxClaimTTL, f.Events.OutboxClaimTTL)
	setInt(&cfg.OutboxMaxRetries, f.Events.OutboxMaxRetries)

	setString(&cfg.ArchiveSchedule, f.Housekeeping.ArchiveSchedule)
	setString(&cfg.PurgeSchedule, f.Housekeeping.PurgeSchedule)
	setDuration(&cfg.ArchiveAfter, f.Housekeeping.ArchiveAfter)
	setInt(&cfg.ArchiveBatchSize, f.Housekeeping.BatchSize)
}

func applyEnv(cfg *Config) {
	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.LogLevel = parseLevel(os.Getenv("LOG_LEVEL"), cfg.LogLevel)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.AllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.TrustedProxies = envCSV("TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)

	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.AccessTokenTTL = envDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.CustomerSessionTTL = envDuration("CUSTOMER_SESSION_TTL", cfg.CustomerSessionTTL)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute

	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(envOrDefault("CACHE_BACKEND", cfg.CacheBackend)))
	cfg.RateLimitBackend = strings.ToLower(strings.TrimSpace(envOrDefault("RATE_LIMIT_BACKEND", cfg.RateLimitBackend)))
	cfg.DedupBackend = strings.ToLower(strings.TrimSpace(envOrDefault("DEDUP_BACKEND", cfg.DedupBackend)))
	cfg.PublicRateLimit = envInt("RATE_LIMIT_PUBLIC", cfg.PublicRateLimit)
	cfg.PublicRateWindow = envDuration("RATE_LIMIT_PUBLIC_WINDOW", cfg.PublicRateWindow)
	cfg.PrincipalRateLimit = envInt("RATE_LIMIT_PRINCIPAL", cfg.PrincipalRateLimit)
	cfg.PrincipalRateWindow = envDuration("RATE_LIMIT_PRINCIPAL_WINDOW", cfg.PrincipalRateWindow)

	cfg.DuplicateOrderWindow = envDuration("DUPLICATE_ORDER_WINDOW", cfg.DuplicateOrderWindow)
	cfg.IdempotencyTTL = envDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.TableCodeLength = envInt("TABLE_CODE_LENGTH", cfg.TableCodeLength)
	cfg.TableCodeMaxAttempts = envInt("TABLE_CODE_MAX_ATTEMPTS", cfg.TableCodeMaxAttempts)
	cfg.QRSize = envInt("QR_SIZE", cfg.QRSize)
	cfg.MenuCacheTTL = envDuration("MENU_CACHE_TTL", cfg.MenuCacheTTL)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.ArchiveSchedule = envOrDefault("ARCHIVE_SCHEDULE", cfg.ArchiveSchedule)
	cfg.PurgeSchedule = envOrDefault("PURGE_SCHEDULE", cfg.PurgeSchedule)
	cfg.ArchiveAfter = envDuration("ARCHIVE_AFTER", cfg.ArchiveAfter)
	cfg.ArchiveBatchSize = envInt("ARCHIVE_BATCH_SIZE", cfg.ArchiveBatchSize)
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	for name, backend := range map[string]string{
		"cache":      c.CacheBackend,
		"rate_limit": c.RateLimitBackend,
		"dedup":      c.DedupBackend,
	} {
		if backend != BackendMemory && backend != BackendRedis {
			return fmt.Errorf("%s backend must be %q or %q, got %q", name, BackendMemory, BackendRedis, backend)
		}
	}
	if c.NeedsRedis() && c.RedisURL == "" {
		return fmt.Errorf("missing REDIS_URL for redis-backed backend")
	}
	if _, err := httpadapter.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	if (c.JWTPrivateKeyPEM == "" || c.JWTPublicKeyPEM == "") && !c.AllowEphemeralJWT {
		return fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	return nil
}

// NeedsRedis reports whether any backend is Redis-backed.
func (c Config) NeedsRedis() bool {
	return c.CacheBackend == BackendRedis || c.RateLimitBackend == BackendRedis || c.DedupBackend == BackendRedis
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func parseLevel(raw string, fallback slog.Level) slog.Level {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return fallback
	}
	return lvl
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration parses Go duration strings such as "90s" or "4h".
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
