package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jobassist/jobassist/pkg/httpx"
)

type Config struct {
	AppName string // Optional: service name in logs and token issuer fallback (default: jobassist)
	Issuer  string // Optional: "iss" claim of every token (default: AppName)

	SecretKey    string // Optional: HS256 signing secret, >= 32 bytes. Empty generates an ephemeral key
	TokenHashKey string // Optional: HMAC key for refresh token fingerprints. Empty generates an ephemeral key

	AccessTokenTTL     time.Duration // default: 15m
	RefreshTokenTTL    time.Duration // default: 720h
	DeviceCookieTTL    time.Duration // default: 8760h
	ActivationTokenTTL time.Duration // default: 24h
	ResetTokenTTL      time.Duration // default: 1h

	DatabaseDriver string        // sqlite or postgres (default: sqlite)
	DatabaseFile   string        // SQLite database file (default: jobassist.db)
	DatabaseURL    string        // Postgres connection string
	DBTimeout      time.Duration // per ledger operation (default: 5s)
	PepperFile     string        // file holding the password pepper (default: ./pepper)

	FrontendURL string // prefix of the links sent by email

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	OpenAIAPIKey   string
	DeepSeekAPIKey string
	LLMBaseURL     string
	LLMModel       string
	LLMTimeout     time.Duration // default: 60s

	SMTPHost     string // empty logs mail instead of sending it
	SMTPPort     int    // default: 587
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	CookieSecure   bool   // default: true
	CookieDomain   string // default: host-only
	MaxUploadBytes int64  // default: 5 MiB

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	RequestTimeout       time.Duration // Per request deadline (default: 30s)

	RateLimits httpx.RateLimitProfiles
}

func LoadConfig() Config {
	cfg := Config{
		AppName:      getEnvOrDefault("APP_NAME", "jobassist"),
		Issuer:       os.Getenv("AUTH_ISSUER"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		TokenHashKey: os.Getenv("TOKEN_HASH_KEY"),

		AccessTokenTTL:     getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getEnvDurationOrDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		DeviceCookieTTL:    getEnvDurationOrDefault("DEVICE_COOKIE_TTL", 365*24*time.Hour),
		ActivationTokenTTL: getEnvDurationOrDefault("ACTIVATION_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:      getEnvDurationOrDefault("RESET_TOKEN_TTL", time.Hour),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "jobassist.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBTimeout:      getEnvDurationOrDefault("DB_TIMEOUT", 5*time.Second),
		PepperFile:     getEnvOrDefault("PEPPER_FILE", "pepper"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		DeepSeekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		LLMTimeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnvOrDefault("MAIL_FROM", "no-reply@jobassist.local"),

		CookieSecure:   getEnvBoolOrDefault("COOKIE_SECURE", true),
		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 5<<20)),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		RequestTimeout:       getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),

		RateLimits: httpx.RateLimitProfilesFromEnv(),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = cfg.AppName
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
