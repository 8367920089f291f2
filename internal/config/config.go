package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "Gatherly"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second

	defaultTokenTTL        = 24 * time.Hour
	defaultOTPCodeLength   = 6
	defaultOTPTTL          = 10 * time.Minute
	defaultOTPMaxAttempts  = 3
	defaultLoginRateLimit  = 5
	defaultResendRateLimit = 3
	defaultRateLimitWindow = time.Minute
	defaultSMSTimeout      = 5 * time.Second
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	TokenSecret string
	TokenTTL    time.Duration

	OTPCodeLength  int
	OTPTTL         time.Duration
	OTPMaxAttempts int

	LoginRateLimit  int
	ResendRateLimit int
	RateLimitWindow time.Duration

	SMSProvider      string // "log" or "twilio"
	SMSTimeout       time.Duration
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// Load reads configuration values from the environment and populates a Config
// instance. The token secret is always required; database and redis URLs are
// required outside development, where in-memory fallbacks exist.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,

		TokenSecret: os.Getenv("TOKEN_SECRET"),

		SMSProvider:      strings.ToLower(getEnv("SMS_PROVIDER", "log")),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWindow, err = durationEnv("RATE_LIMIT_WINDOW", defaultRateLimitWindow); err != nil {
		return Config{}, err
	}
	if cfg.SMSTimeout, err = durationEnv("SMS_TIMEOUT", defaultSMSTimeout); err != nil {
		return Config{}, err
	}
	if cfg.OTPCodeLength, err = intEnv("OTP_CODE_LENGTH", defaultOTPCodeLength); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = intEnv("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = intEnv("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.ResendRateLimit, err = intEnv("RESEND_RATE_LIMIT", defaultResendRateLimit); err != nil {
		return Config{}, err
	}

	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET must be set")
	}
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}
	if cfg.SMSProvider == "twilio" {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFrom == "" {
			return Config{}, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM must be set when SMS_PROVIDER=twilio")
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
