package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTPCodeLength != 6 {
		t.Errorf("OTPCodeLength = %d, want 6", cfg.OTPCodeLength)
	}
	if cfg.OTPTTL != 10*time.Minute {
		t.Errorf("OTPTTL = %v, want 10m", cfg.OTPTTL)
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d, want 3", cfg.OTPMaxAttempts)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.SMSProvider != "log" {
		t.Errorf("SMSProvider = %q, want log", cfg.SMSProvider)
	}
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("APP_ENV", "development")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing TOKEN_SECRET")
	}
}

func TestLoadRequiresStoresOutsideDev(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL in production")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("APP_ENV", "development")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("OTP_CODE_LENGTH", "4")
	t.Setenv("LOGIN_RATE_LIMIT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTPTTL != 5*time.Minute {
		t.Errorf("OTPTTL = %v, want 5m", cfg.OTPTTL)
	}
	if cfg.OTPCodeLength != 4 {
		t.Errorf("OTPCodeLength = %d, want 4", cfg.OTPCodeLength)
	}
	if cfg.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, want 10", cfg.LoginRateLimit)
	}

	t.Setenv("OTP_TTL", "nonsense")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid OTP_TTL")
	}
}
