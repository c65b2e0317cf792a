package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "CLINIC_OPEN_HOUR", "CLINIC_CLOSE_HOUR", "SLOT_STEP_MINUTES", "CONSULTATION_FEE_MINOR", "STORAGE_TIMEOUT", "PATIENT_ID_PREFIX", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ClinicOpenHour != 9 || cfg.ClinicCloseHour != 17 || cfg.SlotStepMinutes != 30 {
		t.Fatalf("unexpected clinic day defaults: %d-%d step %d", cfg.ClinicOpenHour, cfg.ClinicCloseHour, cfg.SlotStepMinutes)
	}
	if cfg.ConsultationFeeMinor != 99900 || cfg.ConsultationCurrency != "INR" {
		t.Fatalf("unexpected fee defaults: %d %s", cfg.ConsultationFeeMinor, cfg.ConsultationCurrency)
	}
	if cfg.StorageTimeout != 5*time.Second {
		t.Fatalf("expected default storage timeout, got %s", cfg.StorageTimeout)
	}
	if cfg.PatientIDPrefix != "RUBY" {
		t.Fatalf("expected default patient prefix, got %s", cfg.PatientIDPrefix)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CLINIC_CLOSE_HOUR", "18")
	t.Setenv("STORAGE_TIMEOUT", "750ms")
	t.Setenv("CONSULTATION_CURRENCY", "usd")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.ClinicCloseHour != 18 {
		t.Fatalf("expected close hour override, got %d", cfg.ClinicCloseHour)
	}
	if cfg.StorageTimeout != 750*time.Millisecond {
		t.Fatalf("expected storage timeout override, got %s", cfg.StorageTimeout)
	}
	if cfg.ConsultationCurrency != "USD" {
		t.Fatalf("expected upper-cased currency, got %s", cfg.ConsultationCurrency)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.UseMemoryStore {
		t.Fatalf("expected memory store enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{ClinicTimezone: "UTC", StorageTimeout: time.Second, ConsultationFeeMinor: 100}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	cfg.UseMemoryStore = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected memory store config to validate, got %v", err)
	}

	cfg.ClinicTimezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected timezone error")
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback for unknown timezone")
	}
}

func TestLoadDoctorsJSON(t *testing.T) {
	t.Setenv("DOCTORS_JSON", `[{"id":"doc1","name":"Dr. Mehta"}]`)
	cfg := Load()
	if !strings.Contains(cfg.DoctorsJSON, "doc1") {
		t.Fatalf("expected doctors seed, got %q", cfg.DoctorsJSON)
	}
}
