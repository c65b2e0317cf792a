package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	UseMemoryStore bool
	StorageTimeout time.Duration

	// DoctorsJSON seeds the doctor catalog when running without Postgres.
	DoctorsJSON string

	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	DoctorCacheTTL time.Duration

	// Clinic day
	ClinicTimezone  string
	ClinicOpenHour  int
	ClinicCloseHour int
	SlotStepMinutes int

	// Online consultations
	ConsultationFeeMinor int
	ConsultationCurrency string
	RazorpayKeyID        string
	RazorpayKeySecret    string
	GatewayTimeout       time.Duration

	PatientIDPrefix    string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),
		StorageTimeout: getEnvAsDuration("STORAGE_TIMEOUT", 5*time.Second),
		DoctorsJSON:    getEnv("DOCTORS_JSON", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		DoctorCacheTTL: getEnvAsDuration("DOCTOR_CACHE_TTL", 10*time.Minute),

		ClinicTimezone:  getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		ClinicOpenHour:  getEnvAsInt("CLINIC_OPEN_HOUR", 9),
		ClinicCloseHour: getEnvAsInt("CLINIC_CLOSE_HOUR", 17),
		SlotStepMinutes: getEnvAsInt("SLOT_STEP_MINUTES", 30),

		ConsultationFeeMinor: getEnvAsInt("CONSULTATION_FEE_MINOR", 99900),
		ConsultationCurrency: strings.ToUpper(getEnv("CONSULTATION_CURRENCY", "INR")),
		RazorpayKeyID:        getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:    getEnv("RAZORPAY_KEY_SECRET", ""),
		GatewayTimeout:       getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),

		PatientIDPrefix:    getEnv("PATIENT_ID_PREFIX", "RUBY"),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Easy Appointment"),
	}
}

// Validate reports configuration that would prevent the API from serving bookings.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" && !c.UseMemoryStore {
		errs = append(errs, errors.New("DATABASE_URL is required unless USE_MEMORY_STORE is set"))
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		errs = append(errs, fmt.Errorf("CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err))
	}
	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	if c.ConsultationFeeMinor <= 0 {
		errs = append(errs, errors.New("CONSULTATION_FEE_MINOR must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the clinic time zone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
