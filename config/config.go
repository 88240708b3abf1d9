// Package config loads server configuration from a .env file and the
// environment, with sensible defaults for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        int           `mapstructure:"PORT"`
	Env         string        `mapstructure:"ENV"`
	DBPath      string        `mapstructure:"DB_PATH"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	TokenTTL    time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins []string      `mapstructure:"CORS_ORIGINS"`

	// Bootstrap admin account, created only when the users table is empty.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	// Letterhead shown on exported invoices.
	ClinicName    string `mapstructure:"CLINIC_NAME"`
	ClinicAddress string `mapstructure:"CLINIC_ADDRESS"`
	ClinicPhone   string `mapstructure:"CLINIC_PHONE"`

	// How often Pending invoices past their due date are swept to Overdue.
	OverdueSweepInterval time.Duration `mapstructure:"OVERDUE_SWEEP_INTERVAL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PATH", "clinic.db")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")
	v.SetDefault("ADMIN_EMAIL", "admin@clinic.local")
	v.SetDefault("CLINIC_NAME", "DentalDesk Clinic")
	v.SetDefault("CLINIC_ADDRESS", "")
	v.SetDefault("CLINIC_PHONE", "")
	v.SetDefault("OVERDUE_SWEEP_INTERVAL", "1h")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DB_PATH", "JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS",
		"ADMIN_EMAIL", "ADMIN_PASSWORD",
		"CLINIC_NAME", "CLINIC_ADDRESS", "CLINIC_PHONE",
		"OVERDUE_SWEEP_INTERVAL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper reads comma-separated origins as one string.
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "dev-only-secret-do-not-use-in-production"
	}
	if cfg.AdminPassword == "" && cfg.Env == "development" {
		cfg.AdminPassword = "admin12345"
	}

	return cfg, nil
}
