package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"required"`

	SheetsBackend       string `validate:"oneof=google xlsx"`
	SpreadsheetID       string
	DefaultTab          string
	ServiceAccountEmail string
	PrivateKey          string
	PrivateKeyB64       string
	WorkbookPath        string `validate:"required_if=SheetsBackend xlsx"`

	LeadsTab     string `validate:"required"`
	DupesTab     string `validate:"required"`
	UsersTab     string `validate:"required"`
	SignInLogTab string `validate:"required"`

	FrontendOrigins []string
	HTTPTimeout     time.Duration `validate:"gt=0"`
	Timezone        string
	Location        *time.Location `validate:"-"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		SheetsBackend:       strings.ToLower(getEnv("SHEETS_BACKEND", BackendGoogle)),
		SpreadsheetID:       getEnv("GOOGLE_SHEETS_ID", ""),
		DefaultTab:          getEnv("GOOGLE_SHEETS_TAB", ""),
		ServiceAccountEmail: getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		PrivateKey:          getEnv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY", ""),
		PrivateKeyB64:       getEnv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY_B64", ""),
		WorkbookPath:        getEnv("XLSX_WORKBOOK_PATH", ""),
		LeadsTab:            getEnv("GOOGLE_LEADS_SHEET_TAB", "Bayteca_leads_2026"),
		DupesTab:            getEnv("GOOGLE_DUPES_SHEET_TAB", "B2B Copy"),
		UsersTab:            getEnv("GOOGLE_USERS_SHEET_TAB", "Users"),
		SignInLogTab:        getEnv("SIGNIN_LOG_SHEET_TAB", "Sign in -Log Bayteca"),
		FrontendOrigins:     splitList(getEnv("FRONTEND_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		HTTPTimeout:         timeout,
		Timezone:            getEnv("REPORT_TIMEZONE", "UTC"),
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
