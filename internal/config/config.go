package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the application, loaded once at startup.
type Config struct {
	// --- Server & Paths ---
	ServerAddr  string
	DataPath    string
	DbPath      string
	FrontendURL string

	// --- Security ---
	JwtSecret string

	// --- Email (SMTP) ---
	SmtpHost   string
	SmtpPort   int
	SmtpUser   string
	SmtpPass   string
	SmtpSender string

	// Parsed version of FrontendURL, used for CORS origin checks.
	ParsedFrontendURL *url.URL
}

// New loads configuration from environment variables. Critical values are
// validated here so the server fails fast instead of limping along
// half-configured.
func New() (*Config, error) {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))

	cfg := &Config{
		ServerAddr:  os.Getenv("SERVER_ADDR"),
		DataPath:    os.Getenv("DATA_PATH"),
		JwtSecret:   os.Getenv("JWT_SECRET"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		SmtpHost:    os.Getenv("SMTP_HOST"),
		SmtpPort:    port,
		SmtpUser:    os.Getenv("SMTP_USER"),
		SmtpPass:    os.Getenv("SMTP_PASS"),
		SmtpSender:  os.Getenv("SMTP_SENDER"),
	}

	if cfg.DataPath == "" {
		cfg.DataPath = "./data"
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	if cfg.JwtSecret == "" {
		return nil, errors.New("FATAL: JWT_SECRET environment variable is not set")
	}
	if cfg.FrontendURL == "" {
		return nil, errors.New("FATAL: FRONTEND_URL environment variable is not set")
	}

	parsedURL, err := url.Parse(cfg.FrontendURL)
	if err != nil {
		return nil, errors.New("FATAL: Invalid FRONTEND_URL format")
	}
	cfg.ParsedFrontendURL = parsedURL

	cfg.DbPath = filepath.Join(cfg.DataPath, "eventbridge.db")

	return cfg, nil
}
