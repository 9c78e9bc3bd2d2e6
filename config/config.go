package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smbworks/erp-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Database backend names accepted in DB_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration values
type Config struct {
	ServerPort    string
	JWTSecret     string
	JWTExpiration time.Duration

	// Database
	DBBackend        string
	DatabaseURL      string
	PGSSLMode        string
	DBPoolMin        int32
	DBPoolMax        int32
	DBConnectTimeout time.Duration
	SQLitePath       string

	// API credentials
	APIKeyIterations int
	APIKeySaltBytes  int
	APIKeyKeyBytes   int
	StaticAPIKeys    []string
	AdminKey         string

	// Admin bootstrap
	AdminEmail    string
	AdminPassword string

	CORSOrigins []string

	// Login lockout
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if jwtSecret == "dev-insecure-secret-change-me" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the development placeholder!")
	}

	cfg := &Config{
		ServerPort:    strings.TrimPrefix(getEnv("SERVER_PORT", "8080"), ":"),
		JWTSecret:     jwtSecret,
		JWTExpiration: time.Minute * time.Duration(getEnvInt("JWT_EXPIRATION_MINUTES", 120, 1)),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PGSSLMode:        getEnv("PG_SSLMODE", ""),
		DBPoolMin:        int32(getEnvInt("DB_POOL_MIN", 1, 0)),
		DBPoolMax:        int32(getEnvInt("DB_POOL_MAX", 10, 1)),
		DBConnectTimeout: time.Second * time.Duration(getEnvInt("DB_CONNECT_TIMEOUT", 10, 1)),
		SQLitePath:       getEnv("SQLITE_PATH", "data/_dev_db.sqlite"),

		APIKeyIterations: getEnvInt("APIKEY_PBKDF2_ITER", 200000, 1),
		APIKeySaltBytes:  getEnvInt("APIKEY_SALT_BYTES", 16, 16),
		APIKeyKeyBytes:   getEnvInt("APIKEY_KEY_BYTES", 32, 16),
		StaticAPIKeys:    splitList(getEnv("API_KEYS", "")),
		AdminKey:         getEnv("ADMIN_KEY", ""),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5, 1),
		LoginLockout:     time.Minute * time.Duration(getEnvInt("LOGIN_LOCKOUT_MINUTES", 15, 1)),
	}

	if cfg.DBPoolMin > cfg.DBPoolMax {
		customLog.Warnf("DB_POOL_MIN (%d) exceeds DB_POOL_MAX (%d). Using %d for both.", cfg.DBPoolMin, cfg.DBPoolMax, cfg.DBPoolMax)
		cfg.DBPoolMin = cfg.DBPoolMax
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}

	backend, err := resolveBackend(getEnv("DB_BACKEND", ""), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	cfg.DBBackend = backend

	customLog.Printf("Configuration loaded successfully. Port: %s, DB backend: %s, JWT Exp: %v", cfg.ServerPort, cfg.DBBackend, cfg.JWTExpiration)
	return cfg, nil
}

// resolveBackend picks the database backend. An explicit DB_BACKEND wins; otherwise
// any Postgres connection setting selects postgres and the embedded file is the fallback.
func resolveBackend(explicit, dsn string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case BackendSQLite:
		return BackendSQLite, nil
	case BackendPostgres, "postgresql":
		return BackendPostgres, nil
	case "":
		if dsn != "" {
			return BackendPostgres, nil
		}
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_BACKEND %q: must be %q or %q", explicit, BackendSQLite, BackendPostgres)
	}
}

// dsnFromParts builds a postgres URL from PG_* variables. Returns "" when none are set.
func dsnFromParts() string {
	host := getEnv("PG_HOST", "")
	name := getEnv("PG_DB", "")
	user := getEnv("PG_USER", "")
	if host == "" && name == "" && user == "" {
		return ""
	}
	if host == "" {
		host = "localhost"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + getEnv("PG_PORT", "5432"),
		Path:   "/" + name,
	}
	if user != "" {
		if pw := getEnv("PG_PASSWORD", ""); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

// getEnv reads an environment variable or returns a default value. Blank
// values count as unset, matching getEnvInt.
func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// getEnvInt parses an integer variable, falling back to the default when it is
// missing, malformed or below min.
func getEnvInt(key string, fallback, min int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < min {
		customLog.Warnf("Invalid %s '%s'. Using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
