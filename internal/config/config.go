// Package config loads application configuration from environment
// variables.  Required variables are enforced by must(); missing values
// stop the process at startup rather than failing on the first request.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env           string        // application environment (dev/test/prod)
	Port          string        // HTTP port to listen on
	StoreBackend  string        // "mysql" (default) or "memory" for local dev
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret shared with the auth service
	ReserveTTL    time.Duration // default hold TTL when the client sends none
	SweepInterval time.Duration // expiry scheduler tick
}

// Load reads configuration from the environment.  Database variables are
// only required for the mysql backend.
func Load() Config {
	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		StoreBackend:  getenv("STORE_BACKEND", "mysql"),
		JWTSecret:     must("JWT_SECRET"),
		ReserveTTL:    time.Duration(envSeconds("RESERVE_TTL_SEC", 300)) * time.Second,
		SweepInterval: time.Duration(envSeconds("SWEEP_INTERVAL_SEC", 10)) * time.Second,
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envSeconds(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
