// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// OAuthClient holds the credentials registered with one external provider.
// A provider with an empty ClientID is treated as not configured.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

// Config holds all runtime configuration. It is constructed once at process
// start and passed by reference into the components that need it; nothing
// reads the environment after Load returns.
type Config struct {
	Env  string
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret      string // required, no default
	JWTAlgorithm   string // HS256 unless overridden
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	// OAuth maps provider name -> client credentials. Only providers with
	// credentials present in the environment appear here.
	OAuth map[string]OAuthClient
}

// Load reads configuration from environment variables. Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		JWTAlgorithm:   envStr("JWT_ALGORITHM", "HS256"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 30),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		OAuth:          map[string]OAuthClient{},
	}
	for _, p := range []struct{ name, idVar, secretVar string }{
		{"google", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"},
		{"github", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET"},
	} {
		id := os.Getenv(p.idVar)
		if id == "" {
			continue
		}
		cfg.OAuth[p.name] = OAuthClient{
			ClientID:     id,
			ClientSecret: os.Getenv(p.secretVar),
		}
	}
	return cfg
}

// AccessTTL and RefreshTTL expose the token lifetimes as durations.
func (c Config) AccessTTL() time.Duration  { return time.Duration(c.AccessTTLMin) * time.Minute }
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
