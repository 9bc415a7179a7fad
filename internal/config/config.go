package config // loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; required ones abort startup when missing.
type Config struct {
	Env                string // application environment (dev/test/prod)
	Port               string // HTTP port to listen on
	DBUser             string // database username
	DBPass             string // database password (optional)
	DBHost             string // database host address
	DBPort             string // database port number
	DBName             string // database name
	JWTSecret          string // secret used to sign JWTs
	AccessTTLMin       int    // access token time-to-live in minutes
	RefreshTTLDays     int    // refresh token time-to-live in days
	BcryptCost         int    // bcrypt cost for password hashing
	MaxSeatsPerBooking int    // upper bound on seats in one booking request
	CancelWindowHours  int    // cancellations close this many hours before departure
}

// Load reads configuration from the environment. Required variables are
// enforced by must(); policy knobs fall back to sensible defaults.
func Load() Config {
	return Config{
		Env:                must("APP_ENV"),
		Port:               must("APP_PORT"),
		DBUser:             must("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"), // empty allowed
		DBHost:             must("DB_HOST"),
		DBPort:             must("DB_PORT"),
		DBName:             must("DB_NAME"),
		JWTSecret:          must("JWT_SECRET"),
		AccessTTLMin:       mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:     mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:         mustInt("BCRYPT_COST"),
		MaxSeatsPerBooking: envInt("MAX_SEATS_PER_BOOKING", 6),
		CancelWindowHours:  envInt("CANCEL_WINDOW_HOURS", 4),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but parses an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

