package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
	User string // database username
	Pass string // database password (optional)
	Host string // database host address
	Port string // database port number
	Name string // database name
}

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env                  string        // application environment (e.g. "dev", "prod")
	Port                 string        // HTTP port to listen on
	Version              string        // reported by the health endpoint
	DB                   DBConfig      // database settings
	JWTSecret            string        // secret used to sign session tokens
	SessionTTL           time.Duration // session lifetime
	SessionStore         string        // "auto", "redis" or "mysql"
	BcryptCost           int           // bcrypt cost for password hashing
	DefaultAdminPassword string        // bootstrap password of the default admin
	CookieSecure         bool          // mark the session cookie Secure
	Events               EventsConfig  // RabbitMQ request events
}

// LoadDotEnv reads an optional .env file into the process environment.
// Variables already set take precedence.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loader collects every missing or malformed variable so that a single
// error reports all of them.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}

func (l *loader) err() error { return errors.Join(l.errs...) }

func (l *loader) db() DBConfig {
	return DBConfig{
		User: l.must("DB_USER"),
		Pass: os.Getenv("DB_PASS"),
		Host: l.must("DB_HOST"),
		Port: l.must("DB_PORT"),
		Name: l.must("DB_NAME"),
	}
}

// Load reads configuration values from environment variables.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:                  l.must("APP_ENV"),
		Port:                 l.must("APP_PORT"),
		Version:              envStr("APP_VERSION", "1.0.0"),
		DB:                   l.db(),
		JWTSecret:            l.must("JWT_SECRET"),
		SessionTTL:           time.Duration(envInt("SESSION_TTL_MIN", 24*60)) * time.Minute,
		SessionStore:         strings.ToLower(envStr("SESSION_STORE", "auto")),
		BcryptCost:           l.mustInt("BCRYPT_COST"),
		DefaultAdminPassword: envStr("DEFAULT_ADMIN_PASSWORD", "123456"),
		CookieSecure:         envBool("COOKIE_SECURE", false),
		Events:               LoadEventsConfig(),
	}
	switch cfg.SessionStore {
	case "auto", "redis", "mysql":
	default:
		l.errs = append(l.errs, fmt.Errorf("invalid SESSION_STORE %q (want auto, redis or mysql)", cfg.SessionStore))
	}
	if cfg.SessionTTL <= 0 {
		l.errs = append(l.errs, errors.New("SESSION_TTL_MIN must be positive"))
	}
	return cfg, l.err()
}

// LoadDB reads only the database settings; offline tools use it.
func LoadDB() (DBConfig, error) {
	var l loader
	db := l.db()
	return db, l.err()
}
