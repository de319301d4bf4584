package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env                string // application environment (e.g. "dev", "prod")
	Port               string // HTTP port to listen on
	DBUser             string // database username
	DBPass             string // database password (optional)
	DBHost             string // database host address
	DBPort             string // database port number
	DBName             string // database name
	AccessTokenSecret  string // secret used to sign access JWTs
	AccessTTLMin       int    // access token time-to-live in minutes
	RefreshTokenSecret string // secret used to sign refresh JWTs
	RefreshTTLDays     int    // refresh token time-to-live in days
	BcryptCost         int    // bcrypt cost for password hashing
	SMTPHost           string // SMTP server host (optional; mail disabled when empty)
	SMTPPort           int    // SMTP server port
	SMTPUser           string // SMTP username
	SMTPPass           string // SMTP password
	SMTPSender         string // From address on outbound mail
	CORSOrigin         string // allowed CORS origin ("*" when unset)
	RabbitURL          string // AMQP broker URL (optional; events disabled when empty)
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing or malformed required variables are collected and
// reported in a single error so startup failures name everything at once
// instead of dying on the first gap.
func Load() (Config, error) {
	var missing []string

	str := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}
	num := func(key string) int {
		s := str(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			missing = append(missing, key+" (not an int)")
		}
		return n
	}

	cfg := Config{
		Env:                str("APP_ENV"),
		Port:               str("APP_PORT"),
		DBUser:             str("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"), // empty allowed
		DBHost:             str("DB_HOST"),
		DBPort:             str("DB_PORT"),
		DBName:             str("DB_NAME"),
		AccessTokenSecret:  str("ACCESS_TOKEN_SECRET"),
		AccessTTLMin:       num("ACCESS_TOKEN_TTL_MIN"),
		RefreshTokenSecret: str("REFRESH_TOKEN_SECRET"),
		RefreshTTLDays:     num("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:         num("BCRYPT_COST"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           optInt("SMTP_PORT", 587),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		SMTPSender:         optStr("SMTP_SENDER", "mail.taskmanager@example.com"),
		CORSOrigin:         optStr("CORS_ORIGIN", "*"),
		RabbitURL:          os.Getenv("RABBITMQ_URL"),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing or invalid env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// optStr returns the value of an optional environment variable or the given
// default when unset.
func optStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// optInt is like optStr for integer variables.  Malformed values fall back
// to the default as well.
func optInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
