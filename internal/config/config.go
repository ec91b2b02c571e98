package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel int      `env:"LOG_LEVEL" envDefault:"0"`
	HTTP     HTTP     `envPrefix:"HTTP_"`
	Database Database `envPrefix:"DATABASE_"`
	JWT      JWT      `envPrefix:"JWT_"`
	Login    LoginThrottle    `envPrefix:"LOGIN_THROTTLE_"`
	Register RegisterThrottle `envPrefix:"REGISTER_THROTTLE_"`
	Sweep    Sweep    `envPrefix:"SWEEP_"`
	Alerts   Alerts   `envPrefix:"ALERTS_"`
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	Port               string `env:"PORT" envDefault:"8080"`
	EnableHTTPS        bool   `env:"ENABLE_HTTPS" envDefault:"false"`
	CertFileName       string `env:"CERT_FILE_NAME" envDefault:"cert.pem"`
	PrivateKeyFileName string `env:"PRIVATE_KEY_FILE_NAME" envDefault:"key.pem"`
	RequestsPerSecond  int    `env:"REQUESTS_PER_SECOND" envDefault:"10"`
	RequestBurst       int    `env:"REQUEST_BURST" envDefault:"20"`
}

// Database contains database connection parameters. An empty DSN selects the
// in-memory registries.
type Database struct {
	DSN string `env:"DSN" envDefault:""`
}

// JWT contains token signing parameters.
type JWT struct {
	Secret     string        `env:"SECRET" envDefault:"devsecret"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
}

// LoginThrottle contains sliding-window limits for login attempts.
type LoginThrottle struct {
	Window         time.Duration `env:"WINDOW" envDefault:"15m"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	ResetOnSuccess bool          `env:"RESET_ON_SUCCESS" envDefault:"true"`
}

// RegisterThrottle contains sliding-window limits for registrations. Every
// registration counts as an attempt, so the counter never resets on success.
type RegisterThrottle struct {
	Window         time.Duration `env:"WINDOW" envDefault:"1h"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	ResetOnSuccess bool          `env:"RESET_ON_SUCCESS" envDefault:"false"`
}

// Sweep contains background cleanup intervals.
type Sweep struct {
	BlacklistInterval time.Duration `env:"BLACKLIST_INTERVAL" envDefault:"1h"`
	ThrottleInterval  time.Duration `env:"THROTTLE_INTERVAL" envDefault:"5m"`
	SessionInterval   time.Duration `env:"SESSION_INTERVAL" envDefault:"1h"`
	AlertInterval     time.Duration `env:"ALERT_INTERVAL" envDefault:"24h"`
}

// Alerts contains security alert retention parameters.
type Alerts struct {
	Retention time.Duration `env:"RETENTION" envDefault:"168h"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
