package infra

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Identity
	Name string `env:"SERVER_NAME" envDefault:"spinforge"`

	// HTTP server
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"3200"`
	ServerPath  string `env:"SERVER_PATH" envDefault:"/game"`
	CacheOn     bool   `env:"SERVER_CACHE" envDefault:"true"`
	CORSOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"spinforge"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"spinforge"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"spinforge"`

	// Database pool sizing
	PGMaxConns        int32 `env:"PG_MAX_CONNS" envDefault:"20"`
	PGMinConns        int32 `env:"PG_MIN_CONNS" envDefault:"2"`
	PGConnLifetimeMin int   `env:"PG_CONN_LIFETIME_MIN" envDefault:"30"`
	PGConnIdleMin     int   `env:"PG_CONN_IDLE_MIN" envDefault:"5"`

	// Redis sequence backend (optional; Postgres sequences when unset)
	RedisName     string `env:"REDIS_NAME"`
	RedisIP       string `env:"REDIS_IP"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Session tokens
	TokenSecret string `env:"TOKEN_SECRET" envDefault:"change-me-in-production"`

	// Tournament server
	TourURL      string `env:"TOUR_URL"`
	TourIP       string `env:"TOUR_IP"`
	TourName     string `env:"TOUR_NAME"`
	TourPassword string `env:"TOUR_PASSWORD"`
	TourLogged   bool   `env:"TOUR_LOGGED" envDefault:"false"`
	TourServer   string `env:"TOUR_SERVER"`

	// Admin
	HistoryLimit int `env:"ADMIN_HISTORY_LIMIT" envDefault:"20"`

	// IP geolocation service
	IPServiceURL string `env:"IP_SERVICE_URL"`
	IPServiceKey string `env:"IP_SERVICE_KEY"`

	// Session registry
	CleanSec int `env:"DISPATCHER_CLEAN_SEC" envDefault:"3600"`

	// Wallet proxy
	StartAmount   int64  `env:"PROXY_START_AMOUNT" envDefault:"3000"`
	ProxyCurrency string `env:"PROXY_CURRENCY"`

	// Per-game config rows enabled
	GameConfig bool `env:"GAME_CONFIG" envDefault:"false"`

	// Launch URL building
	GamesDir       string `env:"LAUNCH_GAMES_DIR" envDefault:"/games"`
	GamesDirNoJack string `env:"LAUNCH_GAMES_DIR_NO_JACK" envDefault:"/games-nj"`
	ServiceLegacy  bool   `env:"LAUNCH_SERVICE_LEGACY" envDefault:"false"`
	GamesDomain    string `env:"LAUNCH_GAMES_DOMAIN"`
	ServiceName    string `env:"LAUNCH_SERVICE_NAME"`
	CuracaoOn      bool   `env:"LAUNCH_CURACAO_ON" envDefault:"false"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.TokenSecret == "change-me-in-production" {
		return fmt.Errorf("TOKEN_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.TokenSecret) < 16 {
		return fmt.Errorf("TOKEN_SECRET is too short (%d chars); minimum 16 characters required", len(c.TokenSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// RedisEnabled reports whether the Redis sequence backend is configured.
func (c *Config) RedisEnabled() bool { return c.RedisIP != "" }

// RedisURL builds the connection URL from the redis options.
func (c *Config) RedisURL() string {
	return fmt.Sprintf("redis://%s:%s@%s", c.RedisName, c.RedisPassword, c.RedisIP)
}
