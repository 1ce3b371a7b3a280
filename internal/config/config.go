// Package config defines the global configuration for the invoicing
// dashboard. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from
// the OS environment, optionally seeded by a dotenv file. The database
// password is the one file-based secret, read once at pool construction.
package config

import "time"

// DBMode selects the connection backend for the whole process. It is a
// startup decision, never a per-call one.
type DBMode string

const (
	// DBModePool runs against a self-managed pgx connection pool.
	DBModePool DBMode = "pool"
	// DBModeHosted runs against the managed HTTP SQL endpoint.
	DBModeHosted DBMode = "hosted"
)

// Config is the top-level configuration struct, populated once during
// startup and never modified.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     ServerConfig
	Database   DatabaseConfig
	Hosted     HostedConfig
	Auth       AuthConfig
	Pagination PaginationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds the backend mode flag and the self-managed pool
// parameters. PasswordFile points at the secret mounted by the deployment.
type DatabaseConfig struct {
	Mode         DBMode `envconfig:"DB_MODE" default:"hosted" validate:"oneof=pool hosted"`
	Host         string `envconfig:"DB_HOST" default:"db"`
	Port         int    `envconfig:"DB_PORT" default:"5432"`
	Name         string `envconfig:"DB_NAME" default:"invoicedash"`
	User         string `envconfig:"DB_USER" default:"postgres"`
	PasswordFile string `envconfig:"DB_PASSWORD_FILE" default:"secret/postgres-password"`

	MaxConns int32 `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns int32 `envconfig:"DB_MIN_CONNS" default:"2"`

	// Startup/seeding retry policy for the first connection.
	ConnectRetries    int           `envconfig:"DB_CONNECT_RETRIES" default:"10"`
	ConnectRetryDelay time.Duration `envconfig:"DB_CONNECT_RETRY_DELAY" default:"1s"`
}

// HostedConfig holds the managed SQL endpoint location and credentials.
// Required only when Database.Mode is "hosted".
type HostedConfig struct {
	URL   string `envconfig:"HOSTED_SQL_URL" validate:"omitempty,url"`
	Token string `envconfig:"HOSTED_SQL_TOKEN"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// PaginationConfig bounds the invoice listing page size.
type PaginationConfig struct {
	ItemsPerPage    int `envconfig:"ITEMS_PER_PAGE" default:"6" validate:"min=1"`
	MinItemsPerPage int `envconfig:"MIN_ITEMS_PER_PAGE" default:"1" validate:"min=1"`
	MaxItemsPerPage int `envconfig:"MAX_ITEMS_PER_PAGE" default:"100" validate:"min=1"`
}
