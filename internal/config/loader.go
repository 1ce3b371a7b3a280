package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates a failure parsing environment values into
	// their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is a diagnostic error type returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load builds and validates the configuration:
//  1. Enforce UTC to prevent calendar-date drift in invoice dates.
//  2. Load a .env file if present (non-fatal if missing; existing
//     environment variables win).
//  3. Process envconfig tags into the Config struct.
//  4. Validate the populated struct, including cross-field rules the
//     tags cannot express.
func Load() (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if cfg.Pagination.MinItemsPerPage > cfg.Pagination.MaxItemsPerPage {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "MIN_ITEMS_PER_PAGE must not exceed MAX_ITEMS_PER_PAGE",
		}
	}

	if cfg.Database.Mode == DBModeHosted && cfg.Hosted.URL == "" {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "HOSTED_SQL_URL is required when DB_MODE=hosted",
		}
	}

	return &cfg, nil
}
