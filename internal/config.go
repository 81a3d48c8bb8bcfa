package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nspace/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Ledger LedgerConfig      `yaml:"ledger"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Rent   RentConfig        `yaml:"rent"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Ledger, &c.SQLite, &c.Auth, &c.Rent, &c.SSE} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Timezone decides which calendar day "today" is. IANA name, default UTC.
	Timezone string     `yaml:"timezone"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(v any) error {
			_, err := time.LoadLocation(v.(string))
			return err
		})),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// Location returns the configured time zone, falling back to UTC.
func (c *ApplicationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LedgerConfig points at the directory of YAML ledger files.
type LedgerConfig struct {
	Path string `yaml:"path"`
	// Watch re-imports files as they change.
	Watch bool `yaml:"watch"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RentConfig tunes rent status derivation.
type RentConfig struct {
	InvoiceType string `yaml:"invoice_type"`
}

// Validate validates the rent configuration.
func (c *RentConfig) Validate() error {
	if c.InvoiceType == "" {
		c.InvoiceType = models.InvoiceTypeRent
	}
	return nil
}

// SSEConfig holds Server-Sent Events settings.
type SSEConfig struct {
	// Throttle is the minimum gap between activity.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	if c.Throttle < 0 {
		return errors.New("sse: throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Timezone: "UTC",
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Ledger: LedgerConfig{
			Path:  "./ledger",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./nspace.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Rent: RentConfig{
			InvoiceType: models.InvoiceTypeRent,
		},
		SSE: SSEConfig{
			Throttle: 2 * time.Second,
		},
	}
}
