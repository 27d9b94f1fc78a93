// Package config loads service settings from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/hirableedge/go-auth"
)

// DevSecretKey is the placeholder signing secret used outside production
const DevSecretKey = "dev-secret-key-change-in-production"

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the service configuration, it satisfies auth.Config
type Config struct {
	Env  string     `env:"APP_ENV" envDefault:"development"`
	Auth AuthConfig `envPrefix:"AUTH_"`
	DB   DBConfig   `envPrefix:"DB_"`
	HTTP HTTPConfig `envPrefix:"HTTP_"`
	Log  LogConfig  `envPrefix:"LOG_"`
}

type AuthConfig struct {
	SecretKey                string   `env:"SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
	Algorithm                string   `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int      `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	Issuer                   string   `env:"ISSUER"`
	Audience                 []string `env:"AUDIENCE" envSeparator:","`
	BcryptCost               int      `env:"BCRYPT_COST" envDefault:"12"`
	DeterministicIDs         bool     `env:"DETERMINISTIC_IDS" envDefault:"false"`
	ContextKey               string   `env:"CONTEXT_KEY" envDefault:"user"`
	TokenLookup              string   `env:"TOKEN_LOOKUP" envDefault:"header:Authorization"`
	Scheme                   string   `env:"SCHEME" envDefault:"Bearer"`
}

type DBConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:hirable.db?cache=shared"`
}

type HTTPConfig struct {
	Addr          string   `env:"ADDR" envDefault:":8000"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	PhoneRegion   string   `env:"PHONE_REGION" envDefault:"US"`
	ShutdownGrace int      `env:"SHUTDOWN_GRACE_SECONDS" envDefault:"10"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

var _ auth.Config = Config{}

// Load reads an optional .env file and parses the environment
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	return Parse()
}

// Parse builds the configuration from the process environment
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, goerrors.Wrap(err, goerrors.CategoryValidation, "parse config")
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sanitize trims values and normalizes casing
func (c *Config) Sanitize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Auth.Algorithm = strings.ToUpper(strings.TrimSpace(c.Auth.Algorithm))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Auth.Audience = compact(c.Auth.Audience)
	c.HTTP.CORSOrigins = compact(c.HTTP.CORSOrigins)
}

// Validate checks the values that would otherwise fail at first use
func (c Config) Validate() error {
	var problems []string

	if c.IsProduction() && (c.Auth.SecretKey == "" || c.Auth.SecretKey == DevSecretKey) {
		problems = append(problems, "AUTH_SECRET_KEY must be set in production")
	}

	if c.Auth.SecretKey == "" {
		problems = append(problems, "AUTH_SECRET_KEY must not be empty")
	}

	if _, err := auth.SigningMethodFor(c.Auth.Algorithm); err != nil {
		problems = append(problems, fmt.Sprintf("AUTH_ALGORITHM %q is not supported", c.Auth.Algorithm))
	}

	if c.Auth.AccessTokenExpireMinutes <= 0 {
		problems = append(problems, "AUTH_ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if !slices.Contains([]string{DriverSQLite, DriverPostgres, DriverMemory}, c.DB.Driver) {
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.DB.Driver))
	}

	if c.DB.Driver != DriverMemory && c.DB.DSN == "" {
		problems = append(problems, "DB_DSN must be set")
	}

	if !slices.Contains([]string{"json", "console"}, c.Log.Format) {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT %q is not supported", c.Log.Format))
	}

	if len(problems) == 0 {
		return nil
	}

	return goerrors.New("invalid configuration", goerrors.CategoryValidation).
		WithTextCode("INVALID_CONFIG").
		WithMetadata(map[string]any{"problems": problems})
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.Auth.SecretKey != "" {
		out.Auth.SecretKey = "********"
	}
	return out
}

// String pretty prints the redacted configuration
func (c Config) String() string {
	return fmt.Sprint(print.MaybePrettyJSON(c.Redacted()))
}

func (c Config) GetSigningKey() string {
	return c.Auth.SecretKey
}

func (c Config) GetSigningMethod() string {
	return c.Auth.Algorithm
}

func (c Config) GetTokenExpiration() int {
	return c.Auth.AccessTokenExpireMinutes
}

func (c Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c Config) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

func (c Config) GetAuthScheme() string {
	return c.Auth.Scheme
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
