package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"policy-onboarding/internal/model"
	"policy-onboarding/internal/rules"
	"policy-onboarding/internal/wizard"
)

type (
	// Config holds the service settings
	Config struct {
		// API server
		Port     int
		LogLevel string
		Env      string

		// Backend
		BackendURL     string
		BackendTimeout time.Duration
		RefDataSource  string

		// Wizard
		Flow                 wizard.Flow
		Limits               rules.Limits
		DependentConcurrency int
	}
)

const (
	DefaultPort                 = 8080
	DefaultBackendURL           = "http://localhost:9000"
	DefaultBackendTimeout       = 10 * time.Second
	DefaultDependentConcurrency = 4
	MaxTCPPort                  = 65535

	RefDataStatic  = "static"
	RefDataBackend = "backend"
)

var (
	ErrInvalidPort           = errors.New("invalid port")
	ErrInvalidBackendURL     = errors.New("backend URL is required")
	ErrInvalidBackendTimeout = errors.New("backend timeout must be positive")
	ErrInvalidConcurrency    = errors.New(
		"dependent concurrency must be positive",
	)
	ErrInvalidFlow    = errors.New("invalid wizard flow")
	ErrInvalidLimit   = errors.New("relationship limit cannot be negative")
	ErrInvalidRefData = errors.New("invalid reference data source")
)

// NewDefaultConfig creates a configuration with the standard caps and a
// local backend
func NewDefaultConfig() *Config {
	return &Config{
		Port:                 DefaultPort,
		LogLevel:             "info",
		Env:                  "dev",
		BackendURL:           DefaultBackendURL,
		BackendTimeout:       DefaultBackendTimeout,
		RefDataSource:        RefDataStatic,
		Flow:                 wizard.FlowSplit,
		Limits:               rules.DefaultLimits(),
		DependentConcurrency: DefaultDependentConcurrency,
	}
}

// LoadFromEnv overrides values from environment variables. Returns an
// error if any variable cannot be parsed
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BACKEND_TIMEOUT: %w", err)
		}
		c.BackendTimeout = d
	}
	if v := os.Getenv("REFDATA_SOURCE"); v != "" {
		c.RefDataSource = v
	}
	if v := os.Getenv("WIZARD_FLOW"); v != "" {
		c.Flow = wizard.Flow(v)
	}
	if v := os.Getenv("DEPENDENT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEPENDENT_CONCURRENCY: %w", err)
		}
		c.DependentConcurrency = n
	}

	limits := map[string]model.Category{
		"LIMIT_SPOUSE":          model.CategorySpouse,
		"LIMIT_CHILD":           model.CategoryChild,
		"LIMIT_EXTENDED_FAMILY": model.CategoryExtended,
	}
	for env, cat := range limits {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		c.Limits[cat] = n
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.BackendURL == "" {
		return ErrInvalidBackendURL
	}
	if c.BackendTimeout <= 0 {
		return ErrInvalidBackendTimeout
	}
	if c.DependentConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if _, err := c.Flow.Steps(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}
	if c.RefDataSource != RefDataStatic && c.RefDataSource != RefDataBackend {
		return fmt.Errorf("%w: %q", ErrInvalidRefData, c.RefDataSource)
	}
	for cat, n := range c.Limits {
		if n < 0 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidLimit, cat, n)
		}
	}
	return nil
}
