package config

import (
	"encoding/hex"
	"fmt"
	"time"
)

// APIServerConfig configures the REST API server.
type APIServerConfig struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `envconfig:"MAX_HEADER_BYTES" default:"524288" validate:"min=1"` // 512KB

	// Security
	APIKeyHash  string `envconfig:"API_KEY_HASH"`
	DisableAuth bool   `envconfig:"DISABLE_AUTH" default:"false"`
	TLSEnabled  bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCert     string `envconfig:"TLS_CERT_FILE"`
	TLSKey      string `envconfig:"TLS_KEY_FILE"`
}

// Address returns host:port for the listener.
func (c *APIServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// AuthEnabled reports whether administrative routes require an API key.
// Authentication can never be disabled in production.
func (c *APIServerConfig) AuthEnabled(environment string) bool {
	return environment == EnvironmentProduction || !c.DisableAuth
}

// Validate performs validation on the APIServerConfig.
func (c *APIServerConfig) Validate(environment string) error {
	if err := validatePort(c.Port, "api"); err != nil {
		return err
	}

	if err := validateHost(c.Host, "api"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if c.DisableAuth {
			return fmt.Errorf("API authentication cannot be disabled in production environment")
		}
		if !c.TLSEnabled {
			return fmt.Errorf("TLS must be enabled in production environment")
		}
	}

	if c.AuthEnabled(environment) {
		if c.APIKeyHash == "" {
			return fmt.Errorf("API key hash is required when authentication is enabled")
		}
		if err := validateSHA256Hash(c.APIKeyHash); err != nil {
			return fmt.Errorf("invalid API key hash: %w", err)
		}
	}

	if c.TLSEnabled && (c.TLSCert == "" || c.TLSKey == "") {
		return fmt.Errorf("TLS enabled but cert or key file not specified")
	}

	return nil
}

// validateSHA256Hash checks if the hash is a valid SHA-256 hex string (64 hex characters)
func validateSHA256Hash(hash string) error {
	if len(hash) != 64 {
		return fmt.Errorf("SHA-256 hash must be 64 characters, got %d", len(hash))
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("hash must be valid hexadecimal: %w", err)
	}
	return nil
}
