package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ObservabilityConfig holds configuration for the observability server
// (probes and metrics). It listens apart from the API and is never behind
// the API key middleware.
type ObservabilityConfig struct {
	// Host and Port define where the observability server listens.
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"9090"`

	// Timeout applies to reads and writes. Idle connections are kept three times as long.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"min=1s"`

	// ReadinessTimeout bounds one readiness probe. Checkers (rules database,
	// ledger, Redis) run concurrently under it. Must be shorter than Timeout.
	ReadinessTimeout time.Duration `envconfig:"READINESS_TIMEOUT" default:"2s" validate:"gt=0"`

	// LivenessPath is the HTTP path for k8s liveness probe.
	LivenessPath string `envconfig:"LIVENESS_PATH" default:"/healthz"`

	// ReadinessPath is the HTTP path for k8s readiness probe.
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`

	// MetricsPath is the HTTP path for Prometheus scraping.
	MetricsPath string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Address returns host:port for the listener.
func (o *ObservabilityConfig) Address() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// Validate checks ObservabilityConfig fields for correctness.
func (o *ObservabilityConfig) Validate() error {
	if err := validatePort(o.Port, "observability"); err != nil {
		return err
	}

	if o.ReadinessTimeout >= o.Timeout {
		return fmt.Errorf("observability readiness timeout (%s) must be shorter than the server timeout (%s)",
			o.ReadinessTimeout, o.Timeout)
	}

	seen := make(map[string]string, 3)
	for name, path := range map[string]string{
		"liveness":  o.LivenessPath,
		"readiness": o.ReadinessPath,
		"metrics":   o.MetricsPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("observability %s path must start with '/', got %q", name, path)
		}
		if other, dup := seen[path]; dup {
			return fmt.Errorf("observability %s and %s paths must differ, both are %q", other, name, path)
		}
		seen[path] = name
	}

	return nil
}
