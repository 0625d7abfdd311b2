package config

import "time"

// KnowledgeConfig sizes the aggregate caches. Capacity applies to each cache space.
type KnowledgeConfig struct {
	Capacity int           `envconfig:"CAPACITY" default:"100000" validate:"min=1"`
	TTL      time.Duration `envconfig:"TTL" default:"15m" validate:"gt=0"`

	// MetricsInterval is how often cache sizes and evictions are exported.
	MetricsInterval time.Duration `envconfig:"METRICS_INTERVAL" default:"15s" validate:"gt=0"`
}
