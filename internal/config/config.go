// Package config defines service configuration and how it is loaded.
//
// Configuration is an explicit value built once at startup and passed down;
// nothing in the service reads credentials from globals.
package config

import (
	"context"
	"runtime"
	"time"
)

// Placeholder credentials shipped as defaults. A Config still carrying them
// has not been set up for a real project.
const (
	PlaceholderSupabaseURL = "https://your-project.supabase.co"
	PlaceholderSupabaseKey = "your-anon-key"
)

// Supported sinks.
const (
	SinkPostgREST = "postgrest"
	SinkPostgres  = "postgres"
	SinkDynamoDB  = "dynamodb"
	SinkMemory    = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Sink selects where batches are inserted.
	Sink string `koanf:"sink" validate:"oneof=postgrest postgres dynamodb memory"`
	// Table is the destination table.
	Table string `koanf:"table" validate:"required"`

	SupabaseURL string `koanf:"supabase_url" validate:"required_if=Sink postgrest,omitempty,url"`
	SupabaseKey string `koanf:"supabase_key" validate:"required_if=Sink postgrest"`

	PostgresDSN string `koanf:"postgres_dsn" validate:"required_if=Sink postgres"`

	DynamoDBRegion   string `koanf:"dynamodb_region"`
	DynamoDBEndpoint string `koanf:"dynamodb_endpoint" validate:"omitempty,url"`

	// DefaultLocation is stamped on records that carry none.
	DefaultLocation string `koanf:"default_location"`
	// SessionStrategy is how missing session ids are generated: content, timestamp or random.
	SessionStrategy string `koanf:"session_strategy" validate:"oneof=content timestamp random"`
	SessionPrefix   string `koanf:"session_prefix" validate:"required"`
	// CleanNames trims and NFC-normalizes food names and locations.
	CleanNames bool `koanf:"clean_names"`

	// DryRun logs batches instead of inserting them.
	DryRun bool `koanf:"dry_run"`

	// Timeout bounds one sink call.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// QueueSize bounds the async batch queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`
	// WorkerCount sets the number of async insert workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize is how many batch session ids are remembered to skip
	// replays. 0 disables the check.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MaxRecentLimit caps GET /food-waste/recent?limit.
	MaxRecentLimit int `koanf:"max_recent_limit" validate:"gt=0"`

	// CollectorURL is the OTLP gRPC endpoint; tracing is off when empty.
	CollectorURL      string `koanf:"collector_url"`
	CollectorInsecure bool   `koanf:"collector_insecure"`
}

// New creates a Config with defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		Sink:            SinkPostgREST,
		Table:           "food_waste",
		SupabaseURL:     PlaceholderSupabaseURL,
		SupabaseKey:     PlaceholderSupabaseKey,
		DynamoDBRegion:  "us-east-2",
		DefaultLocation: "Analysis",
		SessionStrategy: "content",
		SessionPrefix:   "analysis",
		Timeout:         10 * time.Second,
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		MaxRecentLimit:  1000,
	}
}

// HasPlaceholderCredentials reports whether the Supabase credentials were
// left at their shipped defaults.
func (c *Config) HasPlaceholderCredentials() bool {
	return c.SupabaseURL == PlaceholderSupabaseURL || c.SupabaseKey == PlaceholderSupabaseKey
}
