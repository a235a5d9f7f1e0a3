// Package config defines service configuration structures and loading
// hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Store backend names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FeedbackQueueSize bounds the in-memory feedback queue.
	FeedbackQueueSize int `koanf:"feedback_queue_size"`

	// WorkerCount sets the number of learning workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the feedback idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MinScore is the match score threshold on the 0-1 scale.
	MinScore float64 `koanf:"min_score"`

	// MaxMatchLimit caps GET /matches?limit.
	MaxMatchLimit int `koanf:"max_match_limit"`

	// ScoringParallelism bounds concurrent candidate scoring per request.
	ScoringParallelism int `koanf:"scoring_parallelism"`

	// LearningRate is the fixed step size of the weight update.
	LearningRate float64 `koanf:"learning_rate"`

	// Store selects the persistence backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath locates the database file when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// Weights optionally overrides the initial feature weight vector. It
	// is renormalized on load; persisted weights take precedence.
	Weights map[string]float64 `koanf:"weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		FeedbackQueueSize:  10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		MinScore:           0.3,
		MaxMatchLimit:      50,
		ScoringParallelism: 8,
		LearningRate:       0.01,
		Store:              StoreMemory,
		SQLitePath:         "data/matchd.db",
	}
}
