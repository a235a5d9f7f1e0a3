package matching

import "github.com/handup/matchd/pkg/logger"

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithMinScore sets the minimum final score (0-1 scale) a candidate must
// reach to appear in results.
func WithMinScore(score float64) Option {
	return func(m *Matcher) {
		if score > 0 && score < 1 {
			m.minScore = score
		}
	}
}

// WithMaxReasons caps the number of reason strings per result.
func WithMaxReasons(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxReasons = n
		}
	}
}

// WithParallelism bounds the number of candidates scored concurrently.
func WithParallelism(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.parallelism = n
		}
	}
}

// WithLogger sets a custom logger for the matcher.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}
