package app

import "github.com/handup/matchd/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the number of learning workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the feedback queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the feedback idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMinScore sets the match score threshold on the 0-1 scale.
func WithMinScore(score float64) Option {
	return func(s *Service) {
		if score > 0 && score < 1 {
			s.minScore = score
		}
	}
}

// WithScoringParallelism bounds concurrent candidate scoring per request.
func WithScoringParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLearningRate sets the weight update step size.
func WithLearningRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 && rate < 1 {
			s.learningRate = rate
		}
	}
}

// WithStore selects the persistence backend and, for sqlite, its path.
func WithStore(kind, sqlitePath string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
		if sqlitePath != "" {
			s.sqlitePath = sqlitePath
		}
	}
}

// WithInitialWeights overrides the default weight vector used when no
// persisted vector exists.
func WithInitialWeights(v map[string]float64) Option {
	return func(s *Service) {
		s.initialWeights = v
	}
}
