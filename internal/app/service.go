// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handup/matchd/internal/adapters/directory"
	feedbackqueue "github.com/handup/matchd/internal/adapters/mq/queue"
	workerpool "github.com/handup/matchd/internal/adapters/mq/worker"
	"github.com/handup/matchd/internal/adapters/repository"
	"github.com/handup/matchd/internal/config"
	"github.com/handup/matchd/internal/domain/dedupe"
	"github.com/handup/matchd/internal/domain/learning"
	"github.com/handup/matchd/internal/domain/matching"
	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/weights"
	"github.com/handup/matchd/pkg/logger"
	"github.com/handup/matchd/pkg/metrics"
)

// Service wires the matching core to its adapters and owns the lifecycle
// of the process-wide weight vector: loaded from persistence on Start,
// flushed on Stop.
type Service struct {
	mu sync.RWMutex

	// Core components
	directory   *directory.Directory
	sink        repository.Sink
	weightStore *weights.Store
	matcher     *matching.Matcher
	learner     *learning.Engine
	deduper     dedupe.Deduper
	queue       *feedbackqueue.InMemoryQueue
	workerPool  *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	minScore       float64
	parallelism    int
	learningRate   float64
	storeKind      string
	sqlitePath     string
	initialWeights map[string]float64

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    10_000,
		dedupeSize:   50_000,
		minScore:     0.3,
		parallelism:  8,
		learningRate: 0.01,
		storeKind:    config.StoreMemory,
		sqlitePath:   "data/matchd.db",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. The weight vector
// is seeded from persistence when available, then from the configured
// override, then from the defaults.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting matching service...")

	sink, err := s.openSink()
	if err != nil {
		return fmt.Errorf("open persistence sink: %w", err)
	}
	s.sink = sink

	initial := weights.Default()
	if len(s.initialWeights) > 0 {
		initial = weights.Vector(s.initialWeights)
	}
	if persisted, found, err := s.sink.ReadWeights(ctx); err != nil {
		s.logger.Warn(ctx, "reading persisted weights failed, using defaults", logger.Error(err))
	} else if found {
		initial = weights.Vector(persisted)
		s.logger.Info(ctx, "restored persisted weight vector", logger.Int("features", len(persisted)))
	}
	s.weightStore = weights.NewStore(initial)

	s.directory = directory.New()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = feedbackqueue.NewInMemoryQueue(
		feedbackqueue.WithCapacity(s.queueSize),
	)
	s.matcher = matching.New(
		s.directory, s.directory, s.directory, s.sink, s.weightStore,
		matching.WithMinScore(s.minScore),
		matching.WithParallelism(s.parallelism),
	)
	s.learner = learning.New(
		s.sink, s.sink, s.weightStore,
		learning.WithLearningRate(s.learningRate),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, learnerFunc(s.applyFeedback))
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("store", s.storeKind),
	)

	return nil
}

func (s *Service) openSink() (repository.Sink, error) {
	if s.storeKind == config.StoreSQLite {
		return repository.OpenSQLite(s.sqlitePath)
	}
	return repository.NewMemStore(), nil
}

// Stop gracefully shuts down the service, flushing the live weight vector
// to the sink.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping matching service...")

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if s.weightStore != nil && s.sink != nil {
		if err := s.sink.WriteWeights(ctx, s.weightStore.Snapshot()); err != nil {
			s.logger.Error(ctx, "final weight flush failed", logger.Error(err))
		}
	}
	if s.sink != nil {
		_ = s.sink.Close()
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// learnerFunc adapts a function to the worker pool's Learner interface.
type learnerFunc func(ctx context.Context, event model.FeedbackEvent) (learning.Result, error)

func (f learnerFunc) Apply(ctx context.Context, event model.FeedbackEvent) (learning.Result, error) {
	return f(ctx, event)
}

// FindMatches returns ranked matches for the anchor.
func (s *Service) FindMatches(ctx context.Context, kind model.AnchorKind, anchorID string, limit int) ([]model.MatchResult, error) {
	return s.matcher.FindMatches(ctx, kind, anchorID, limit)
}

// RecordFeedback applies one feedback event synchronously and reports
// whether it was applied or skipped.
func (s *Service) RecordFeedback(ctx context.Context, event model.FeedbackEvent) (learning.Result, error) {
	return s.applyFeedback(ctx, event)
}

// applyFeedback runs the learning loop and, when the event was applied,
// folds the candidate's attributes into the anchor's personalization
// history.
func (s *Service) applyFeedback(ctx context.Context, event model.FeedbackEvent) (learning.Result, error) {
	result, err := s.learner.Apply(ctx, event)
	if err != nil || result != learning.ResultApplied {
		return result, err
	}

	outcome, ok := model.ParseOutcome(event.Outcome)
	if !ok {
		return result, nil
	}
	candidate, err := s.directory.GetProfile(ctx, event.CandidateID)
	if err != nil {
		// Candidate may have been removed; history is best-effort.
		return result, nil
	}
	s.directory.RecordOutcome(ctx, event.AnchorID, model.HistoryEntry{
		Causes:  candidate.Causes,
		Country: candidate.Country,
		City:    candidate.City,
		Urgency: candidate.Urgency,
		Outcome: outcome,
	})
	return result, nil
}

// EnqueueFeedback submits a feedback event for asynchronous processing.
// Returns false on backpressure.
func (s *Service) EnqueueFeedback(ctx context.Context, event model.FeedbackEvent) bool {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.TS.IsZero() {
		event.TS = time.Now().UTC()
	}
	ok := s.queue.Enqueue(ctx, event)
	if ok {
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return ok
}

// SeenAndRecord atomically checks if a feedback event id was seen and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordFeedbackDuplicate()
	}
	return seen
}

// Unrecord removes a feedback event id from the seen list, allowing a
// retry after enqueue backpressure.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Weights returns a snapshot of the live weight vector.
func (s *Service) Weights(ctx context.Context) map[string]float64 {
	return s.weightStore.Snapshot().Clone()
}

// SetWeights validates, renormalizes, publishes and persists an
// administrative weight override.
func (s *Service) SetWeights(ctx context.Context, v map[string]float64) (map[string]float64, error) {
	norm, err := s.weightStore.Replace(weights.Vector(v))
	if err != nil {
		return nil, err
	}
	if err := s.sink.WriteWeights(ctx, norm); err != nil {
		s.logger.Error(ctx, "weight persistence failed", logger.Error(err))
	}
	metrics.RecordWeightUpdate()
	return norm, nil
}

// AddProfile registers a volunteer or opportunity profile.
func (s *Service) AddProfile(ctx context.Context, p model.CandidateProfile) error {
	return s.directory.AddProfile(ctx, p)
}

// AddApplication links a volunteer to an opportunity, excluding the pair
// from future matching.
func (s *Service) AddApplication(ctx context.Context, volunteerID, opportunityID string) error {
	return s.directory.AddRelationship(ctx, volunteerID, opportunityID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"store":       s.storeKind,
	}

	if s.started {
		ctx := context.Background()
		volunteers, opportunities := s.directory.Counts()
		stats["volunteers"] = volunteers
		stats["opportunities"] = opportunities
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		stats["weights"] = s.weightStore.Snapshot().Clone()
	}

	return stats
}
