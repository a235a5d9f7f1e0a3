package repository

import (
	"context"
	"sync"

	"github.com/handup/matchd/internal/domain/model"
)

// defaultLearningLogCap bounds the in-memory learning trail.
const defaultLearningLogCap = 10000

// MemStore is an in-memory Sink. It keeps the latest audit record per
// (anchor, candidate) pair and a bounded learning trail. Suitable for
// single-process deployments and tests.
type MemStore struct {
	mu sync.RWMutex

	audits      map[string]model.AuditRecord
	learning    []model.LearningRecord
	learningCap int
	weights     map[string]float64
	closed      bool
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithLearningLogCap bounds the number of retained learning records.
func WithLearningLogCap(n int) MemOption {
	return func(s *MemStore) {
		if n > 0 {
			s.learningCap = n
		}
	}
}

// NewMemStore creates an empty in-memory sink.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		audits:      make(map[string]model.AuditRecord),
		learningCap: defaultLearningLogCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pairKey(anchorID, candidateID string) string {
	return anchorID + "\x00" + candidateID
}

// WriteAudit stores the record as the latest decision for its pair.
func (s *MemStore) WriteAudit(ctx context.Context, record model.AuditRecord) error {
	if record.AnchorID == "" || record.CandidateID == "" {
		return ErrEmptyRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.audits[pairKey(record.AnchorID, record.CandidateID)] = record
	return nil
}

// ReadAudit returns the latest audit record for the pair.
func (s *MemStore) ReadAudit(ctx context.Context, anchorID, candidateID string) (model.AuditRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.AuditRecord{}, false, ErrClosed
	}
	record, ok := s.audits[pairKey(anchorID, candidateID)]
	return record, ok, nil
}

// WriteLearning appends a learning record, evicting the oldest entries once
// the cap is reached.
func (s *MemStore) WriteLearning(ctx context.Context, rec model.LearningRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.learning = append(s.learning, rec)
	if len(s.learning) > s.learningCap {
		s.learning = s.learning[len(s.learning)-s.learningCap:]
	}
	return nil
}

// WriteWeights stores the vector as the latest revision.
func (s *MemStore) WriteWeights(ctx context.Context, v map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	cp := make(map[string]float64, len(v))
	for k, w := range v {
		cp[k] = w
	}
	s.weights = cp
	return nil
}

// ReadWeights returns the latest stored vector.
func (s *MemStore) ReadWeights(ctx context.Context) (map[string]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	if s.weights == nil {
		return nil, false, nil
	}
	cp := make(map[string]float64, len(s.weights))
	for k, w := range s.weights {
		cp[k] = w
	}
	return cp, true, nil
}

// AuditCount returns the number of tracked pairs, for stats.
func (s *MemStore) AuditCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audits)
}

// LearningCount returns the number of retained learning records, for stats.
func (s *MemStore) LearningCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.learning)
}

// Close marks the store closed; subsequent calls fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
