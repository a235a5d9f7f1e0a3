// Package weights holds the feature weight vector and its concurrency
// discipline: immutable snapshots for readers, a single serialized writer.
package weights

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/handup/matchd/internal/domain/model"
)

const (
	// Epsilon is the tolerance for the sum-to-one invariant.
	Epsilon = 1e-6

	// Floor is the minimum any weight may be clamped to during updates so
	// a feature never collapses to zero or negative.
	Floor = 0.01
)

// Vector maps a feature name to a non-negative weight. Outside of an
// in-flight update the weights sum to 1 within Epsilon.
type Vector map[string]float64

// Default returns the initial weight distribution.
func Default() Vector {
	return Vector{
		model.FeatureSkillMatch:     0.25,
		model.FeatureLocationMatch:  0.15,
		model.FeatureAvailability:   0.15,
		model.FeatureExperience:     0.10,
		model.FeatureCauseAlignment: 0.15,
		model.FeatureTimeCommitment: 0.10,
		model.FeatureRating:         0.10,
	}
}

// Sum returns the total of all weights.
func (v Vector) Sum() float64 {
	var sum float64
	for _, w := range v {
		sum += w
	}
	return sum
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, w := range v {
		out[k] = w
	}
	return out
}

// Validate checks that every weight is a finite non-negative number and the
// vector is non-empty.
func (v Vector) Validate() error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	for _, w := range v {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return ErrUnstableWeights
		}
		if w < 0 {
			return ErrNegativeWeight
		}
	}
	return nil
}

// Normalized returns a copy scaled so the weights sum to 1.
func (v Vector) Normalized() (Vector, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	sum := v.Sum()
	if sum <= 0 {
		return nil, ErrZeroSum
	}
	out := make(Vector, len(v))
	for k, w := range v {
		out[k] = w / sum
	}
	return out, nil
}

// Normal reports whether the vector sums to 1 within Epsilon.
func (v Vector) Normal() bool {
	return math.Abs(v.Sum()-1.0) <= Epsilon
}

// Store is the process-wide holder of the live weight vector. Readers take
// immutable snapshots; writers are serialized and only ever publish a fully
// renormalized vector, so no reader observes a partial update.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Vector]
}

// NewStore creates a store seeded with the given vector. The vector is
// normalized on write; invalid input falls back to Default().
func NewStore(initial Vector) *Store {
	s := &Store{}
	norm, err := initial.Normalized()
	if err != nil {
		norm = Default()
	}
	s.current.Store(&norm)
	return s
}

// Snapshot returns the current vector. The returned map must be treated as
// immutable; use Clone before mutating.
func (s *Store) Snapshot() Vector {
	return *s.current.Load()
}

// Replace validates, renormalizes and publishes a new vector.
func (s *Store) Replace(v Vector) (Vector, error) {
	norm, err := v.Normalized()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&norm)
	return norm, nil
}

// Update applies fn to a private copy of the current vector under the
// writer lock and publishes the normalized result. If fn or normalization
// fails the original vector is retained untouched.
func (s *Store) Update(fn func(Vector) error) (Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Snapshot().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	norm, err := next.Normalized()
	if err != nil {
		return nil, err
	}
	s.current.Store(&norm)
	return norm, nil
}
