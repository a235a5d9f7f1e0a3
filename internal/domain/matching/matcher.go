// Package matching orchestrates scoring across a candidate set: exclusion,
// thresholding, ranking and reason generation.
package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handup/matchd/internal/domain/feature"
	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/scoring"
	"github.com/handup/matchd/internal/domain/weights"
	"github.com/handup/matchd/pkg/logger"
	"github.com/handup/matchd/pkg/metrics"
)

// Default matcher configuration constants.
const (
	defaultMinScore    = 0.3
	defaultLimit       = 10
	defaultMaxReasons  = 4
	defaultParallelism = 8
	scoreScale         = 100.0
)

// CandidateProvider supplies profile snapshots. Candidate lists are assumed
// to be pre-filtered to active/eligible entries by the caller.
type CandidateProvider interface {
	GetProfile(ctx context.Context, id string) (model.CandidateProfile, error)
	ListCandidates(ctx context.Context, anchor model.CandidateProfile) ([]model.CandidateProfile, error)
}

// RelationshipProvider answers whether an anchor and candidate are already
// linked (e.g. by a prior application).
type RelationshipProvider interface {
	Exists(ctx context.Context, anchorID, candidateID string) (bool, error)
}

// HistoryProvider returns the anchor user's past outcomes for
// personalization.
type HistoryProvider interface {
	Outcomes(ctx context.Context, userID string) ([]model.HistoryEntry, error)
}

// AuditWriter records the decision trail before results are returned.
type AuditWriter interface {
	WriteAudit(ctx context.Context, record model.AuditRecord) error
}

// Matcher scores candidate sets against an anchor.
type Matcher struct {
	candidates    CandidateProvider
	relationships RelationshipProvider
	history       HistoryProvider
	audit         AuditWriter
	weights       *weights.Store

	minScore    float64
	maxReasons  int
	parallelism int

	logger logger.Logger
}

// New constructs a Matcher with default configuration.
func New(candidates CandidateProvider, relationships RelationshipProvider, history HistoryProvider, audit AuditWriter, store *weights.Store, opts ...Option) *Matcher {
	m := &Matcher{
		candidates:    candidates,
		relationships: relationships,
		history:       history,
		audit:         audit,
		weights:       store,
		minScore:      defaultMinScore,
		maxReasons:    defaultMaxReasons,
		parallelism:   defaultParallelism,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logger.Get().Named("matcher")
	}

	return m
}

// scored pairs a candidate with its computed scores before ranking.
type scored struct {
	candidate model.CandidateProfile
	features  model.FeatureScores
	final     float64
}

// FindMatches scores all eligible candidates for the anchor and returns the
// ranked, truncated result list. The weight vector is snapshotted once at
// the start so a concurrent update never tears a single decision.
func (m *Matcher) FindMatches(ctx context.Context, kind model.AnchorKind, anchorID string, limit int) ([]model.MatchResult, error) {
	if !kind.Valid() || anchorID == "" {
		return nil, fmt.Errorf("%w: anchor must be a volunteer or an opportunity", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordMatchRequest()

	anchor, err := m.candidates.GetProfile(ctx, anchorID)
	if err != nil {
		return nil, fmt.Errorf("load anchor profile %s: %w", anchorID, err)
	}

	candidates, err := m.candidates.ListCandidates(ctx, anchor)
	if err != nil {
		return nil, fmt.Errorf("list candidates for %s: %w", anchorID, err)
	}

	snapshot := m.weights.Snapshot()

	history, err := m.history.Outcomes(ctx, anchorID)
	if err != nil {
		// Personalization is best-effort; score without it.
		m.logger.Warn(ctx, "history lookup failed, scoring without personalization",
			logger.String("anchorID", anchorID),
			logger.Error(err),
		)
		history = nil
	}

	eligible := m.exclude(ctx, anchorID, candidates)
	results := m.scoreAll(ctx, anchor, eligible, snapshot, history)

	// Deterministic ranking: score descending, candidate id ascending.
	sort.Slice(results, func(i, j int) bool {
		if results[i].final != results[j].final {
			return results[i].final > results[j].final
		}
		return results[i].candidate.ID < results[j].candidate.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]model.MatchResult, 0, len(results))
	for _, r := range results {
		reasons := buildReasons(anchor, r.candidate, r.features, m.maxReasons)
		m.writeAudit(ctx, anchorID, r, snapshot)
		out = append(out, model.MatchResult{
			CandidateID: r.candidate.ID,
			Title:       r.candidate.Title,
			Score:       r.final * scoreScale,
			Reasons:     reasons,
		})
	}

	metrics.RecordMatchResults(len(out))
	return out, nil
}

// exclude drops candidates already linked to the anchor. Exclusion is hard:
// a linked candidate is never scored.
func (m *Matcher) exclude(ctx context.Context, anchorID string, candidates []model.CandidateProfile) []model.CandidateProfile {
	eligible := make([]model.CandidateProfile, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == anchorID {
			continue
		}
		linked, err := m.relationships.Exists(ctx, anchorID, c.ID)
		if err != nil {
			m.logger.Warn(ctx, "relationship check failed, including candidate",
				logger.String("candidateID", c.ID),
				logger.Error(err),
			)
		}
		if linked {
			metrics.RecordCandidateExcluded()
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible
}

// scoreAll runs the feature scorers over every eligible candidate. Scoring
// is stateless, so candidates are scored concurrently up to the configured
// parallelism; results below the minimum threshold are dropped.
func (m *Matcher) scoreAll(ctx context.Context, anchor model.CandidateProfile, candidates []model.CandidateProfile, snapshot weights.Vector, history []model.HistoryEntry) []scored {
	slots := make([]scored, len(candidates))

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.parallelism)
	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c model.CandidateProfile) {
			defer wg.Done()
			defer func() { <-sem }()

			features := feature.ScoreAll(anchor, c)
			boost := scoring.Boost(c, history)
			final := scoring.Final(features, snapshot, boost)
			slots[i] = scored{candidate: c, features: features, final: final}
			metrics.RecordCandidateScored()
		}(i, c)
	}
	wg.Wait()

	results := make([]scored, 0, len(slots))
	for _, s := range slots {
		if s.final < m.minScore {
			metrics.RecordCandidateBelowThreshold()
			continue
		}
		results = append(results, s)
	}
	return results
}

// writeAudit records the decision before the result is returned. The write
// is best-effort: a failure is logged and counted but never fails the
// scoring call; later feedback for the match will simply be skipped.
func (m *Matcher) writeAudit(ctx context.Context, anchorID string, r scored, snapshot weights.Vector) {
	record := model.AuditRecord{
		MatchID:     uuid.NewString(),
		AnchorID:    anchorID,
		CandidateID: r.candidate.ID,
		Features:    r.features.Clone(),
		Weights:     snapshot.Clone(),
		FinalScore:  r.final,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.audit.WriteAudit(ctx, record); err != nil {
		metrics.RecordAuditWriteError()
		m.logger.Error(ctx, "audit write failed",
			logger.String("anchorID", anchorID),
			logger.String("candidateID", r.candidate.ID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAuditWrite()
}
