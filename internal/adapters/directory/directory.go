// Package directory provides an in-memory profile registry implementing
// the matcher's provider ports: candidate profiles, relationships and
// outcome history.
package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/handup/matchd/internal/domain/model"
)

// Directory is a thread-safe in-memory profile store. In a larger
// deployment these ports would be backed by the profile service; the
// matching core only ever sees the narrow DTOs.
type Directory struct {
	mu sync.RWMutex

	profiles map[string]model.CandidateProfile
	// relationships is keyed volunteer id -> opportunity id set.
	relationships map[string]map[string]struct{}
	history       map[string][]model.HistoryEntry
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		profiles:      make(map[string]model.CandidateProfile),
		relationships: make(map[string]map[string]struct{}),
		history:       make(map[string][]model.HistoryEntry),
	}
}

// AddProfile registers or replaces a profile snapshot.
func (d *Directory) AddProfile(ctx context.Context, p model.CandidateProfile) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: kind must be volunteer or opportunity", ErrInvalidProfile)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = p
	return nil
}

// GetProfile returns the profile snapshot for an id.
func (d *Directory) GetProfile(ctx context.Context, id string) (model.CandidateProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[id]
	if !ok {
		return model.CandidateProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return p, nil
}

// ListCandidates returns every profile of the opposite kind, ordered by id
// for deterministic scoring input.
func (d *Directory) ListCandidates(ctx context.Context, anchor model.CandidateProfile) ([]model.CandidateProfile, error) {
	want := model.AnchorOpportunity
	if anchor.Kind == model.AnchorOpportunity {
		want = model.AnchorVolunteer
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.CandidateProfile, 0, len(d.profiles))
	for _, p := range d.profiles {
		if p.Kind == want {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddRelationship links a volunteer to an opportunity (e.g. an
// application). Linked pairs are excluded from matching in both
// directions.
func (d *Directory) AddRelationship(ctx context.Context, volunteerID, opportunityID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[volunteerID]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, volunteerID)
	}
	if _, ok := d.profiles[opportunityID]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, opportunityID)
	}
	set, ok := d.relationships[volunteerID]
	if !ok {
		set = make(map[string]struct{})
		d.relationships[volunteerID] = set
	}
	set[opportunityID] = struct{}{}
	return nil
}

// Exists reports whether the pair is linked, regardless of which side is
// the anchor.
func (d *Directory) Exists(ctx context.Context, anchorID, candidateID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if set, ok := d.relationships[anchorID]; ok {
		if _, linked := set[candidateID]; linked {
			return true, nil
		}
	}
	if set, ok := d.relationships[candidateID]; ok {
		if _, linked := set[anchorID]; linked {
			return true, nil
		}
	}
	return false, nil
}

// RecordOutcome appends a history entry for personalization.
func (d *Directory) RecordOutcome(ctx context.Context, userID string, entry model.HistoryEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history[userID] = append(d.history[userID], entry)
}

// Outcomes returns the user's recorded history.
func (d *Directory) Outcomes(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entries := d.history[userID]
	out := make([]model.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Counts returns profile totals per kind, for stats.
func (d *Directory) Counts() (volunteers, opportunities int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.profiles {
		switch p.Kind {
		case model.AnchorVolunteer:
			volunteers++
		case model.AnchorOpportunity:
			opportunities++
		}
	}
	return volunteers, opportunities
}
