// Package repository defines the persistence boundary of the matching core
// and its implementations.
package repository

import (
	"context"

	"github.com/handup/matchd/internal/domain/model"
)

// Sink provides read/write access to audit records, learning records and
// weight vectors. The matching core performs no I/O itself; everything
// durable goes through here.
type Sink interface {
	// WriteAudit appends a match decision record. Records are immutable
	// once written.
	WriteAudit(ctx context.Context, record model.AuditRecord) error

	// ReadAudit returns the most recent audit record for the pair. The
	// boolean is false when the pair was never audited.
	ReadAudit(ctx context.Context, anchorID, candidateID string) (model.AuditRecord, bool, error)

	// WriteLearning appends a learning audit entry.
	WriteLearning(ctx context.Context, rec model.LearningRecord) error

	// WriteWeights stores a new weight vector revision.
	WriteWeights(ctx context.Context, v map[string]float64) error

	// ReadWeights returns the latest stored weight vector. The boolean is
	// false when none has been stored yet.
	ReadWeights(ctx context.Context) (map[string]float64, bool, error)

	// Close releases underlying resources.
	Close() error
}
