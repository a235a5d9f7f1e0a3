package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/handup/matchd/internal/domain/model"
)

//go:embed migrations/001_initial.sql
var initialMigration string

// SQLiteStore is a durable Sink backed by SQLite. Audit and learning
// records are append-only tables; weight vectors are stored as revisions
// with the newest one read back on startup.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path and runs
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrOpenDatabase, err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	// SQLite does not support concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrOpenDatabase, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='audit_records'
	`).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check migrations: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(initialMigration); err != nil {
			return fmt.Errorf("run initial migration: %w", err)
		}
	}
	return nil
}

// WriteAudit appends a match decision record.
func (s *SQLiteStore) WriteAudit(ctx context.Context, record model.AuditRecord) error {
	if record.AnchorID == "" || record.CandidateID == "" {
		return ErrEmptyRecord
	}
	features, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	weights, err := json.Marshal(record.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (match_id, anchor_id, candidate_id, features, weights, final_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.MatchID, record.AnchorID, record.CandidateID, string(features), string(weights), record.FinalScore, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ReadAudit returns the most recent audit record for the pair.
func (s *SQLiteStore) ReadAudit(ctx context.Context, anchorID, candidateID string) (model.AuditRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT match_id, anchor_id, candidate_id, features, weights, final_score, created_at
		FROM audit_records
		WHERE anchor_id = ? AND candidate_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, anchorID, candidateID)

	var (
		record   model.AuditRecord
		features string
		weights  string
	)
	err := row.Scan(&record.MatchID, &record.AnchorID, &record.CandidateID, &features, &weights, &record.FinalScore, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return model.AuditRecord{}, false, nil
	}
	if err != nil {
		return model.AuditRecord{}, false, fmt.Errorf("read audit record: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &record.Features); err != nil {
		return model.AuditRecord{}, false, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal([]byte(weights), &record.Weights); err != nil {
		return model.AuditRecord{}, false, fmt.Errorf("decode weights: %w", err)
	}
	return record, true, nil
}

// WriteLearning appends a learning audit entry.
func (s *SQLiteStore) WriteLearning(ctx context.Context, rec model.LearningRecord) error {
	weights, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learning_records (event_id, anchor_id, candidate_id, outcome, predicted, target, error, weights, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.EventID, rec.AnchorID, rec.CandidateID, rec.Outcome, rec.Predicted, rec.Target, rec.Error, string(weights), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert learning record: %w", err)
	}
	return nil
}

// WriteWeights stores the vector as a new revision.
func (s *SQLiteStore) WriteWeights(ctx context.Context, v map[string]float64) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weight_vectors (vector, created_at) VALUES (?, ?)
	`, string(encoded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert weight vector: %w", err)
	}
	return nil
}

// ReadWeights returns the newest stored vector.
func (s *SQLiteStore) ReadWeights(ctx context.Context) (map[string]float64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT vector FROM weight_vectors ORDER BY rowid DESC LIMIT 1
	`)
	var encoded string
	err := row.Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read weight vector: %w", err)
	}
	var v map[string]float64
	if err := json.Unmarshal([]byte(encoded), &v); err != nil {
		return nil, false, fmt.Errorf("decode weight vector: %w", err)
	}
	return v, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
