package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jask/clienthealth/internal/scoring"
)

// SnapshotRepo stores evaluated client statuses.
type SnapshotRepo struct {
	db DBTX
}

func NewSnapshotRepo(db DBTX) *SnapshotRepo { return &SnapshotRepo{db: db} }

func (r *SnapshotRepo) Insert(ctx context.Context, s Snapshot) error {
	raw, err := json.Marshal(s.Categories)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO status_snapshots(id, client_id, status, total, categories, evaluated_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.ClientID, string(s.Status), s.Total, string(raw), s.EvaluatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot of clientID, or nil when none exists.
func (r *SnapshotRepo) Latest(ctx context.Context, clientID string) (*Snapshot, error) {
	list, err := r.History(ctx, clientID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// History returns snapshots of clientID newest first.
func (r *SnapshotRepo) History(ctx context.Context, clientID string, limit int) ([]Snapshot, error) {
	query := `SELECT id, client_id, status, total, categories, evaluated_at
	FROM status_snapshots WHERE client_id = ? ORDER BY evaluated_at DESC, rowid DESC`
	args := []any{clientID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var s Snapshot
	var status, raw string
	if err := row.Scan(&s.ID, &s.ClientID, &status, &s.Total, &raw, &s.EvaluatedAt); err != nil {
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	s.Status = scoring.Status(status)
	s.EvaluatedAt = s.EvaluatedAt.UTC()
	if err := json.Unmarshal([]byte(raw), &s.Categories); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
