package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jask/clienthealth/internal/report"
)

// ReportRepo persists one Store per report type.
type ReportRepo struct {
	db DBTX
}

func NewReportRepo(db DBTX) *ReportRepo { return &ReportRepo{db: db} }

// EnsureStore creates the empty store row for t when it does not exist yet.
func (r *ReportRepo) EnsureStore(ctx context.Context, t report.Type) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO report_stores(report_type) VALUES (?) ON CONFLICT(report_type) DO NOTHING`, string(t))
	return err
}

// Load returns the store for t. A missing store is returned empty.
func (r *ReportRepo) Load(ctx context.Context, t report.Type) (report.Store, error) {
	store := report.Store{Type: t}

	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT last_imported_at FROM report_stores WHERE report_type = ?`, string(t)).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store, nil
	case err != nil:
		return report.Store{}, fmt.Errorf("load store %s: %w", t, err)
	}
	if last.Valid {
		ts := last.Time.UTC()
		store.LastImportedAt = &ts
	}

	records, err := r.loadRecords(ctx, t)
	if err != nil {
		return report.Store{}, err
	}
	if err := r.loadHistory(ctx, t, records); err != nil {
		return report.Store{}, err
	}
	store.Records = records
	return store, nil
}

func (r *ReportRepo) loadRecords(ctx context.Context, t report.Type) ([]report.PersistedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fields FROM report_records WHERE report_type = ? ORDER BY position`, string(t))
	if err != nil {
		return nil, fmt.Errorf("load records %s: %w", t, err)
	}
	defer rows.Close()
	var out []report.PersistedRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var fields report.Record
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", t, err)
		}
		out = append(out, report.PersistedRecord{Fields: fields, History: map[string][]report.HistoryEntry{}})
	}
	return out, rows.Err()
}

func (r *ReportRepo) loadHistory(ctx context.Context, t report.Type, records []report.PersistedRecord) error {
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.ID()] = i
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT record_id, field, from_value, to_value, changed_at
	FROM record_history
	WHERE report_type = ?
	ORDER BY record_id, field, seq`, string(t))
	if err != nil {
		return fmt.Errorf("load history %s: %w", t, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, field string
		var e report.HistoryEntry
		if err := rows.Scan(&id, &field, &e.From, &e.To, &e.ChangedAt); err != nil {
			return err
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		e.ChangedAt = e.ChangedAt.UTC()
		records[i].History[field] = append(records[i].History[field], e)
	}
	return rows.Err()
}

// Save replaces the stored records of s.Type with s.Records. Run it inside
// a transaction together with the Load it merged against.
func (r *ReportRepo) Save(ctx context.Context, s report.Store) error {
	var last any
	if s.LastImportedAt != nil {
		last = s.LastImportedAt.UTC()
	}
	if _, err := r.db.ExecContext(ctx, `
	INSERT INTO report_stores(report_type, last_imported_at, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(report_type) DO UPDATE SET
	 last_imported_at=excluded.last_imported_at,
	 updated_at=excluded.updated_at;
	`, string(s.Type), last, time.Now().UTC()); err != nil {
		return fmt.Errorf("save store %s: %w", s.Type, err)
	}
	if err := r.clearRecords(ctx, s.Type); err != nil {
		return err
	}

	for pos, rec := range s.Records {
		raw, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID(), err)
		}
		if _, err := r.db.ExecContext(ctx, `
		INSERT INTO report_records(report_type, record_id, position, fields) VALUES (?, ?, ?, ?)`,
			string(s.Type), rec.ID(), pos, string(raw)); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID(), err)
		}
		for field, entries := range rec.History {
			for seq, e := range entries {
				if _, err := r.db.ExecContext(ctx, `
				INSERT INTO record_history(report_type, record_id, field, seq, from_value, to_value, changed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
					string(s.Type), rec.ID(), field, seq, e.From, e.To, e.ChangedAt.UTC()); err != nil {
					return fmt.Errorf("insert history %s.%s: %w", rec.ID(), field, err)
				}
			}
		}
	}
	return nil
}

// Reset empties the store for t and clears its import timestamp.
func (r *ReportRepo) Reset(ctx context.Context, t report.Type) error {
	if err := r.clearRecords(ctx, t); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE report_stores SET last_imported_at = NULL, updated_at = ? WHERE report_type = ?`, time.Now().UTC(), string(t))
	return err
}

func (r *ReportRepo) clearRecords(ctx context.Context, t report.Type) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM record_history WHERE report_type = ?`, string(t)); err != nil {
		return fmt.Errorf("clear history %s: %w", t, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM report_records WHERE report_type = ?`, string(t)); err != nil {
		return fmt.Errorf("clear records %s: %w", t, err)
	}
	return nil
}

// Summary is the size of one store.
type Summary struct {
	Type           report.Type `json:"type"`
	Records        int         `json:"records"`
	LastImportedAt *time.Time  `json:"lastImportedAt"`
}

// Summaries lists every known store with its record count.
func (r *ReportRepo) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT s.report_type, s.last_imported_at, COUNT(rr.record_id)
	FROM report_stores s
	LEFT JOIN report_records rr ON rr.report_type = s.report_type
	GROUP BY s.report_type, s.last_imported_at
	ORDER BY s.report_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var s Summary
		var typ string
		var last sql.NullTime
		if err := rows.Scan(&typ, &last, &s.Records); err != nil {
			return nil, err
		}
		s.Type = report.Type(typ)
		if last.Valid {
			ts := last.Time.UTC()
			s.LastImportedAt = &ts
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
