package repository

import (
	"context"
	"fmt"

	"github.com/jask/clienthealth/internal/report"
)

// ImportRepo records one row per accepted import.
type ImportRepo struct {
	db DBTX
}

func NewImportRepo(db DBTX) *ImportRepo { return &ImportRepo{db: db} }

func (r *ImportRepo) Insert(ctx context.Context, l ImportLog) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_log(id, report_type, source, imported_at, imported, updated, unchanged, skipped, changes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.ReportType), l.Source, l.ImportedAt.UTC(), l.Imported, l.Updated, l.Unchanged, l.Skipped, l.Changes)
	if err != nil {
		return fmt.Errorf("insert import log: %w", err)
	}
	return nil
}

// List returns the most recent imports first. A zero limit returns all.
func (r *ImportRepo) List(ctx context.Context, limit int) ([]ImportLog, error) {
	query := `SELECT id, report_type, source, imported_at, imported, updated, unchanged, skipped, changes
	FROM import_log ORDER BY imported_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportLog
	for rows.Next() {
		l, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteByType drops the log rows of one report type.
func (r *ImportRepo) DeleteByType(ctx context.Context, t report.Type) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM import_log WHERE report_type = ?`, string(t))
	return err
}

func scanImport(row scanner) (ImportLog, error) {
	var l ImportLog
	var typ string
	if err := row.Scan(&l.ID, &typ, &l.Source, &l.ImportedAt, &l.Imported, &l.Updated, &l.Unchanged, &l.Skipped, &l.Changes); err != nil {
		return ImportLog{}, err
	}
	l.ReportType = report.Type(typ)
	l.ImportedAt = l.ImportedAt.UTC()
	return l, nil
}
