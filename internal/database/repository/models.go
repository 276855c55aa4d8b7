package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so repositories can run inside
// database.WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ImportLog represents an import_log row.
type ImportLog struct {
	ID         string      `json:"id"`
	ReportType report.Type `json:"reportType"`
	Source     string      `json:"source"`
	ImportedAt time.Time   `json:"importedAt"`
	Imported   int         `json:"imported"`
	Updated    int         `json:"updated"`
	Unchanged  int         `json:"unchanged"`
	Skipped    int         `json:"skipped"`
	Changes    int         `json:"changes"`
}

// Snapshot represents a status_snapshots row.
type Snapshot struct {
	ID          string                                   `json:"id"`
	ClientID    string                                   `json:"clientId"`
	Status      scoring.Status                           `json:"status"`
	Total       float64                                  `json:"total"`
	Categories  map[scoring.Category]scoring.ScoreResult `json:"categories"`
	EvaluatedAt time.Time                                `json:"evaluatedAt"`
}

// scanner handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}
