package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/clienthealth/internal/database"
	"github.com/jask/clienthealth/internal/database/repository"
	"github.com/jask/clienthealth/internal/report"
)

// IngestService merges CSV exports into the stored report history.
type IngestService struct {
	DB  *sql.DB
	Log zerolog.Logger
}

type IngestResult struct {
	ImportID  string
	Type      report.Type
	Imported  int
	Updated   int
	Unchanged int
	Skipped   int
	Changes   int
	Errors    []error
}

// ImportFile imports the CSV at path as report type t.
func (s *IngestService) ImportFile(ctx context.Context, t report.Type, path string, importedAt time.Time) (IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s.Import(ctx, t, f, filepath.Base(path), importedAt)
}

// Import parses r against the schema of t and merges the rows into the
// store inside one transaction. A header mismatch rejects the whole file
// and leaves the store untouched. Rows without an id are skipped and
// reported in Errors. A zero importedAt means now.
func (s *IngestService) Import(ctx context.Context, t report.Type, r io.Reader, source string, importedAt time.Time) (IngestResult, error) {
	res := IngestResult{Type: t}
	schema, err := report.SchemaFor(t)
	if err != nil {
		return res, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", source, err)
	}
	parsed, err := report.ParseDetailed(string(data), schema)
	if err != nil {
		s.Log.Warn().Err(err).Str("report", string(t)).Str("source", source).Msg("import rejected")
		return res, fmt.Errorf("import %s: %w", t, err)
	}
	for _, line := range parsed.Unterminated {
		res.Errors = append(res.Errors, fmt.Errorf("line %d: unterminated quote", line))
		s.Log.Warn().Int("line", line).Str("source", source).Msg("unterminated quote")
	}

	incoming := make([]report.Record, 0, len(parsed.Records))
	for i, rec := range parsed.Records {
		if rec.ID() == "" {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Errorf("line %d: missing record id", parsed.Lines[i]))
			continue
		}
		incoming = append(incoming, rec)
	}

	if importedAt.IsZero() {
		importedAt = database.Now()
	}
	importedAt = importedAt.UTC()
	res.ImportID = uuid.NewString()

	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		reports := repository.NewReportRepo(tx)
		store, err := reports.Load(ctx, t)
		if err != nil {
			return err
		}
		merged, stats := report.MergeWithStats(store.Records, incoming, importedAt)
		store.Records = merged
		store.LastImportedAt = &importedAt
		if err := reports.Save(ctx, store); err != nil {
			return err
		}
		res.Imported, res.Updated, res.Unchanged, res.Changes = stats.Added, stats.Updated, stats.Unchanged, stats.Changes
		return repository.NewImportRepo(tx).Insert(ctx, repository.ImportLog{
			ID:         res.ImportID,
			ReportType: t,
			Source:     source,
			ImportedAt: importedAt,
			Imported:   res.Imported,
			Updated:    res.Updated,
			Unchanged:  res.Unchanged,
			Skipped:    res.Skipped,
			Changes:    res.Changes,
		})
	})
	if err != nil {
		return IngestResult{Type: t}, fmt.Errorf("import %s: %w", t, err)
	}

	s.Log.Info().
		Str("report", string(t)).
		Str("source", source).
		Str("import_id", res.ImportID).
		Int("imported", res.Imported).
		Int("updated", res.Updated).
		Int("unchanged", res.Unchanged).
		Int("skipped", res.Skipped).
		Int("changes", res.Changes).
		Msg("import complete")
	return res, nil
}

// Imports lists the import log, newest first.
func (s *IngestService) Imports(ctx context.Context, limit int) ([]repository.ImportLog, error) {
	return repository.NewImportRepo(s.DB).List(ctx, limit)
}

// Store returns the stored records of one report type.
func (s *IngestService) Store(ctx context.Context, t report.Type) (report.Store, error) {
	if _, err := report.SchemaFor(t); err != nil {
		return report.Store{}, err
	}
	return repository.NewReportRepo(s.DB).Load(ctx, t)
}

// Summaries reports the size of every store.
func (s *IngestService) Summaries(ctx context.Context) ([]repository.Summary, error) {
	return repository.NewReportRepo(s.DB).Summaries(ctx)
}
