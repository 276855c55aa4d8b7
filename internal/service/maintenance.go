package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jask/clienthealth/internal/database"
	"github.com/jask/clienthealth/internal/database/repository"
	"github.com/jask/clienthealth/internal/report"
)

// MaintenanceService houses destructive actions.
type MaintenanceService struct {
	DB  *sql.DB
	Log zerolog.Logger
}

// Reset empties the store of t together with its import log. An empty t
// resets every store. Clients and snapshots are kept.
func (s *MaintenanceService) Reset(ctx context.Context, t report.Type) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	types := report.Types
	if t != "" {
		if _, err := report.SchemaFor(t); err != nil {
			return err
		}
		types = []report.Type{t}
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		reports := repository.NewReportRepo(tx)
		imports := repository.NewImportRepo(tx)
		for _, typ := range types {
			if err := reports.Reset(ctx, typ); err != nil {
				return fmt.Errorf("reset %s: %w", typ, err)
			}
			if err := imports.DeleteByType(ctx, typ); err != nil {
				return fmt.Errorf("reset import log %s: %w", typ, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	s.Log.Info().Int("stores", len(types)).Msg("reset complete")
	return nil
}
