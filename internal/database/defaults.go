package database

import (
	"context"
	"database/sql"

	"github.com/jask/clienthealth/internal/database/repository"
	"github.com/jask/clienthealth/internal/report"
)

// SeedReportTypes ensures an empty store exists for every report type.
// It is idempotent and safe to run on every startup.
func SeedReportTypes(ctx context.Context, db *sql.DB) error {
	repo := repository.NewReportRepo(db)
	for _, t := range report.Types {
		if err := repo.EnsureStore(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
