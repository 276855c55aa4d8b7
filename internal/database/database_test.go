package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/clienthealth/internal/report"
)

func TestMigrateAndSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(dbPath))
	require.NoError(t, RunMigrations(dbPath))

	require.NoError(t, SeedReportTypes(ctx, db))
	require.NoError(t, SeedReportTypes(ctx, db))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_stores`).Scan(&n))
	require.Equal(t, len(report.Types), n)
}

func TestRunMigrations_CreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "not-yet", "deeper", "test.db")
	require.NoError(t, RunMigrations(dbPath))
	require.FileExists(t, dbPath)

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM clients`).Scan(&n))
	require.Zero(t, n)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, RunMigrations(dbPath))

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO clients(id, name) VALUES ('c1', 'Acme')`); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n))
	require.Zero(t, n)
}
