package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/clienthealth/internal/client"
	"github.com/jask/clienthealth/internal/database"
	"github.com/jask/clienthealth/internal/database/repository"
	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(dbPath))
	require.NoError(t, database.SeedReportTypes(context.Background(), db))
	return db
}

func TestReportRepo_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewReportRepo(setupDB(t))

	empty, err := repo.Load(ctx, report.TypeJiras)
	require.NoError(t, err)
	require.Empty(t, empty.Records)
	require.Nil(t, empty.LastImportedAt)

	t1 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 8, 9, 0, 0, 0, time.UTC)
	recs := report.Merge(nil, []report.Record{
		{report.FieldID: "J-2", report.FieldStatus: "Open"},
		{report.FieldID: "J-1", report.FieldStatus: "To Do", report.FieldOrganization: "Acme"},
	}, t1)
	recs = report.Merge(recs, []report.Record{{report.FieldID: "J-2", report.FieldStatus: "Done"}}, t2)

	store := report.Store{Type: report.TypeJiras, Records: recs, LastImportedAt: &t2}
	require.NoError(t, repo.Save(ctx, store))

	got, err := repo.Load(ctx, report.TypeJiras)
	require.NoError(t, err)
	require.Equal(t, report.TypeJiras, got.Type)
	require.NotNil(t, got.LastImportedAt)
	require.True(t, t2.Equal(*got.LastImportedAt))
	require.Len(t, got.Records, 2)
	require.Equal(t, "J-2", got.Records[0].ID())
	require.Equal(t, "Done", got.Records[0].Fields[report.FieldStatus])
	require.Equal(t, "Acme", got.Records[1].Fields[report.FieldOrganization])

	hist := got.Records[0].History[report.FieldStatus]
	require.Len(t, hist, 1)
	require.Equal(t, "Open", hist[0].From)
	require.Equal(t, "Done", hist[0].To)
	require.True(t, t2.Equal(hist[0].ChangedAt))

	other, err := repo.Load(ctx, report.TypeIncidents)
	require.NoError(t, err)
	require.Empty(t, other.Records)

	sums, err := repo.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, len(report.Types))
	for _, s := range sums {
		if s.Type == report.TypeJiras {
			require.Equal(t, 2, s.Records)
		} else {
			require.Zero(t, s.Records)
		}
	}

	require.NoError(t, repo.Reset(ctx, report.TypeJiras))
	got, err = repo.Load(ctx, report.TypeJiras)
	require.NoError(t, err)
	require.Empty(t, got.Records)
	require.Nil(t, got.LastImportedAt)
}

func TestReportRepo_SaveInsideTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupDB(t)
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		repo := repository.NewReportRepo(tx)
		s, err := repo.Load(ctx, report.TypeIncidents)
		if err != nil {
			return err
		}
		s.Records = report.Merge(s.Records, []report.Record{{report.FieldID: "INC-1"}}, now)
		s.LastImportedAt = &now
		return repo.Save(ctx, s)
	})
	require.NoError(t, err)

	got, err := repository.NewReportRepo(db).Load(ctx, report.TypeIncidents)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
}

func TestClientRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewClientRepo(setupDB(t))

	require.NoError(t, repo.Upsert(ctx, client.Client{ID: "c2", Name: "Zeta"}))
	require.NoError(t, repo.Upsert(ctx, client.Client{ID: "c1", Name: "D360", Aliases: []string{"Data 360", "D-360"}}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "D360", list[0].Name)
	require.Equal(t, []string{"D-360", "Data 360"}, list[0].Aliases)
	require.Empty(t, list[1].Aliases)

	require.NoError(t, repo.Upsert(ctx, client.Client{ID: "c1", Name: "D360", Aliases: []string{"DDD"}}))
	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"DDD"}, got.Aliases)

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, "c1"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestImportRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewImportRepo(setupDB(t))
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for i, typ := range []report.Type{report.TypeJiras, report.TypeIncidents, report.TypeJiras} {
		require.NoError(t, repo.Insert(ctx, repository.ImportLog{
			ID: string(rune('a' + i)), ReportType: typ, Source: "x.csv",
			ImportedAt: base.AddDate(0, 0, i), Imported: i + 1,
		}))
	}

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].ID)
	require.Equal(t, 3, list[0].Imported)
	require.True(t, base.AddDate(0, 0, 2).Equal(list[0].ImportedAt))

	list, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeleteByType(ctx, report.TypeJiras))
	list, err = repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, report.TypeIncidents, list[0].ReportType)
}

func TestSnapshotRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupDB(t)
	require.NoError(t, repository.NewClientRepo(db).Upsert(ctx, client.Client{ID: "c1", Name: "Acme"}))
	repo := repository.NewSnapshotRepo(db)

	none, err := repo.Latest(ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, none)

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, repository.Snapshot{
		ID: "s1", ClientID: "c1", Status: scoring.Green, EvaluatedAt: base,
		Categories: map[scoring.Category]scoring.ScoreResult{scoring.Jiras: scoring.NoData()},
	}))
	require.NoError(t, repo.Insert(ctx, repository.Snapshot{
		ID: "s2", ClientID: "c1", Status: scoring.Red, Total: 75, EvaluatedAt: base.Add(time.Hour),
		Categories: map[scoring.Category]scoring.ScoreResult{
			scoring.Tickets: {Status: scoring.Red, Score: 100, Reason: "1 critical open (red at 1)", Scored: true},
		},
	}))

	latest, err := repo.Latest(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "s2", latest.ID)
	require.Equal(t, scoring.Red, latest.Status)
	require.InDelta(t, 75.0, latest.Total, 1e-9)
	require.Equal(t, "1 critical open (red at 1)", latest.Categories[scoring.Tickets].Reason)
	require.True(t, latest.Categories[scoring.Tickets].Scored)

	hist, err := repo.History(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, "s1", hist[1].ID)
	require.Equal(t, "No data", hist[1].Categories[scoring.Jiras].Reason)
	require.False(t, hist[1].Categories[scoring.Jiras].Scored)
}
