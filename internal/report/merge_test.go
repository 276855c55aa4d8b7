package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	firstImport  = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	secondImport = time.Date(2026, 10, 8, 9, 0, 0, 0, time.UTC)
)

func TestMerge_NewRecordsStartWithEmptyHistory(t *testing.T) {
	t.Parallel()

	out := Merge(nil, []Record{
		{FieldID: "T-1", FieldStatus: "Open"},
		{FieldID: "T-2", FieldStatus: "New"},
	}, firstImport)

	require.Len(t, out, 2)
	require.Equal(t, "T-1", out[0].ID())
	require.Equal(t, "T-2", out[1].ID())
	require.Empty(t, out[0].History)
}

func TestMerge_AppendsOneHistoryEntryPerChangedField(t *testing.T) {
	t.Parallel()

	existing := Merge(nil, []Record{
		{FieldID: "T-1", FieldStatus: "Open", FieldPriority: "High", FieldAssignee: "amy"},
	}, firstImport)

	out := Merge(existing, []Record{
		{FieldID: "T-1", FieldStatus: "Closed", FieldPriority: "High"},
	}, secondImport)

	require.Len(t, out, 1)
	rec := out[0]
	require.Equal(t, "Closed", rec.Fields[FieldStatus])
	require.Equal(t, []HistoryEntry{{From: "Open", To: "Closed", ChangedAt: secondImport}}, rec.History[FieldStatus])
	require.Empty(t, rec.History[FieldPriority])
	// absent from the incoming record: untouched
	require.Equal(t, "amy", rec.Fields[FieldAssignee])
	require.Empty(t, rec.History[FieldAssignee])

	// inputs are not mutated
	require.Equal(t, "Open", existing[0].Fields[FieldStatus])
	require.Empty(t, existing[0].History)
}

func TestMerge_AbsentExistingValueCountsAsEmpty(t *testing.T) {
	t.Parallel()

	existing := Merge(nil, []Record{{FieldID: "T-1"}}, firstImport)
	out := Merge(existing, []Record{{FieldID: "T-1", FieldSeverity: "Sev 2"}}, secondImport)

	require.Equal(t, []HistoryEntry{{From: "", To: "Sev 2", ChangedAt: secondImport}}, out[0].History[FieldSeverity])
}

func TestMerge_IsIdempotent(t *testing.T) {
	t.Parallel()

	batch := []Record{
		{FieldID: "T-1", FieldStatus: "Open"},
		{FieldID: "T-2", FieldStatus: "New"},
		{FieldID: "T-1", FieldPriority: "Urgent"},
	}
	once := Merge(nil, batch, firstImport)
	twice := Merge(once, batch, secondImport)

	require.Equal(t, once, twice)
	require.Len(t, twice, 2)
	require.Equal(t, "Urgent", twice[0].Fields[FieldPriority])
}

func TestMerge_OrderExistingThenNew(t *testing.T) {
	t.Parallel()

	existing := Merge(nil, []Record{{FieldID: "B"}, {FieldID: "A"}}, firstImport)
	out, stats := MergeWithStats(existing, []Record{
		{FieldID: "C", FieldStatus: "Open"},
		{FieldID: "A", FieldStatus: "Open"},
		{FieldID: "B"},
		{FieldID: "D"},
	}, secondImport)

	ids := make([]string, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.ID())
	}
	require.Equal(t, []string{"B", "A", "C", "D"}, ids)
	require.Equal(t, MergeStats{Added: 2, Updated: 1, Unchanged: 1, Changes: 1}, stats)
}

func TestMerge_HistoryAccumulatesAcrossImports(t *testing.T) {
	t.Parallel()

	third := secondImport.Add(24 * time.Hour)
	out := Merge(nil, []Record{{FieldID: "T-1", FieldStatus: "New"}}, firstImport)
	out = Merge(out, []Record{{FieldID: "T-1", FieldStatus: "Open"}}, secondImport)
	out = Merge(out, []Record{{FieldID: "T-1", FieldStatus: "Closed"}}, third)

	require.Equal(t, []HistoryEntry{
		{From: "New", To: "Open", ChangedAt: secondImport},
		{From: "Open", To: "Closed", ChangedAt: third},
	}, out[0].History[FieldStatus])
}

func TestMerge_ZeroImportedAtUsesNow(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	existing := Merge(nil, []Record{{FieldID: "T-1", FieldStatus: "Open"}}, firstImport)
	out := Merge(existing, []Record{{FieldID: "T-1", FieldStatus: "Closed"}}, time.Time{})

	changed := out[0].History[FieldStatus][0].ChangedAt
	require.False(t, changed.Before(before))
}

func TestStore_Organizations(t *testing.T) {
	t.Parallel()

	s := Store{Records: Merge(nil, []Record{
		{FieldID: "1", FieldOrganization: "Acme"},
		{FieldID: "2", FieldOrganization: ""},
		{FieldID: "3", FieldOrganization: "Acme"},
		{FieldID: "4", FieldOrganization: "D360, Acme"},
	}, firstImport)}
	require.Equal(t, []string{"Acme", "D360, Acme"}, s.Organizations())
}
