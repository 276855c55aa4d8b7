package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/clienthealth/internal/report"
)

func TestMatches_CommaSplitCaseInsensitive(t *testing.T) {
	t.Parallel()

	other := Client{ID: "c1", Name: "OtherCo"}
	acme := Client{ID: "c2", Name: "Acme"}

	require.True(t, Matches("Acme Corp, OtherCo", other))
	require.True(t, Matches("Acme Corp,   otherco  ", other))
	require.False(t, Matches("Acme Corp, OtherCo", acme), "no substring matching")
	require.False(t, Matches("", acme))
}

func TestMatches_Aliases(t *testing.T) {
	t.Parallel()

	c := Client{Name: "Digital 360", Aliases: []string{"D360", " d-360 "}}
	require.True(t, Matches("d360", c))
	require.True(t, Matches("Foo, D-360", c))
	require.True(t, Matches("DIGITAL 360", c))
	require.False(t, Matches("D36", c))
}

func TestMatches_UnicodeFolding(t *testing.T) {
	t.Parallel()

	c := Client{Name: "Straße GmbH"}
	require.True(t, Matches("STRASSE GMBH", c))
}

func TestFilter(t *testing.T) {
	t.Parallel()

	recs := []report.PersistedRecord{
		{Fields: report.Record{report.FieldID: "1", report.FieldOrganization: "Acme"}},
		{Fields: report.Record{report.FieldID: "2", report.FieldOrganization: "Globex"}},
		{Fields: report.Record{report.FieldID: "3", report.FieldOrganization: "Globex, ACME"}},
		{Fields: report.Record{report.FieldID: "4"}},
	}
	got := Filter(recs, Client{Name: "acme"})
	require.Len(t, got, 2)
	require.Equal(t, "1", got[0].ID())
	require.Equal(t, "3", got[1].ID())
}

func TestUnmatched_SuggestsNearestClient(t *testing.T) {
	t.Parallel()

	clients := []Client{
		{ID: "a", Name: "Acme", Aliases: []string{"Acme Corp"}},
		{ID: "g", Name: "Globex"},
	}
	got := Unmatched([]string{"Acme Corp, Globx", "Acme", "Initech", "globx"}, clients)

	require.Equal(t, []Suggestion{
		{Organization: "Globx", ClientID: "g", ClientName: "Globex", Distance: 1},
		{Organization: "Initech", Distance: -1},
	}, got)
}
