package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
)

const partialScoring = `
rollup_mode = "weighted"

[weights]
tickets = 0.5

[thresholds.tickets.red]
criticalOpen = 3

[incidents]
window_days = 14
`

func TestLoadScoring_EmptyPathIsDefault(t *testing.T) {
	t.Parallel()

	cfg, err := LoadScoring("")
	require.NoError(t, err)
	require.Equal(t, scoring.Default(), cfg)
}

func TestLoadScoring_NestedOverrideKeepsSiblings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scoring.toml")
	require.NoError(t, os.WriteFile(path, []byte(partialScoring), 0o644))

	cfg, err := LoadScoring(path)
	require.NoError(t, err)

	def := scoring.Default()
	require.Equal(t, scoring.RollupWeighted, cfg.RollupMode)
	require.InDelta(t, 0.5, cfg.Weights[scoring.Tickets], 1e-9)
	require.InDelta(t, 0.3, cfg.Weights[scoring.Incidents], 1e-9)
	require.InDelta(t, 0.2, cfg.Weights[scoring.Requests], 1e-9)

	red := cfg.Thresholds[scoring.Tickets].Red
	require.Equal(t, 3, red["criticalopen"])
	require.Equal(t, 1, red["over60d"])
	require.Equal(t, 2, cfg.Thresholds[scoring.Tickets].Amber["highopen"])
	require.Equal(t, 1, cfg.Thresholds[scoring.Incidents].Red["p1"])

	require.Equal(t, 14, cfg.Incidents.WindowDays)
	require.True(t, cfg.Incidents.CountOpenOnly)
	require.Equal(t, def.Incidents.AgeThresholds, cfg.Incidents.AgeThresholds)

	require.Equal(t, def.ScoringBands, cfg.ScoringBands)
	require.Equal(t, def.Caps, cfg.Caps)
	require.Equal(t, def.EnabledCards, cfg.EnabledCards)
	require.Equal(t, def.UseFields, cfg.UseFields)
	require.ElementsMatch(t, def.StatusMapping[scoring.Jiras].Open, cfg.StatusMapping[scoring.Jiras].Open)
}

func TestLoadScoring_OverrideDrivesScorer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scoring.toml")
	require.NoError(t, os.WriteFile(path, []byte(partialScoring), 0o644))
	cfg, err := LoadScoring(path)
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rec := report.Record{
		report.FieldID:        "T-1",
		report.FieldStatus:    "Open",
		report.FieldPriority:  "Critical",
		report.FieldRequested: now.Format("2006-01-02"),
	}
	require.Equal(t, scoring.Red, scoring.ComputeTicketsScore([]report.Record{rec}, scoring.Default(), now).Status)
	require.NotEqual(t, scoring.Red, scoring.ComputeTicketsScore([]report.Record{rec}, cfg, now).Status)
}

func TestLoadScoring_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadScoring(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestParseScoring_JSON(t *testing.T) {
	t.Parallel()

	cfg, err := ParseScoring(strings.NewReader(`{"scoring_bands": {"red": 50}, "enabled_cards": {"jiras": false}}`), "json")
	require.NoError(t, err)
	require.InDelta(t, 50.0, cfg.ScoringBands.Red, 1e-9)
	require.InDelta(t, 35.0, cfg.ScoringBands.Amber, 1e-9)
	require.False(t, cfg.EnabledCards[scoring.Jiras])
	require.True(t, cfg.EnabledCards[scoring.Tickets])
	require.Equal(t, scoring.RollupWorst, cfg.RollupMode)
}

func TestParseScoring_RejectsUnknownRollupMode(t *testing.T) {
	t.Parallel()

	_, err := ParseScoring(strings.NewReader("rollup_mode = \"average\"\n"), "toml")
	require.Error(t, err)
}
