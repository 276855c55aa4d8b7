package scoring

import (
	"fmt"
	"time"

	"github.com/jask/clienthealth/internal/report"
)

// Status is a traffic-light health value.
type Status string

const (
	Red   Status = "Red"
	Amber Status = "Amber"
	Green Status = "Green"
)

// Bucket names a count derived from matched records.
type Bucket string

const (
	BucketOver7d       Bucket = "over7d"
	BucketOver30d      Bucket = "over30d"
	BucketOver60d      Bucket = "over60d"
	BucketHighOpen     Bucket = "highOpen"
	BucketCriticalOpen Bucket = "criticalOpen"
	BucketP1           Bucket = "p1"
	BucketP2           Bucket = "p2"
	BucketP3           Bucket = "p3"
	BucketP4           Bucket = "p4"
	BucketAgeRed       Bucket = "ageRed"
	BucketAgeAmber     Bucket = "ageAmber"
)

// ScoreResult is the outcome of scoring one category for one client.
type ScoreResult struct {
	Status Status         `json:"status"`
	Score  float64        `json:"score"`
	Reason string         `json:"reason"`
	Counts map[string]int `json:"counts,omitempty"`
	// Scored is false for the no-data result.
	Scored bool `json:"scored"`
}

// NoData is the result for a category without matched records.
func NoData() ScoreResult {
	return ScoreResult{Status: Green, Score: 0, Reason: "No data"}
}

// Value is the numeric contribution of r to a weighted rollup. A numeric
// score wins whenever one is present; otherwise the status maps to 100, 55
// or 0.
func (r ScoreResult) Value() float64 {
	if r.Scored || r.Score != 0 {
		return r.Score
	}
	switch r.Status {
	case Red:
		return 100
	case Amber:
		return 55
	}
	return 0
}

// ruleTable parameterises the shared scoring skeleton for one category.
type ruleTable struct {
	buckets []Bucket
	points  map[Bucket]float64
	// window drops records outside the counted period before open
	// filtering; nil keeps everything.
	window func(rec report.Record, cfg Config, now time.Time) bool
	// tally adds the buckets of one counted record.
	tally func(counts map[Bucket]int, rec report.Record, open bool, cfg Config, now time.Time)
}

var ageBuckets = []Bucket{BucketOver7d, BucketOver30d, BucketOver60d}

var tables = map[Category]ruleTable{
	Tickets: {
		buckets: []Bucket{BucketCriticalOpen, BucketOver60d, BucketHighOpen, BucketOver30d, BucketOver7d},
		points: map[Bucket]float64{
			BucketOver7d: 2, BucketOver30d: 4, BucketOver60d: 6,
			BucketHighOpen: 4, BucketCriticalOpen: 6,
		},
		tally: levelTally(Tickets),
	},
	Jiras: {
		buckets: []Bucket{BucketCriticalOpen, BucketOver60d, BucketHighOpen, BucketOver30d, BucketOver7d},
		points: map[Bucket]float64{
			BucketOver7d: 1, BucketOver30d: 3, BucketOver60d: 5,
			BucketHighOpen: 3, BucketCriticalOpen: 5,
		},
		tally: levelTally(Jiras),
	},
	Requests: {
		buckets: []Bucket{BucketCriticalOpen, BucketOver60d, BucketHighOpen, BucketOver30d, BucketOver7d},
		points: map[Bucket]float64{
			BucketOver7d: 1, BucketOver30d: 2, BucketOver60d: 4,
			BucketHighOpen: 2, BucketCriticalOpen: 3,
		},
		tally: levelTally(Requests),
	},
	Incidents: {
		buckets: []Bucket{BucketP1, BucketAgeRed, BucketP2, BucketAgeAmber, BucketP3, BucketP4, BucketOver30d, BucketOver7d},
		points: map[Bucket]float64{
			BucketP1: 10, BucketP2: 6, BucketP3: 2, BucketP4: 1,
			BucketOver7d: 2, BucketOver30d: 4,
		},
		window: incidentWindow,
		tally:  incidentTally,
	},
}

func tallyAge(counts map[Bucket]int, rec report.Record, now time.Time) {
	age, ok := AgeDays(rec[report.FieldRequested], now)
	if !ok {
		return
	}
	if age > 7 {
		counts[BucketOver7d]++
	}
	if age > 30 {
		counts[BucketOver30d]++
	}
	if age > 60 {
		counts[BucketOver60d]++
	}
}

// recordLevel is the highest priority level signalled by the fields the
// category honours.
func recordLevel(rec report.Record, use FieldUse) string {
	var levels []string
	if use.Criticality {
		levels = append(levels, NormalizePriority(rec[report.FieldCriticality]))
	}
	if use.Priority {
		levels = append(levels, NormalizePriority(rec[report.FieldPriority]))
	}
	if use.Severity {
		if sev := NormalizeSeverity(rec[report.FieldSeverity]); sev != "" {
			levels = append(levels, severityLevel[sev])
		}
	}
	best := ""
	for _, l := range levels {
		if levelRank[l] > levelRank[best] {
			best = l
		}
	}
	return best
}

var levelRank = map[string]int{LevelLow: 1, LevelMedium: 2, LevelHigh: 3, LevelCritical: 4}

var severityLevel = map[string]string{"p1": LevelCritical, "p2": LevelHigh, "p3": LevelMedium, "p4": LevelLow}

func levelTally(c Category) func(map[Bucket]int, report.Record, bool, Config, time.Time) {
	return func(counts map[Bucket]int, rec report.Record, _ bool, cfg Config, now time.Time) {
		tallyAge(counts, rec, now)
		switch recordLevel(rec, cfg.UseFields[c]) {
		case LevelCritical:
			counts[BucketCriticalOpen]++
		case LevelHigh:
			counts[BucketHighOpen]++
		}
	}
}

func incidentWindow(rec report.Record, cfg Config, now time.Time) bool {
	if cfg.Incidents.WindowDays <= 0 {
		return true
	}
	age, ok := AgeDays(rec[report.FieldRequested], now)
	return !ok || age <= cfg.Incidents.WindowDays
}

func incidentSeverity(rec report.Record, use FieldUse) string {
	if use.Severity {
		if sev := NormalizeSeverity(rec[report.FieldSeverity]); sev != "" {
			return sev
		}
	}
	if use.Priority {
		return NormalizeSeverity(rec[report.FieldPriority])
	}
	return ""
}

func incidentTally(counts map[Bucket]int, rec report.Record, open bool, cfg Config, now time.Time) {
	if sev := incidentSeverity(rec, cfg.UseFields[Incidents]); sev != "" {
		counts[Bucket(sev)]++
	}
	if !open {
		return
	}
	tallyAge(counts, rec, now)
	age, ok := AgeDays(rec[report.FieldRequested], now)
	if !ok {
		return
	}
	if d := cfg.Incidents.AgeThresholds.RedDays; d > 0 && age > d {
		counts[BucketAgeRed]++
	}
	if d := cfg.Incidents.AgeThresholds.AmberDays; d > 0 && age > d {
		counts[BucketAgeAmber]++
	}
}

var bucketLabels = map[Bucket]string{
	BucketOver7d:       "open > 7 days",
	BucketOver30d:      "open > 30 days",
	BucketOver60d:      "open > 60 days",
	BucketHighOpen:     "high priority open",
	BucketCriticalOpen: "critical open",
	BucketP1:           "P1 incidents",
	BucketP2:           "P2 incidents",
	BucketP3:           "P3 incidents",
	BucketP4:           "P4 incidents",
}

func label(b Bucket, cfg Config) string {
	switch b {
	case BucketAgeRed:
		return fmt.Sprintf("open incidents older than %d days", cfg.Incidents.AgeThresholds.RedDays)
	case BucketAgeAmber:
		return fmt.Sprintf("open incidents older than %d days", cfg.Incidents.AgeThresholds.AmberDays)
	}
	return bucketLabels[b]
}

func (cfg Config) ruleThreshold(c Category, b Bucket, red bool) int {
	switch {
	case b == BucketAgeRed && red:
		return 1
	case b == BucketAgeAmber && !red:
		return 1
	case b == BucketAgeRed || b == BucketAgeAmber:
		return 0
	case red:
		return cfg.redThreshold(c, b)
	}
	return cfg.amberThreshold(c, b)
}

// Score evaluates one category over the records matched to a client.
func Score(c Category, records []report.Record, cfg Config, now time.Time) (ScoreResult, error) {
	table, ok := tables[c]
	if !ok {
		return ScoreResult{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if len(records) == 0 {
		return NoData(), nil
	}

	mapping := cfg.StatusMapping[c]
	counts := make(map[Bucket]int, len(table.buckets))
	for _, rec := range records {
		if table.window != nil && !table.window(rec, cfg, now) {
			continue
		}
		open := IsOpen(rec[report.FieldStatus], mapping)
		if !open && (c != Incidents || cfg.Incidents.CountOpenOnly) {
			continue
		}
		table.tally(counts, rec, open, cfg, now)
	}

	result := ScoreResult{Counts: make(map[string]int, len(table.buckets)), Scored: true}
	for _, b := range table.buckets {
		result.Counts[string(b)] = counts[b]
	}

	for _, b := range table.buckets {
		if th := cfg.ruleThreshold(c, b, true); th > 0 && counts[b] >= th {
			result.Status = Red
			result.Score = 100
			result.Reason = fmt.Sprintf("%d %s (red at %d)", counts[b], label(b, cfg), th)
			return result, nil
		}
	}

	var amberReasons []string
	for _, b := range table.buckets {
		if th := cfg.ruleThreshold(c, b, false); th > 0 && counts[b] >= th {
			amberReasons = append(amberReasons, fmt.Sprintf("%d %s (amber at %d)", counts[b], label(b, cfg), th))
		}
	}

	for _, b := range table.buckets {
		n := counts[b]
		if cfg.Caps.PerBucket > 0 && n > cfg.Caps.PerBucket {
			n = cfg.Caps.PerBucket
		}
		result.Score += table.points[b] * float64(n)
	}

	if len(amberReasons) > 0 {
		result.Status = Amber
		result.Reason = amberReasons[0]
		return result, nil
	}
	result.Status, result.Reason = classify(result.Score, cfg.ScoringBands)
	return result, nil
}

func classify(score float64, bands Bands) (Status, string) {
	switch {
	case score >= bands.Red:
		return Red, fmt.Sprintf("Score %.0f above red threshold %.0f", score, bands.Red)
	case score >= bands.Amber:
		return Amber, fmt.Sprintf("Score %.0f above amber threshold %.0f", score, bands.Amber)
	}
	return Green, fmt.Sprintf("Score %.0f within thresholds", score)
}

func mustScore(c Category, records []report.Record, cfg Config, now time.Time) ScoreResult {
	r, err := Score(c, records, cfg, now)
	if err != nil {
		panic(err)
	}
	return r
}

// ComputeTicketsScore scores support tickets.
func ComputeTicketsScore(records []report.Record, cfg Config, now time.Time) ScoreResult {
	return mustScore(Tickets, records, cfg, now)
}

// ComputeIncidentsScore scores incidents.
func ComputeIncidentsScore(records []report.Record, cfg Config, now time.Time) ScoreResult {
	return mustScore(Incidents, records, cfg, now)
}

// ComputeJirasScore scores Jira issues.
func ComputeJirasScore(records []report.Record, cfg Config, now time.Time) ScoreResult {
	return mustScore(Jiras, records, cfg, now)
}

// ComputeRequestsScore scores product and implementation requests.
func ComputeRequestsScore(records []report.Record, cfg Config, now time.Time) ScoreResult {
	return mustScore(Requests, records, cfg, now)
}

// ScoreAll scores every category present in byCategory; categories with
// no entry get the no-data result.
func ScoreAll(byCategory map[Category][]report.Record, cfg Config, now time.Time) map[Category]ScoreResult {
	out := make(map[Category]ScoreResult, len(Categories))
	for _, c := range Categories {
		out[c] = mustScore(c, byCategory[c], cfg, now)
	}
	return out
}
