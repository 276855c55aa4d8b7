package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jask/clienthealth/internal/report"
)

// Category is one scored card of the client health view.
type Category string

const (
	Tickets   Category = "tickets"
	Incidents Category = "incidents"
	Jiras     Category = "jiras"
	Requests  Category = "requests"
)

// Categories lists every category in display order.
var Categories = []Category{Tickets, Incidents, Jiras, Requests}

var ErrUnknownCategory = errors.New("unknown category")

var categoryReports = map[Category][]report.Type{
	Tickets:   {report.TypeSupportTickets},
	Incidents: {report.TypeIncidents},
	Jiras:     {report.TypeJiras},
	Requests:  {report.TypeProductRequests, report.TypeImplementationRequests},
}

// ReportTypes returns the report types whose records feed c.
func (c Category) ReportTypes() []report.Type { return categoryReports[c] }

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := categoryReports[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

// RollupMode selects how category results combine.
type RollupMode string

const (
	RollupWorst    RollupMode = "worst"
	RollupWeighted RollupMode = "weighted"
)

// StatusMapping classifies raw status text. Anything not listed as closed
// counts as open.
type StatusMapping struct {
	Open   []string `mapstructure:"open" json:"open"`
	Closed []string `mapstructure:"closed" json:"closed"`
}

// FieldUse selects which optional record signals a category honours.
type FieldUse struct {
	Priority    bool `mapstructure:"priority" json:"priority"`
	Criticality bool `mapstructure:"criticality" json:"criticality"`
	Severity    bool `mapstructure:"severity" json:"severity"`
}

// RuleThresholds holds bucket counts that trigger hard rules. A threshold
// of zero disables the rule. Bucket names match case-insensitively.
type RuleThresholds struct {
	Red   map[string]int `mapstructure:"red" json:"red"`
	Amber map[string]int `mapstructure:"amber" json:"amber"`
}

// AgeThresholds flags open incidents older than the given day counts.
type AgeThresholds struct {
	RedDays   int `mapstructure:"red_days" json:"redDays"`
	AmberDays int `mapstructure:"amber_days" json:"amberDays"`
}

// IncidentConfig carries incident-only overrides.
type IncidentConfig struct {
	WindowDays         int            `mapstructure:"window_days" json:"windowDays"`
	CountOpenOnly      bool           `mapstructure:"count_open_only" json:"countOpenOnly"`
	PriorityThresholds RuleThresholds `mapstructure:"priority_thresholds" json:"priorityThresholds"`
	AgeThresholds      AgeThresholds  `mapstructure:"age_thresholds" json:"ageThresholds"`
}

// Bands are the score cutoffs for Red and Amber.
type Bands struct {
	Red   float64 `mapstructure:"red" json:"red"`
	Amber float64 `mapstructure:"amber" json:"amber"`
}

// Caps bounds the contribution of a single bucket.
type Caps struct {
	PerBucket int `mapstructure:"per_bucket" json:"perBucket"`
}

// Config drives every scorer and the rollup.
type Config struct {
	EnabledCards  map[Category]bool           `mapstructure:"enabled_cards" json:"enabledCards"`
	RollupMode    RollupMode                  `mapstructure:"rollup_mode" json:"rollupMode"`
	Weights       map[Category]float64        `mapstructure:"weights" json:"weights"`
	StatusMapping map[Category]StatusMapping  `mapstructure:"status_mapping" json:"statusMapping"`
	UseFields     map[Category]FieldUse       `mapstructure:"use_fields" json:"useFields"`
	Thresholds    map[Category]RuleThresholds `mapstructure:"thresholds" json:"thresholds"`
	Incidents     IncidentConfig              `mapstructure:"incidents" json:"incidents"`
	ScoringBands  Bands                       `mapstructure:"scoring_bands" json:"scoringBands"`
	Caps          Caps                        `mapstructure:"caps" json:"caps"`
}

var closedStatuses = []string{"closed", "resolved", "solved", "done", "cancelled", "canceled", "won't do", "rejected"}

// Default returns the built-in configuration. Each call returns fresh maps.
func Default() Config {
	openStatuses := func(extra ...string) []string {
		return append([]string{"open", "new", "pending", "in progress", "on hold", "waiting"}, extra...)
	}
	mapping := func(open []string) StatusMapping {
		return StatusMapping{Open: open, Closed: append([]string(nil), closedStatuses...)}
	}
	return Config{
		EnabledCards: map[Category]bool{Tickets: true, Incidents: true, Jiras: true, Requests: true},
		RollupMode:   RollupWorst,
		Weights:      map[Category]float64{Tickets: 0.3, Incidents: 0.3, Jiras: 0.2, Requests: 0.2},
		StatusMapping: map[Category]StatusMapping{
			Tickets:   mapping(openStatuses("hold")),
			Incidents: mapping(openStatuses("investigating", "identified", "monitoring")),
			Jiras:     mapping(openStatuses("to do", "in review", "blocked")),
			Requests:  mapping(openStatuses("under review", "planned", "accepted")),
		},
		UseFields: map[Category]FieldUse{
			Tickets:   {Priority: true, Criticality: true},
			Incidents: {Priority: true, Severity: true},
			Jiras:     {Priority: true},
			Requests:  {Priority: true},
		},
		Thresholds: map[Category]RuleThresholds{
			Tickets: {
				Red:   map[string]int{string(BucketCriticalOpen): 1, string(BucketOver60d): 1},
				Amber: map[string]int{string(BucketHighOpen): 2, string(BucketOver30d): 2},
			},
			Incidents: {
				Red:   map[string]int{string(BucketP1): 1},
				Amber: map[string]int{string(BucketP2): 1},
			},
			Jiras: {
				Red:   map[string]int{string(BucketCriticalOpen): 2, string(BucketOver60d): 3},
				Amber: map[string]int{string(BucketHighOpen): 3, string(BucketOver30d): 3},
			},
			Requests: {
				Red:   map[string]int{string(BucketCriticalOpen): 3},
				Amber: map[string]int{string(BucketHighOpen): 3, string(BucketOver60d): 2},
			},
		},
		Incidents: IncidentConfig{
			WindowDays:    30,
			CountOpenOnly: true,
			PriorityThresholds: RuleThresholds{
				Red:   map[string]int{},
				Amber: map[string]int{},
			},
			AgeThresholds: AgeThresholds{RedDays: 14, AmberDays: 7},
		},
		ScoringBands: Bands{Red: 70, Amber: 35},
		Caps:         Caps{PerBucket: 5},
	}
}

func lookupFold(m map[string]int, b Bucket) int {
	if v, ok := m[string(b)]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, string(b)) {
			return v
		}
	}
	return 0
}

// redThreshold returns the red trigger count of bucket b for c.
func (cfg Config) redThreshold(c Category, b Bucket) int {
	if c == Incidents {
		if v := lookupFold(cfg.Incidents.PriorityThresholds.Red, b); v > 0 {
			return v
		}
	}
	return lookupFold(cfg.Thresholds[c].Red, b)
}

func (cfg Config) amberThreshold(c Category, b Bucket) int {
	if c == Incidents {
		if v := lookupFold(cfg.Incidents.PriorityThresholds.Amber, b); v > 0 {
			return v
		}
	}
	return lookupFold(cfg.Thresholds[c].Amber, b)
}
