package scoring

import (
	"strings"
	"time"
)

// Normalized priority levels.
const (
	LevelCritical = "critical"
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
)

// NormalizePriority maps free-text priority to critical/high/medium/low,
// or "" when the text is not recognised.
func NormalizePriority(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "p1") || strings.Contains(p, "critical"):
		return LevelCritical
	case strings.HasPrefix(p, "p2") || strings.Contains(p, "high"):
		return LevelHigh
	case strings.HasPrefix(p, "p3") || strings.Contains(p, "medium"):
		return LevelMedium
	case strings.HasPrefix(p, "p4") || strings.Contains(p, "low"):
		return LevelLow
	}
	return ""
}

var levelToSeverity = map[string]string{
	LevelCritical: "p1",
	LevelHigh:     "p2",
	LevelMedium:   "p3",
	LevelLow:      "p4",
}

// NormalizeSeverity maps incident severity text ("Sev 1", "S2", "P3",
// "critical", "4") to p1..p4, or "" when unrecognised.
func NormalizeSeverity(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			return -1
		}
		return r
	}, s)
	for _, prefix := range []string{"severity", "sev", "s", "p", ""} {
		rest, ok := strings.CutPrefix(compact, prefix)
		if !ok || rest == "" {
			continue
		}
		if d := rest[0]; d >= '1' && d <= '4' && (len(rest) == 1 || rest[1] < '0' || rest[1] > '9') {
			return "p" + string(d)
		}
	}
	return levelToSeverity[NormalizePriority(s)]
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/Jan/06 3:04 PM",
	"02/Jan/06",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2, 2006",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseDate parses the date formats seen in platform exports. Unparseable
// input returns false.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AgeDays returns whole days elapsed between the parsed date and now.
func AgeDays(raw string, now time.Time) (int, bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return 0, false
	}
	d := now.Sub(t)
	if d < 0 {
		return 0, true
	}
	return int(d.Hours() / 24), true
}

func statusIn(status string, list []string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), status) {
			return true
		}
	}
	return false
}

// StatusClass is the result of ClassifyStatus.
type StatusClass string

const (
	StatusOpen    StatusClass = "open"
	StatusClosed  StatusClass = "closed"
	StatusUnknown StatusClass = "unknown"
)

// ClassifyStatus places raw status text in the mapping. Closed wins over
// open when a status is listed in both.
func ClassifyStatus(raw string, m StatusMapping) StatusClass {
	status := strings.TrimSpace(raw)
	switch {
	case statusIn(status, m.Closed):
		return StatusClosed
	case statusIn(status, m.Open):
		return StatusOpen
	}
	return StatusUnknown
}

// IsOpen reports whether a record with this status counts towards risk.
// Unknown statuses count as open.
func IsOpen(raw string, m StatusMapping) bool {
	return ClassifyStatus(raw, m) != StatusClosed
}
