package client

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/jask/clienthealth/internal/report"
)

// Client is one entry of the client directory.
type Client struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Names returns the canonical name followed by the aliases.
func (c Client) Names() []string {
	out := make([]string, 0, len(c.Aliases)+1)
	out = append(out, c.Name)
	return append(out, c.Aliases...)
}

// Fold is the case-insensitive key used for names, aliases and
// organizations.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// SplitOrganizations splits a comma separated organization field.
func SplitOrganizations(field string) []string {
	var out []string
	for _, part := range strings.Split(field, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Matches reports whether any organization listed in the field equals the
// client's name or one of its aliases, ignoring case.
func Matches(organization string, c Client) bool {
	names := make(map[string]struct{}, len(c.Aliases)+1)
	for _, n := range c.Names() {
		if n = Fold(n); n != "" {
			names[n] = struct{}{}
		}
	}
	for _, org := range SplitOrganizations(organization) {
		if _, ok := names[Fold(org)]; ok {
			return true
		}
	}
	return false
}

// Filter returns the records whose organization field matches c.
func Filter(records []report.PersistedRecord, c Client) []report.Record {
	var out []report.Record
	for _, rec := range records {
		if Matches(rec.Fields[report.FieldOrganization], c) {
			out = append(out, rec.Fields)
		}
	}
	return out
}

// Suggestion pairs an organization that no client matches with the
// closest client name. It is an operator hint for adding an alias and
// never affects matching.
type Suggestion struct {
	Organization string `json:"organization"`
	ClientID     string `json:"clientId,omitempty"`
	ClientName   string `json:"clientName,omitempty"`
	Distance     int    `json:"distance"`
}

const maxSuggestRatio = 0.5

// Unmatched lists organizations from the given fields that match no client,
// each with the nearest client by edit distance when one is close enough.
func Unmatched(orgFields []string, clients []Client) []Suggestion {
	seen := map[string]struct{}{}
	var out []Suggestion
	for _, field := range orgFields {
		for _, org := range SplitOrganizations(field) {
			key := Fold(org)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if matchesAny(org, clients) {
				continue
			}
			out = append(out, suggest(org, clients))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Organization < out[j].Organization })
	return out
}

func matchesAny(org string, clients []Client) bool {
	for _, c := range clients {
		if Matches(org, c) {
			return true
		}
	}
	return false
}

func suggest(org string, clients []Client) Suggestion {
	s := Suggestion{Organization: org, Distance: -1}
	key := Fold(org)
	for _, c := range clients {
		for _, name := range c.Names() {
			candidate := Fold(name)
			if candidate == "" {
				continue
			}
			dist := levenshtein.ComputeDistance(key, candidate)
			maxlen := len(key)
			if len(candidate) > maxlen {
				maxlen = len(candidate)
			}
			if float64(dist)/float64(maxlen) > maxSuggestRatio {
				continue
			}
			if s.Distance < 0 || dist < s.Distance {
				s.ClientID, s.ClientName, s.Distance = c.ID, c.Name, dist
			}
		}
	}
	return s
}
