package report

import (
	"sort"
	"time"
)

// Record is one normalized CSV row keyed by semantic field name.
// Merging applies only the keys present, so a Record doubles as a
// partial update.
type Record map[string]string

// ID returns the natural key of the record.
func (r Record) ID() string { return r[FieldID] }

// Clone returns a copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// HistoryEntry is one observed change of one field.
type HistoryEntry struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changedAt"`
}

// PersistedRecord is a record plus the change log of its fields.
type PersistedRecord struct {
	Fields  Record                    `json:"fields"`
	History map[string][]HistoryEntry `json:"history"`
}

// ID returns the natural key of the record.
func (p PersistedRecord) ID() string { return p.Fields.ID() }

func (p PersistedRecord) clone() PersistedRecord {
	out := PersistedRecord{Fields: p.Fields.Clone(), History: make(map[string][]HistoryEntry, len(p.History))}
	for field, entries := range p.History {
		out.History[field] = append([]HistoryEntry(nil), entries...)
	}
	return out
}

// Store is everything imported so far for one report type.
type Store struct {
	Type           Type              `json:"type"`
	Records        []PersistedRecord `json:"records"`
	LastImportedAt *time.Time        `json:"lastImportedAt"`
}

// Organizations returns the distinct non-empty organization values in s.
func (s Store) Organizations() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, rec := range s.Records {
		org := rec.Fields[FieldOrganization]
		if org == "" {
			continue
		}
		if _, ok := seen[org]; ok {
			continue
		}
		seen[org] = struct{}{}
		out = append(out, org)
	}
	return out
}

// MergeStats summarises what Merge did.
type MergeStats struct {
	Added     int
	Updated   int
	Unchanged int
	Changes   int
}

// Merge reconciles incoming against existing by record id.
//
// Existing records keep their order and are updated in place; new ids are
// appended in incoming order. For a known id every incoming field except
// the id is compared with the stored value (absent counts as empty) and
// each difference appends a HistoryEntry stamped importedAt. Fields absent
// from the incoming record are left alone. Neither input is mutated.
func Merge(existing []PersistedRecord, incoming []Record, importedAt time.Time) []PersistedRecord {
	out, _ := MergeWithStats(existing, incoming, importedAt)
	return out
}

// MergeWithStats is Merge that also reports per-record outcomes.
func MergeWithStats(existing []PersistedRecord, incoming []Record, importedAt time.Time) ([]PersistedRecord, MergeStats) {
	if importedAt.IsZero() {
		importedAt = time.Now().UTC()
	}
	var stats MergeStats

	out := make([]PersistedRecord, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing))
	for _, rec := range existing {
		index[rec.ID()] = len(out)
		out = append(out, rec.clone())
	}

	for _, rec := range collapse(incoming) {
		pos, ok := index[rec.ID()]
		if !ok {
			index[rec.ID()] = len(out)
			out = append(out, PersistedRecord{Fields: rec.Clone(), History: map[string][]HistoryEntry{}})
			stats.Added++
			continue
		}
		target := &out[pos]
		if target.History == nil {
			target.History = map[string][]HistoryEntry{}
		}
		changed := 0
		for _, field := range sortedFields(rec) {
			if field == FieldID {
				continue
			}
			prev := target.Fields[field]
			next := rec[field]
			if prev == next {
				if _, present := target.Fields[field]; !present {
					target.Fields[field] = next
				}
				continue
			}
			target.History[field] = append(target.History[field], HistoryEntry{From: prev, To: next, ChangedAt: importedAt})
			target.Fields[field] = next
			changed++
		}
		if changed > 0 {
			stats.Updated++
			stats.Changes += changed
		} else {
			stats.Unchanged++
		}
	}
	return out, stats
}

// collapse folds records sharing an id into one, later values winning,
// keeping first-seen order.
func collapse(incoming []Record) []Record {
	out := make([]Record, 0, len(incoming))
	index := make(map[string]int, len(incoming))
	for _, rec := range incoming {
		if pos, ok := index[rec.ID()]; ok {
			for k, v := range rec {
				out[pos][k] = v
			}
			continue
		}
		index[rec.ID()] = len(out)
		out = append(out, rec.Clone())
	}
	return out
}

func sortedFields(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
