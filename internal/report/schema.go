package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Type identifies one kind of CSV export.
type Type string

const (
	TypeIncidents              Type = "incidents"
	TypeSupportTickets         Type = "support-tickets"
	TypeJiras                  Type = "jiras"
	TypeProductRequests        Type = "product-requests"
	TypeImplementationRequests Type = "implementation-requests"
)

// Types lists every report type in display order.
var Types = []Type{
	TypeIncidents,
	TypeSupportTickets,
	TypeJiras,
	TypeProductRequests,
	TypeImplementationRequests,
}

// Semantic field names shared by all schemas.
const (
	FieldID           = "id"
	FieldSummary      = "summary"
	FieldStatus       = "ticketStatus"
	FieldPriority     = "priority"
	FieldCriticality  = "criticality"
	FieldSeverity     = "severity"
	FieldOrganization = "organization"
	FieldRequested    = "requested"
	FieldUpdated      = "updated"
	FieldResolved     = "resolved"
	FieldAssignee     = "assignee"
	FieldIssueType    = "issueType"
)

var (
	ErrSchemaMismatch    = errors.New("csv headers do not match report schema")
	ErrUnknownReportType = errors.New("unknown report type")
)

// SchemaMismatchError lists the required headers absent from an import.
type SchemaMismatchError struct {
	Type    Type
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: missing required headers: %s", e.Type, strings.Join(e.Missing, ", "))
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// FieldSpec maps a semantic field to one header, or to candidate headers
// tried in order.
type FieldSpec struct {
	Field   string
	Headers []string
}

// Schema describes the headers of one export format.
type Schema struct {
	Type            Type
	RequiredHeaders []string
	KeyMap          []FieldSpec
}

func one(field, header string) FieldSpec { return FieldSpec{Field: field, Headers: []string{header}} }

func anyOf(field string, headers ...string) FieldSpec {
	return FieldSpec{Field: field, Headers: headers}
}

var incidentSchema = Schema{
	RequiredHeaders: []string{"Issue key", "Summary", "Status", "Priority", "Severity", "Created"},
	KeyMap: []FieldSpec{
		one(FieldID, "Issue key"),
		one(FieldSummary, "Summary"),
		one(FieldStatus, "Status"),
		one(FieldPriority, "Priority"),
		one(FieldSeverity, "Severity"),
		anyOf(FieldOrganization, "Organizations", "Client Name", "Project name"),
		one(FieldRequested, "Created"),
		one(FieldUpdated, "Updated"),
		one(FieldResolved, "Resolved"),
		one(FieldAssignee, "Assignee"),
	},
}

var supportTicketSchema = Schema{
	RequiredHeaders: []string{"Ticket ID", "Subject", "Status", "Priority", "Organization", "Requested"},
	KeyMap: []FieldSpec{
		one(FieldID, "Ticket ID"),
		one(FieldSummary, "Subject"),
		one(FieldStatus, "Status"),
		one(FieldPriority, "Priority"),
		one(FieldCriticality, "Criticality"),
		one(FieldOrganization, "Organization"),
		one(FieldRequested, "Requested"),
		one(FieldUpdated, "Updated"),
		one(FieldAssignee, "Assignee"),
	},
}

var jiraSchema = Schema{
	RequiredHeaders: []string{"Key", "Summary", "Status", "Priority", "Created"},
	KeyMap: []FieldSpec{
		one(FieldID, "Key"),
		one(FieldSummary, "Summary"),
		one(FieldStatus, "Status"),
		one(FieldPriority, "Priority"),
		one(FieldIssueType, "Issue Type"),
		anyOf(FieldOrganization, "Client Name", "Project name"),
		one(FieldRequested, "Created"),
		one(FieldUpdated, "Updated"),
		one(FieldAssignee, "Assignee"),
	},
}

func withType(s Schema, t Type) Schema {
	s.Type = t
	return s
}

var schemas = map[Type]Schema{
	TypeIncidents:              withType(incidentSchema, TypeIncidents),
	TypeSupportTickets:         withType(supportTicketSchema, TypeSupportTickets),
	TypeJiras:                  withType(jiraSchema, TypeJiras),
	TypeProductRequests:        withType(incidentSchema, TypeProductRequests),
	TypeImplementationRequests: withType(incidentSchema, TypeImplementationRequests),
}

// SchemaFor returns the schema registered for t.
func SchemaFor(t Type) (Schema, error) {
	s, ok := schemas[t]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownReportType, t)
	}
	return s, nil
}

// ParseType validates a report type name.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := schemas[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownReportType, name)
	}
	return t, nil
}

// Parse tokenizes text and projects every data row through schema.
// Row 0 is the header row. A missing required header rejects the whole
// input with a *SchemaMismatchError.
func Parse(text string, schema Schema) ([]Record, error) {
	return parseTokens(Tokenize(text), schema)
}

func parseTokens(tok Tokenized, schema Schema) ([]Record, error) {
	if len(tok.Rows) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(tok.Rows[0]))
	for i, h := range tok.Rows[0] {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	for _, h := range schema.RequiredHeaders {
		if _, ok := index[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaMismatchError{Type: schema.Type, Missing: missing}
	}

	columns := make([]int, len(schema.KeyMap))
	for i, spec := range schema.KeyMap {
		columns[i] = -1
		for _, h := range spec.Headers {
			if col, ok := index[h]; ok {
				columns[i] = col
				break
			}
		}
	}

	out := make([]Record, 0, len(tok.Rows)-1)
	for _, row := range tok.Rows[1:] {
		rec := make(Record, len(schema.KeyMap))
		for i, spec := range schema.KeyMap {
			col := columns[i]
			if col < 0 || col >= len(row) {
				rec[spec.Field] = ""
				continue
			}
			rec[spec.Field] = strings.TrimSpace(row[col])
		}
		out = append(out, rec)
	}
	return out, nil
}

// Parsed is the result of ParseDetailed.
type Parsed struct {
	Records []Record
	// Lines holds the 1-based source line of each record.
	Lines        []int
	Unterminated []int
}

// ParseDetailed is Parse plus the tokenizer warnings.
func ParseDetailed(text string, schema Schema) (Parsed, error) {
	tok := Tokenize(text)
	records, err := parseTokens(tok, schema)
	if err != nil {
		return Parsed{}, err
	}
	var lines []int
	if len(tok.Lines) > 1 {
		lines = tok.Lines[1:]
	}
	return Parsed{Records: records, Lines: lines, Unterminated: tok.Unterminated}, nil
}
