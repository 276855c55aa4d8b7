package report

import "strings"

// Tokenized is the output of Tokenize.
type Tokenized struct {
	Rows [][]string
	// Lines holds the 1-based source line of each row.
	Lines []int
	// Unterminated lists 1-based source line numbers where a quoted field
	// ran to the end of the line without a closing quote.
	Unterminated []int
}

// Tokenize splits CSV text into rows of raw cells.
//
// Parsing is line oriented: a quoted field cannot span lines. Each line is
// trimmed and blank lines are dropped. A field that opens with a double
// quote runs until the matching quote; "" inside it is a literal quote and
// commas are literal. An unterminated quote consumes the rest of the line.
func Tokenize(text string) Tokenized {
	var out Tokenized
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		row, ok := splitLine(line)
		if !ok {
			out.Unterminated = append(out.Unterminated, i+1)
		}
		out.Rows = append(out.Rows, row)
		out.Lines = append(out.Lines, i+1)
	}
	return out
}

func splitLine(line string) ([]string, bool) {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
		closed = true
	)
	fieldStart := true
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quoted:
			if ch == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					cur.WriteByte('"')
					i++
					continue
				}
				quoted = false
				closed = true
				continue
			}
			cur.WriteByte(ch)
		case ch == '"' && fieldStart:
			quoted = true
			closed = false
			fieldStart = false
		case ch == ',':
			fields = append(fields, cur.String())
			cur.Reset()
			fieldStart = true
		default:
			cur.WriteByte(ch)
			fieldStart = false
		}
	}
	fields = append(fields, cur.String())
	return fields, closed
}
