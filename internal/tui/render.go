package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
	"github.com/jask/clienthealth/internal/service"
)

var categoryTitles = map[scoring.Category]string{
	scoring.Tickets:   "Support tickets",
	scoring.Incidents: "Incidents",
	scoring.Jiras:     "Jira issues",
	scoring.Requests:  "Requests",
}

func (a *App) View() string {
	var body string
	switch a.state {
	case viewDetail:
		body = a.renderDetail()
	case viewImport:
		body = a.renderImport()
	case viewUnmatched:
		body = a.renderUnmatched()
	default:
		body = a.renderBoard()
	}
	if a.status != "" {
		body += "\n" + statusLineSty.Render(a.status)
	}
	return body
}

func (a *App) renderBoard() string {
	out := titleStyle.Render("Client health") + "\n"
	if len(a.clients) == 0 {
		out += dimStyle.Render("No clients. Load a directory with `clienthealth clients load`.") + "\n"
	}
	counts := map[scoring.Status]int{}
	for i, h := range a.clients {
		counts[h.Status]++
		line := fmt.Sprintf("%-28s %s", truncate(h.Client.Name, 28), StatusBadge(h.Status))
		if h.Changed() {
			line += dimStyle.Render(" (was " + string(h.Previous) + ")")
		}
		if i == a.cursor {
			line = cursorStyle.Render(">") + " " + line
		} else {
			line = "  " + line
		}
		out += line + "\n"
	}
	out += fmt.Sprintf("\n%s %d  %s %d  %s %d\n",
		StatusBadge(scoring.Red), counts[scoring.Red],
		StatusBadge(scoring.Amber), counts[scoring.Amber],
		StatusBadge(scoring.Green), counts[scoring.Green])
	out += dimStyle.Render("[enter] Detail  [r] Refresh  [s] Snapshot  [i] Import  [u] Unmatched  [q] Quit")
	return out
}

func (a *App) renderDetail() string {
	h := a.selected()
	if h == nil {
		return titleStyle.Render("Client") + "\n" + dimStyle.Render("no client selected")
	}
	out := titleStyle.Render(h.Client.Name) + "  " + StatusBadge(h.Status)
	if h.Total > 0 {
		out += dimStyle.Render(fmt.Sprintf("  total %.1f", h.Total))
	}
	out += "\n"
	if len(h.Client.Aliases) > 0 {
		out += dimStyle.Render("aliases: "+strings.Join(h.Client.Aliases, ", ")) + "\n"
	}

	cards := make([]string, 0, len(scoring.Categories))
	for _, c := range scoring.Categories {
		r, ok := h.Categories[c]
		if !ok {
			continue
		}
		cards = append(cards, renderCard(c, r))
	}
	out += lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n"
	out += dimStyle.Render("evaluated " + h.EvaluatedAt.In(a.tz).Format("2006-01-02 15:04") + "  [esc] Back  [q] Quit")
	return out
}

func renderCard(c scoring.Category, r scoring.ScoreResult) string {
	body := headerStyle.Render(categoryTitles[c]) + "\n" + StatusBadge(r.Status)
	if r.Scored {
		body += fmt.Sprintf("  score %.0f", r.Score)
	}
	body += "\n" + r.Reason
	keys := make([]string, 0, len(r.Counts))
	for k, v := range r.Counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		body += fmt.Sprintf("\n  %-13s %d", k, r.Counts[k])
	}
	return cardStyle.Render(body)
}

func (a *App) renderImport() string {
	title := titleStyle.Render("Import CSV")
	var types []string
	for i, t := range report.Types {
		if i == a.importType {
			types = append(types, cursorStyle.Render(string(t)))
		} else {
			types = append(types, dimStyle.Render(string(t)))
		}
	}
	body := fmt.Sprintf("Report: %s\nCSV path: %s\n[tab] Report type  [enter] Import  [esc] Back",
		strings.Join(types, " "), a.importPath)
	if a.lastImport != nil {
		body += "\n" + formatLastImport(*a.lastImport)
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func formatLastImport(r service.IngestResult) string {
	s := fmt.Sprintf("Last import: %d new, %d updated, %d skipped, %d warnings", r.Imported, r.Updated, r.Skipped, len(r.Errors))
	if len(r.Errors) > 0 {
		s += "\nFirst warning: " + r.Errors[0].Error()
		if len(r.Errors) > 1 {
			s += fmt.Sprintf(" (+%d more)", len(r.Errors)-1)
		}
	}
	return s
}

func (a *App) renderUnmatched() string {
	out := titleStyle.Render("Unmatched organizations") + "\n"
	if len(a.unmatched) == 0 {
		out += dimStyle.Render("every organization matches a client") + "\n"
	}
	for _, s := range a.unmatched {
		line := fmt.Sprintf("%-32s", truncate(s.Organization, 32))
		if s.ClientName != "" {
			line += dimStyle.Render(fmt.Sprintf(" alias of %s? (distance %d)", s.ClientName, s.Distance))
		}
		out += line + "\n"
	}
	out += dimStyle.Render("[esc] Back  [q] Quit")
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
