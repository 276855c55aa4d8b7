package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/clienthealth/internal/client"
	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/service"
)

// App is the client status board.
type App struct {
	ctx      context.Context
	services Services
	state    appState
	tz       *time.Location

	clients   []service.ClientHealth
	unmatched []client.Suggestion
	cursor    int
	status    string

	// import flow
	importPath string
	importType int
	lastImport *service.IngestResult
}

type Services struct {
	Health *service.HealthService
	Ingest *service.IngestService
}

type appState string

const (
	viewBoard     appState = "board"
	viewDetail    appState = "detail"
	viewImport    appState = "import"
	viewUnmatched appState = "unmatched"
)

func New(ctx context.Context, services Services, tz *time.Location) *App {
	if tz == nil {
		tz = time.Local
	}
	return &App{
		ctx:      ctx,
		services: services,
		state:    viewBoard,
		tz:       tz,
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadClients()
}

func (a *App) loadClients() tea.Cmd {
	return func() tea.Msg {
		if a.services.Health == nil {
			return errMsg{fmt.Errorf("health service not configured")}
		}
		list, err := a.services.Health.EvaluateAll(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return clientsMsg(list)
	}
}

func (a *App) loadUnmatched() tea.Cmd {
	return func() tea.Msg {
		if a.services.Health == nil {
			return errMsg{fmt.Errorf("health service not configured")}
		}
		list, err := a.services.Health.Unmatched(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return unmatchedMsg(list)
	}
}

func (a *App) snapshotCmd() tea.Cmd {
	list := append([]service.ClientHealth(nil), a.clients...)
	return func() tea.Msg {
		if err := a.services.Health.Snapshot(a.ctx, list); err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("snapshot saved for %d clients", len(list)))
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.state == viewImport {
			return a.handleImportKey(m)
		}
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "esc":
			a.state = viewBoard
		case "enter":
			if a.state == viewBoard && len(a.clients) > 0 {
				a.state = viewDetail
			}
		case "up", "k":
			if a.cursor > 0 {
				a.cursor--
			}
		case "down", "j":
			if a.cursor < len(a.clients)-1 {
				a.cursor++
			}
		case "r":
			a.status = "refreshing..."
			return a, a.loadClients()
		case "s":
			if a.services.Health != nil && len(a.clients) > 0 {
				return a, a.snapshotCmd()
			}
		case "u":
			a.state = viewUnmatched
			return a, a.loadUnmatched()
		case "i":
			a.state = viewImport
			a.status = ""
		}
	case clientsMsg:
		a.clients = []service.ClientHealth(m)
		if a.cursor >= len(a.clients) {
			a.cursor = 0
		}
		a.status = ""
	case unmatchedMsg:
		a.unmatched = []client.Suggestion(m)
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.status = "error: " + m.Error()
	case ingestDoneMsg:
		a.lastImport = &m.Result
		summary := fmt.Sprintf("%s: %d new, %d updated, %d unchanged, %d skipped",
			m.Result.Type, m.Result.Imported, m.Result.Updated, m.Result.Unchanged, m.Result.Skipped)
		if len(m.Result.Errors) > 0 {
			summary += fmt.Sprintf(", %d warnings (see import view)", len(m.Result.Errors))
		}
		a.status = summary
		a.state = viewBoard
		return a, a.loadClients()
	}
	return a, nil
}

func (a *App) selected() *service.ClientHealth {
	if a.cursor < 0 || a.cursor >= len(a.clients) {
		return nil
	}
	return &a.clients[a.cursor]
}

func (a *App) ingestCmd(t report.Type, path string) tea.Cmd {
	abs := path
	if !filepath.IsAbs(path) {
		if p, err := filepath.Abs(path); err == nil {
			abs = p
		}
	}
	a.status = "importing..."
	if a.services.Ingest == nil {
		return func() tea.Msg { return errMsg{fmt.Errorf("ingest service not configured")} }
	}
	return func() tea.Msg {
		res, err := a.services.Ingest.ImportFile(a.ctx, t, abs, time.Time{})
		if err != nil {
			return errMsg{err}
		}
		for i := range res.Errors {
			res.Errors[i] = fmt.Errorf("%s: %w", filepath.Base(abs), res.Errors[i])
		}
		return ingestDoneMsg{Result: res}
	}
}

func (a *App) handleImportKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		return a, tea.Quit
	}
	switch m.Type {
	case tea.KeyEsc:
		a.state = viewBoard
		a.status = ""
	case tea.KeyTab:
		a.importType = (a.importType + 1) % len(report.Types)
	case tea.KeyShiftTab:
		a.importType = (a.importType + len(report.Types) - 1) % len(report.Types)
	case tea.KeyEnter:
		path := strings.TrimSpace(a.importPath)
		if path == "" {
			a.status = "enter a CSV path"
			return a, nil
		}
		return a, a.ingestCmd(report.Types[a.importType], path)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.importPath) > 0 {
			a.importPath = a.importPath[:len(a.importPath)-1]
		}
	case tea.KeySpace:
		a.importPath += " "
	case tea.KeyRunes:
		a.importPath += string(m.Runes)
	}
	return a, nil
}

type clientsMsg []service.ClientHealth

type unmatchedMsg []client.Suggestion

type statusMsg string

type errMsg struct{ error }

type ingestDoneMsg struct {
	Result service.IngestResult
}
