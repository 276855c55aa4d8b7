package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jask/clienthealth/internal/client"
	"github.com/jask/clienthealth/internal/config"
	"github.com/jask/clienthealth/internal/httpapi"
	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
	"github.com/jask/clienthealth/internal/service"
	"github.com/jask/clienthealth/internal/testdata"
	"github.com/jask/clienthealth/internal/tui"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475a"))
)

func (a *app) runImport(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	at := fs.String("at", "", "import timestamp (RFC3339); defaults to now")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: clienthealth import <%s> <file.csv>", typeNames())
	}
	t, err := report.ParseType(fs.Arg(0))
	if err != nil {
		return err
	}
	var importedAt time.Time
	if *at != "" {
		if importedAt, err = time.Parse(time.RFC3339, *at); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	res, err := a.ingest.ImportFile(ctx, t, fs.Arg(1), importedAt)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d new, %d updated, %d unchanged, %d skipped, %d field changes\n",
		res.Type, res.Imported, res.Updated, res.Unchanged, res.Skipped, res.Changes)
	for _, e := range res.Errors {
		fmt.Fprintln(os.Stderr, dimStyle.Render("warning: "+e.Error()))
	}
	return nil
}

func (a *app) runStatus(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	snapshot := fs.Bool("snapshot", false, "record the evaluation so the next run shows changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []service.ClientHealth
	if fs.NArg() > 0 {
		c, err := a.findClient(ctx, strings.Join(fs.Args(), " "))
		if err != nil {
			return err
		}
		h, err := a.health.Evaluate(ctx, c)
		if err != nil {
			return err
		}
		list = []service.ClientHealth{h}
	} else {
		var err error
		if list, err = a.health.EvaluateAll(ctx); err != nil {
			return err
		}
	}

	if *snapshot {
		if err := a.health.Snapshot(ctx, list); err != nil {
			return err
		}
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	if len(list) == 1 && fs.NArg() > 0 {
		printDetail(list[0], a.loc)
		return nil
	}
	printStatusTable(list)
	return nil
}

func printStatusTable(list []service.ClientHealth) {
	headers := []string{"Client", "Status"}
	for _, c := range scoring.Categories {
		headers = append(headers, string(c))
	}
	headers = append(headers, "Was")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, h := range list {
		row := []string{h.Client.Name, tui.StatusBadge(h.Status)}
		for _, c := range scoring.Categories {
			r, ok := h.Categories[c]
			if !ok {
				row = append(row, dimStyle.Render("off"))
				continue
			}
			row = append(row, tui.StatusBadge(r.Status))
		}
		was := ""
		if h.Changed() {
			was = string(h.Previous)
		}
		row = append(row, was)
		t.Row(row...)
	}
	fmt.Println(t)
}

func printDetail(h service.ClientHealth, loc *time.Location) {
	fmt.Printf("%s  %s", headerStyle.Render(h.Client.Name), tui.StatusBadge(h.Status))
	if h.Total > 0 {
		fmt.Printf("  total %.1f", h.Total)
	}
	fmt.Println()
	for _, c := range scoring.Categories {
		r, ok := h.Categories[c]
		if !ok {
			continue
		}
		fmt.Printf("  %-10s %s  %s\n", c, tui.StatusBadge(r.Status), r.Reason)
		keys := make([]string, 0, len(r.Counts))
		for k, v := range r.Counts {
			if v > 0 {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %-13s %d\n", k, r.Counts[k])
		}
	}
	fmt.Println(dimStyle.Render("evaluated " + h.EvaluatedAt.In(loc).Format("2006-01-02 15:04 MST")))
}

// findClient resolves an id or a case-insensitive name or alias.
func (a *app) findClient(ctx context.Context, ref string) (client.Client, error) {
	c, err := a.directory.Get(ctx, ref)
	if err != nil {
		return client.Client{}, err
	}
	if c != nil {
		return *c, nil
	}
	all, err := a.directory.List(ctx)
	if err != nil {
		return client.Client{}, err
	}
	key := client.Fold(ref)
	for _, c := range all {
		for _, n := range c.Names() {
			if client.Fold(n) == key {
				return c, nil
			}
		}
	}
	return client.Client{}, fmt.Errorf("no client matches %q", ref)
}

func (a *app) runBoard(ctx context.Context, args []string) error {
	fs := newFlagSet("board")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p := tea.NewProgram(
		tui.New(ctx, tui.Services{Health: a.health, Ingest: a.ingest}, a.loc),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (a *app) runServe(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", a.cfg.HTTP.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	srv := httpapi.NewServer(a.health, a.ingest, a.directory, a.log)
	return srv.ListenAndServe(ctx, *addr)
}

func (a *app) runClients(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: clienthealth clients add|list|load|export|remove")
	}
	sub, rest := args[0], args[1:]
	fs := newFlagSet("clients " + sub)
	aliases := fs.StringSlice("alias", nil, "alias (repeatable or comma separated)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch sub {
	case "add":
		if fs.NArg() == 0 {
			return errors.New("usage: clienthealth clients add <name> [--alias a,b]")
		}
		c, err := a.directory.Add(ctx, strings.Join(fs.Args(), " "), *aliases)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", c.ID, c.Name)
	case "list":
		list, err := a.directory.List(ctx)
		if err != nil {
			return err
		}
		for _, c := range list {
			line := fmt.Sprintf("%s  %s", dimStyle.Render(c.ID), c.Name)
			if len(c.Aliases) > 0 {
				line += dimStyle.Render("  (" + strings.Join(c.Aliases, ", ") + ")")
			}
			fmt.Println(line)
		}
	case "load":
		if fs.NArg() != 1 {
			return errors.New("usage: clienthealth clients load <clients.toml>")
		}
		n, err := a.directory.LoadFile(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d clients\n", n)
	case "export":
		if fs.NArg() == 0 {
			return a.directory.Export(ctx, os.Stdout)
		}
		f, err := os.Create(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := a.directory.Export(ctx, f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	case "remove":
		if fs.NArg() == 0 {
			return errors.New("usage: clienthealth clients remove <id|name>")
		}
		return a.directory.Remove(ctx, strings.Join(fs.Args(), " "))
	default:
		return fmt.Errorf("unknown clients command %q", sub)
	}
	return nil
}

func (a *app) runUnmatched(ctx context.Context, args []string) error {
	fs := newFlagSet("unmatched")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.health.Unmatched(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("every organization matches a client")
		return nil
	}
	for _, s := range list {
		line := s.Organization
		if s.ClientName != "" {
			line += dimStyle.Render(fmt.Sprintf("  alias of %s? (distance %d)", s.ClientName, s.Distance))
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) runImports(ctx context.Context, args []string) error {
	fs := newFlagSet("imports")
	limit := fs.IntP("limit", "n", 20, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.ingest.Imports(ctx, *limit)
	if err != nil {
		return err
	}
	for _, l := range list {
		fmt.Printf("%s  %-16s %3d new %3d updated %3d unchanged %3d skipped  %s\n",
			l.ImportedAt.In(a.loc).Format("2006-01-02 15:04"), l.ReportType,
			l.Imported, l.Updated, l.Unchanged, l.Skipped, dimStyle.Render(l.Source))
	}
	return nil
}

func (a *app) runReset(ctx context.Context, args []string) error {
	fs := newFlagSet("reset")
	all := fs.Bool("all", false, "reset every report type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var t report.Type
	switch {
	case fs.NArg() == 1:
		var err error
		if t, err = report.ParseType(fs.Arg(0)); err != nil {
			return err
		}
	case fs.NArg() == 0 && *all:
	default:
		return fmt.Errorf("usage: clienthealth reset <%s> | --all", typeNames())
	}
	if err := a.maintenance.Reset(ctx, t); err != nil {
		return err
	}
	if t == "" {
		fmt.Println("all stores cleared")
	} else {
		fmt.Printf("%s cleared\n", t)
	}
	return nil
}

func (a *app) runSeed(ctx context.Context, args []string) error {
	fs := newFlagSet("seed")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	err := testdata.Seed(ctx, testdata.Services{Directory: a.directory, Ingest: a.ingest}, time.Now().UTC(), *seed)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d sample clients\n", len(testdata.SampleClients))
	return nil
}

func runConfig(cfg config.Config, args []string) error {
	fs := newFlagSet("config")
	write := fs.Bool("write", false, "write the effective configuration to "+config.Path())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *write {
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Println("wrote", config.Path())
		return nil
	}
	fmt.Println(dimStyle.Render("# " + config.Path()))
	return toml.NewEncoder(os.Stdout).Encode(map[string]map[string]string{
		"database": {"path": cfg.Database.Path},
		"log":      {"level": cfg.Log.Level, "format": cfg.Log.Format},
		"scoring":  {"path": cfg.Scoring.Path},
		"http":     {"addr": cfg.HTTP.Addr},
		"ui":       {"timezone": cfg.UI.Timezone},
	})
}

func typeNames() string {
	names := make([]string, len(report.Types))
	for i, t := range report.Types {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
