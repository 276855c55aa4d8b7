package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/jask/clienthealth/internal/config"
	"github.com/jask/clienthealth/internal/database"
	"github.com/jask/clienthealth/internal/logger"
	"github.com/jask/clienthealth/internal/scoring"
	"github.com/jask/clienthealth/internal/service"
)

const usage = `clienthealth tracks client health from incident, ticket and jira exports.

Usage:
  clienthealth <command> [flags]

Commands:
  import <type> <file.csv>   merge a CSV export into the store
  status [client]            print the status table
  board                      open the interactive board
  serve                      run the read-only JSON API
  clients add|list|load|export|remove
  unmatched                  organizations no client claims
  imports                    recent import runs
  reset [type]               clear one store or all of them
  config [--write]           show the effective configuration
  seed                       load sample clients and exports
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything a command needs once startup has finished.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	db      *sql.DB
	loc     *time.Location
	scoring scoring.Config

	health      *service.HealthService
	ingest      *service.IngestService
	directory   *service.DirectoryService
	maintenance *service.MaintenanceService
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Print(usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Log)

	cmd, rest := args[0], args[1:]
	if cmd == "config" {
		return runConfig(cfg, rest)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.db.Close()

	switch cmd {
	case "import":
		return a.runImport(ctx, rest)
	case "status":
		return a.runStatus(ctx, rest)
	case "board":
		return a.runBoard(ctx, rest)
	case "serve":
		return a.runServe(ctx, rest)
	case "clients":
		return a.runClients(ctx, rest)
	case "unmatched":
		return a.runUnmatched(ctx, rest)
	case "imports":
		return a.runImports(ctx, rest)
	case "reset":
		return a.runReset(ctx, rest)
	case "seed":
		return a.runSeed(ctx, rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func setup(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.SeedReportTypes(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed report types: %w", err)
	}

	sc, err := config.LoadScoring(cfg.Scoring.Path)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.UI.Timezone).Msg("using local timezone")
		loc = time.Local
	}

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		loc:         loc,
		scoring:     sc,
		health:      &service.HealthService{DB: db, Scoring: sc, Log: log},
		ingest:      &service.IngestService{DB: db, Log: log},
		directory:   &service.DirectoryService{DB: db, Log: log},
		maintenance: &service.MaintenanceService{DB: db, Log: log},
	}, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}
