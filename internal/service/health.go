package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/clienthealth/internal/client"
	"github.com/jask/clienthealth/internal/database/repository"
	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/scoring"
)

// HealthService scores clients against the stored reports.
type HealthService struct {
	DB      *sql.DB
	Scoring scoring.Config
	Log     zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// ClientHealth is one evaluated client.
type ClientHealth struct {
	Client      client.Client                            `json:"client"`
	Status      scoring.Status                           `json:"status"`
	Total       float64                                  `json:"total"`
	Categories  map[scoring.Category]scoring.ScoreResult `json:"categories"`
	Previous    scoring.Status                           `json:"previous,omitempty"`
	EvaluatedAt time.Time                                `json:"evaluatedAt"`
}

// Changed reports whether the status differs from the last snapshot.
func (h ClientHealth) Changed() bool {
	return h.Previous != "" && h.Previous != h.Status
}

func (s *HealthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *HealthService) loadStores(ctx context.Context) (map[report.Type]report.Store, error) {
	reports := repository.NewReportRepo(s.DB)
	out := make(map[report.Type]report.Store, len(report.Types))
	for _, t := range report.Types {
		st, err := reports.Load(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = st
	}
	return out, nil
}

// Assess scores c over already loaded stores. Only the stores feeding
// enabled categories are filtered.
func Assess(c client.Client, stores map[report.Type]report.Store, cfg scoring.Config, now time.Time) ClientHealth {
	byCategory := make(map[scoring.Category][]report.Record, len(scoring.Categories))
	for _, cat := range scoring.Categories {
		if !cfg.EnabledCards[cat] {
			continue
		}
		for _, t := range cat.ReportTypes() {
			byCategory[cat] = append(byCategory[cat], client.Filter(stores[t].Records, c)...)
		}
	}
	results := scoring.ScoreAll(byCategory, cfg, now)
	return ClientHealth{
		Client:      c,
		Status:      scoring.Rollup(results, cfg),
		Total:       scoring.RollupTotal(results, cfg),
		Categories:  results,
		EvaluatedAt: now,
	}
}

// Evaluate scores one client.
func (s *HealthService) Evaluate(ctx context.Context, c client.Client) (ClientHealth, error) {
	stores, err := s.loadStores(ctx)
	if err != nil {
		return ClientHealth{}, fmt.Errorf("evaluate %s: %w", c.Name, err)
	}
	h := Assess(c, stores, s.Scoring, s.now())
	if err := s.attachPrevious(ctx, &h); err != nil {
		return ClientHealth{}, err
	}
	return h, nil
}

// EvaluateAll scores every client in the directory, ordered by name.
func (s *HealthService) EvaluateAll(ctx context.Context) ([]ClientHealth, error) {
	clients, err := repository.NewClientRepo(s.DB).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	stores, err := s.loadStores(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ClientHealth, 0, len(clients))
	for _, c := range clients {
		h := Assess(c, stores, s.Scoring, now)
		if err := s.attachPrevious(ctx, &h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	s.Log.Debug().Int("clients", len(out)).Msg("evaluated clients")
	return out, nil
}

func (s *HealthService) attachPrevious(ctx context.Context, h *ClientHealth) error {
	last, err := repository.NewSnapshotRepo(s.DB).Latest(ctx, h.Client.ID)
	if err != nil {
		return fmt.Errorf("latest snapshot %s: %w", h.Client.Name, err)
	}
	if last != nil {
		h.Previous = last.Status
	}
	return nil
}

// Snapshot persists evaluated statuses so later runs can show changes.
func (s *HealthService) Snapshot(ctx context.Context, list []ClientHealth) error {
	repo := repository.NewSnapshotRepo(s.DB)
	for _, h := range list {
		if err := repo.Insert(ctx, repository.Snapshot{
			ID:          uuid.NewString(),
			ClientID:    h.Client.ID,
			Status:      h.Status,
			Total:       h.Total,
			Categories:  h.Categories,
			EvaluatedAt: h.EvaluatedAt,
		}); err != nil {
			return err
		}
		if h.Changed() {
			s.Log.Info().Str("client", h.Client.Name).
				Str("from", string(h.Previous)).Str("to", string(h.Status)).
				Msg("status changed")
		}
	}
	return nil
}

// Unmatched lists stored organizations no client matches, with alias
// suggestions.
func (s *HealthService) Unmatched(ctx context.Context) ([]client.Suggestion, error) {
	clients, err := repository.NewClientRepo(s.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := s.loadStores(ctx)
	if err != nil {
		return nil, err
	}
	var orgs []string
	for _, t := range report.Types {
		orgs = append(orgs, stores[t].Organizations()...)
	}
	return client.Unmatched(orgs, clients), nil
}
