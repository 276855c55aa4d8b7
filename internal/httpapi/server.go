package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jask/clienthealth/internal/report"
	"github.com/jask/clienthealth/internal/service"
)

// Server exposes client health as read-only JSON.
type Server struct {
	health    *service.HealthService
	ingest    *service.IngestService
	directory *service.DirectoryService
	log       zerolog.Logger
}

func NewServer(health *service.HealthService, ingest *service.IngestService, directory *service.DirectoryService, log zerolog.Logger) *Server {
	return &Server{health: health, ingest: ingest, directory: directory, log: log}
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/clients", s.listClients).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id}/health", s.clientHealth).Methods(http.MethodGet)
	r.HandleFunc("/reports", s.listReports).Methods(http.MethodGet)
	r.HandleFunc("/reports/{type}", s.getReport).Methods(http.MethodGet)
	r.HandleFunc("/imports", s.listImports).Methods(http.MethodGet)
	r.HandleFunc("/unmatched", s.unmatched).Methods(http.MethodGet)

	return r
}

// Handler is Router wrapped with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.Router())
	return handlers.LoggingHandler(s.log, recovered)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("http api listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type clientSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Previous string  `json:"previous,omitempty"`
	Total    float64 `json:"total"`
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := s.health.EvaluateAll(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]clientSummary, 0, len(list))
	for _, h := range list {
		out = append(out, clientSummary{
			ID:       h.Client.ID,
			Name:     h.Client.Name,
			Status:   string(h.Status),
			Previous: string(h.Previous),
			Total:    h.Total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) clientHealth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := s.directory.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	h, err := s.health.Evaluate(r.Context(), *c)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.ingest.Summaries(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	t, err := report.ParseType(mux.Vars(r)["type"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	store, err := s.ingest.Store(r.Context(), t)
	if err != nil {
		s.fail(w, err)
		return
	}
	if store.Records == nil {
		store.Records = []report.PersistedRecord{}
	}
	writeJSON(w, http.StatusOK, store)
}

func (s *Server) listImports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := s.ingest.Imports(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) unmatched(w http.ResponseWriter, r *http.Request) {
	list, err := s.health.Unmatched(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
