// Package server exposes registered job definitions over HTTP for the
// orchestrator and its UI.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"

	"dagtemplate/internal/core"
	"dagtemplate/internal/graph"
)

const (
	defaultUpcoming = 5
	maxUpcoming     = 100
)

// Catalog is the read side of the definition registry.
type Catalog interface {
	Get(id string) (*core.Job, bool)
	List() []*core.Job
}

// LedgerVerifier checks the registration ledger for tampering.
type LedgerVerifier interface {
	Verify() error
}

type Server struct {
	catalog Catalog
	ledger  LedgerVerifier
	docs    *cache.Cache
	now     func() time.Time
}

// New returns a server over catalog. ledger may be nil, in which case
// /ledger/verify reports that no ledger is configured.
func New(catalog Catalog, ledger LedgerVerifier, cacheTTL time.Duration) *Server {
	return &Server{
		catalog: catalog,
		ledger:  ledger,
		docs:    cache.New(cacheTTL, 2*cacheTTL),
		now:     time.Now,
	}
}

// Handler returns the router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/dags", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleDefinition)
		r.Get("/{id}/graph", s.handleGraph)
		r.Get("/{id}/schedule", s.handleSchedule)
	})
	r.Get("/ledger/verify", s.handleVerifyLedger)
	return r
}

type jobSummary struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner,omitempty"`
	Schedule string   `json:"schedule"`
	Version  string   `json:"version"`
	Steps    int      `json:"steps"`
	Tags     []string `json:"tags,omitempty"`
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /dags
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs := s.catalog.List()
	out := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobSummary{
			ID:       job.ID(),
			Owner:    job.Owner(),
			Schedule: job.Schedule().String(),
			Version:  job.Version(),
			Steps:    job.StepCount(),
			Tags:     job.Tags(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /dags/{id}?format=yaml|json
func (s *Server) handleDefinition(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	format, err := core.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	etag := strconv.Quote(job.Version() + "-" + string(format))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := s.encoded(job, format)
	if err != nil {
		slog.Error("Failed to encode job definition", "job_id", job.ID(), "format", format, "error", err)
		http.Error(w, "cannot encode definition", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// encoded returns the cached encoding of job, keyed by version so a
// replaced definition never serves stale bytes.
func (s *Server) encoded(job *core.Job, format core.Format) ([]byte, error) {
	key := job.ID() + "|" + string(format) + "|" + job.Version()
	if v, ok := s.docs.Get(key); ok {
		return v.([]byte), nil
	}
	data, err := core.Encode(job, format)
	if err != nil {
		return nil, err
	}
	s.docs.Set(key, data, cache.DefaultExpiration)
	return data, nil
}

// GET /dags/{id}/graph?format=json|dot
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, graph.Inspect(job))
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		if err := graph.WriteDOT(w, job); err != nil {
			slog.Error("Failed to write DOT graph", "job_id", job.ID(), "error", err)
		}
	default:
		http.Error(w, "format must be json or dot", http.StatusBadRequest)
	}
}

type upcomingRuns struct {
	ID       string      `json:"id"`
	Schedule string      `json:"schedule"`
	From     time.Time   `json:"from"`
	Next     []time.Time `json:"next"`
}

// GET /dags/{id}/schedule?count=N
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	count := defaultUpcoming
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxUpcoming {
			http.Error(w, fmt.Sprintf("count must be between 1 and %d", maxUpcoming), http.StatusBadRequest)
			return
		}
		count = n
	}

	from := s.now().UTC()
	writeJSON(w, http.StatusOK, upcomingRuns{
		ID:       job.ID(),
		Schedule: job.Schedule().String(),
		From:     from,
		Next:     job.Schedule().Upcoming(from, count),
	})
}

// GET /ledger/verify
func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "no ledger configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.ledger.Verify(); err != nil {
		slog.Warn("Ledger verification failed", "error", err)
		http.Error(w, "ledger verification failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*core.Job, bool) {
	id := chi.URLParam(r, "id")
	job, ok := s.catalog.Get(id)
	if !ok {
		http.Error(w, fmt.Sprintf("job %q not found", id), http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func contentType(f core.Format) string {
	if f == core.FormatJSON {
		return "application/json"
	}
	return "application/yaml"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
