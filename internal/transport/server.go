package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ShayCichocki/beacon/internal/publisher"
	"github.com/ShayCichocki/beacon/internal/session"
	"github.com/ShayCichocki/beacon/internal/state"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// sessionHandle is what the websocket handler needs from a session.
// *session.Controller satisfies it.
type sessionHandle interface {
	Ingest(models.Utterance)
	End()
	ResponderMessage() string
}

// Archive is the read API's view of the incident archive. *state.DB
// satisfies it; nil disables the archive fallback.
type Archive interface {
	GetIncident(callID string) (*models.IncidentRecord, error)
	ListRecent(limit int) ([]state.IncidentSummary, error)
}

// Config holds the server's listen address and call greeting.
type Config struct {
	Addr     string
	Greeting string
}

// Server is Beacon's HTTP surface: the call websocket plus the JSON read API.
type Server struct {
	httpServer *http.Server
	sessions   *session.Store
	pub        *publisher.Publisher
	archive    Archive
	greeting   string
}

// NewServer wires the routes. The caller owns the session store's and
// archive's lifecycles.
func NewServer(cfg Config, sessions *session.Store, pub *publisher.Publisher, archive Archive) *Server {
	s := &Server{
		sessions: sessions,
		pub:      pub,
		archive:  archive,
		greeting: cfg.Greeting,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /llm-websocket/{call_id}", s.handleCallSocket)
	mux.HandleFunc("GET /api/incidents", s.handleListIncidents)
	mux.HandleFunc("GET /api/incidents/latest", s.handleLatestIncident)
	mux.HandleFunc("GET /api/incidents/{call_id}", s.handleGetIncident)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	log.Printf("[transport] listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_calls": s.sessions.Len(),
	})
}

// handleLatestIncident serves the most recently updated live snapshot. The
// live set empties once the store evicts terminal sessions, so an empty
// publisher falls back to the newest archived incident; the dashboard keeps
// showing the last call instead of reverting to an empty state.
func (s *Server) handleLatestIncident(w http.ResponseWriter, r *http.Request) {
	if rec := s.pub.Latest(); rec != nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if s.archive != nil {
		summaries, err := s.archive.ListRecent(1)
		if err != nil {
			log.Printf("[transport] loading latest incident: %v", err)
		} else if len(summaries) > 0 {
			rec, err := s.archive.GetIncident(summaries[0].CallID)
			if err == nil {
				writeJSON(w, http.StatusOK, rec)
				return
			}
			log.Printf("[transport] loading latest incident %s: %v", summaries[0].CallID, err)
		}
	}
	http.Error(w, "no incidents", http.StatusNotFound)
}

// handleGetIncident serves the live snapshot when the call is active and
// falls back to the archive once the session has been evicted.
func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("call_id")

	if rec := s.pub.Get(callID); rec != nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if s.archive != nil {
		rec, err := s.archive.GetIncident(callID)
		if err == nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		if !errors.Is(err, state.ErrNotFound) {
			log.Printf("[transport] loading incident %s: %v", callID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	http.Error(w, "incident not found", http.StatusNotFound)
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusOK, []state.IncidentSummary{})
		return
	}
	summaries, err := s.archive.ListRecent(50)
	if err != nil {
		log.Printf("[transport] listing incidents: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []state.IncidentSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[transport] encoding response: %v", err)
	}
}
