package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/transcriptprune/transcriptprune/internal/history"
)

// handleIndex serves the main dashboard page: recent prune invocations
// across the project, plus pending boundary markers.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	invocations, err := s.store.RecentInvocations(r.Context(), "", 100)
	if err != nil {
		s.logger.Error("query invocations", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	markers, err := s.store.PendingMarkers(r.Context())
	if err != nil {
		s.logger.Error("query markers", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("query stats", "error", err)
		stats = &history.Stats{}
	}

	data := map[string]any{
		"Invocations": invocations,
		"Markers":     markers,
		"Stats":       stats,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

// handleAPIHistory returns recent prune-history rows as JSON.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	invocations, err := s.store.RecentInvocations(r.Context(), sessionID, 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invocations)
}

// handleAPIBoundaries returns unconsumed boundary markers as JSON.
func (s *Server) handleAPIBoundaries(w http.ResponseWriter, r *http.Request) {
	markers, err := s.store.PendingMarkers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markers)
}
