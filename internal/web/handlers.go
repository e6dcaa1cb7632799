package web

import (
	"net/http"

	"github.com/JonMunkholm/metasync/internal/host"
	"github.com/JonMunkholm/metasync/internal/logging"
)

type pageData struct {
	Backend       string
	RequireAPIKey bool
	StandardKeys  []string
	AllowedKeys   []string
}

// handleIndex renders the operator page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Backend:       s.cfg.Host.Backend,
		RequireAPIKey: s.cfg.Security.RequireAPIKey,
		StandardKeys:  host.StandardKeys,
		AllowedKeys:   s.cfg.Host.AllowedKeys,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealth reports liveness and pass slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"passes": s.service.LimiterStatus(),
	})
}
