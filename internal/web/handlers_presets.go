package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/metasync/internal/mapping"
)

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetPreset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreatePreset saves the current mapping under a name.
func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var p mapping.Preset
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.service.CreatePreset(r.Context(), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	var p mapping.Preset
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")

	updated, err := s.service.UpdatePreset(r.Context(), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePreset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchPresets scores saved presets against {"headers": [...]}.
func (s *Server) handleMatchPresets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Headers []string `json:"headers"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	matches, err := s.service.MatchPresets(r.Context(), mapping.UsableHeaders(req.Headers))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
