package web

import (
	"encoding/json"
	"net/http"
	"sort"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.handleHealth)
	s.router.Get("/api/v1/status", s.handleStatus)
	s.router.Get("/api/v1/profiles", s.handleProfiles)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lastStatus, lastDetail := s.status.LastStatus()
	respondJSON(w, http.StatusOK, map[string]string{
		"state":       s.status.State().String(),
		"owner":       s.status.Owner(),
		"run_id":      s.status.RunID(),
		"last_status": string(lastStatus),
		"last_detail": lastDetail,
	})
}

type profileInfo struct {
	Name      string `json:"name"`
	Samples   int    `json:"samples"`
	Dimension int    `json:"dimension"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	all, err := s.profiles.GetAll()
	if err != nil {
		s.logger.Error("failed to load profiles", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load profiles")
		return
	}

	profiles := make([]profileInfo, 0, len(all))
	for name, samples := range all {
		info := profileInfo{Name: name, Samples: len(samples)}
		if len(samples) > 0 {
			info.Dimension = len(samples[0])
		}
		profiles = append(profiles, info)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	respondJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}
