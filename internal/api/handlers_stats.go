package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleTranslateStats(w http.ResponseWriter, r *http.Request) {
	if s.translator == nil || s.translator.Stats == nil {
		jsonError(w, "translation stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.translator.Stats.Snapshot(),
	})
}
