package stats

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// HandleLeaderboard serves GET /api/v1/leaderboard?limit=20.
func (s *Service) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.Leaderboard(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load leaderboard")
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.log.Error().Err(err).Msg("failed to encode leaderboard")
	}
}
