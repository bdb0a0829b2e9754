package server

import (
	"net/http"
	"strconv"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.Users.Get(r.Context(), actorFromContext(r.Context()).ID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"userData": profile,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Users.List(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"users":   list,
	})
}

func (s *Server) handleMyActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid value for 'limit' parameter")
			return
		}
	}

	entries, err := s.deps.Users.Activity(r.Context(), actorFromContext(r.Context()).ID, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"activity": entries,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Users.RecordProgress(r.Context(), actorFromContext(r.Context()).ID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"redeemed":      result.Redeemed,
		"dailyProgress": result.DailyProgress,
		"updatedPoints": result.UpdatedPoints,
	})
}
