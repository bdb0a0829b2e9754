package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/binwise/backend/internal/pickups"
	"github.com/binwise/backend/internal/reward"
)

type pickupRequest struct {
	Address      string        `json:"address"`
	Items        []reward.Item `json:"items"`
	Weight       float64       `json:"weight"`
	PickupTime   *time.Time    `json:"pickupTime"`
	TimeSlot     string        `json:"time_slot"`
	Instructions *string       `json:"instructions"`
}

func (s *Server) handleCreatePickup(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := pickups.CreateInput{
		Address:  req.Address,
		Items:    req.Items,
		Weight:   req.Weight,
		TimeSlot: req.TimeSlot,
	}
	if req.PickupTime != nil {
		input.PickupTime = *req.PickupTime
	}
	if req.Instructions != nil {
		input.Instructions = *req.Instructions
	}

	pickup, err := s.deps.Pickups.Create(r.Context(), actorFromContext(r.Context()), input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"pickup":        pickup,
		"awardedPoints": pickup.AwardedPoints,
		"gains":         pickup.Gains,
	})
}

func (s *Server) handleMyPickups(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Pickups.GetMy(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"pickups": list,
	})
}

func (s *Server) handleAllPickups(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Pickups.GetAll(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"pickups": list,
	})
}

func (s *Server) handleUpdatePickup(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := pickups.UpdateInput{
		Address:      req.Address,
		Instructions: req.Instructions,
		TimeSlot:     req.TimeSlot,
		Items:        req.Items,
		Weight:       req.Weight,
	}
	if req.PickupTime != nil {
		input.PickupTime = *req.PickupTime
	}

	pickup, err := s.deps.Pickups.Update(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"], input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pickup":  pickup,
	})
}

func (s *Server) handleAssignPickup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeliveryAgentID string     `json:"deliveryAgentId"`
		PickupTime      *time.Time `json:"pickupTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DeliveryAgentID == "" {
		respondError(w, http.StatusBadRequest, "Missing deliveryAgentId")
		return
	}

	pickup, err := s.deps.Pickups.Assign(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"], req.DeliveryAgentID, req.PickupTime)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pickup":  pickup,
	})
}

func (s *Server) handleCompletePickup(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Pickups.Complete(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"pickup":        result.Pickup,
		"awardedPoints": result.AwardedPoints,
		"gains":         result.Gains,
		"user": map[string]interface{}{
			"points": result.UserPoints,
			"gains":  result.UserGains,
		},
	})
}

func (s *Server) handleDeletePickup(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Pickups.Delete(r.Context(), actorFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Pickup request deleted",
	})
}
