package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/binwise/backend/internal/repository"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.deps.Agents.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(agents),
		"agents":  agents,
	})
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Name and email are required")
		return
	}

	if _, err := s.deps.Agents.GetByEmail(r.Context(), req.Email); err == nil {
		respondError(w, http.StatusBadRequest, "Agent already exists")
		return
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		s.respondServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	agent := &repository.DeliveryAgent{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Agents.Create(r.Context(), agent); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.deps.Agents.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Delivery agent not found")
			return
		}
		s.respondServiceError(w, err)
		return
	}

	var req struct {
		Name      *string `json:"name"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
		Available *bool   `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Email != nil {
		agent.Email = *req.Email
	}
	if req.Phone != nil {
		agent.Phone = *req.Phone
	}
	if req.Available != nil {
		agent.Available = *req.Available
	}
	agent.UpdatedAt = time.Now().UTC()

	if err := s.deps.Agents.Update(r.Context(), agent); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Agents.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Delivery agent removed",
	})
}
