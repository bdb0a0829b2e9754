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

func (s *Server) handleListCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := s.deps.Centers.GetAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(centers),
		"centers": centers,
	})
}

func (s *Server) handleGetCenter(w http.ResponseWriter, r *http.Request) {
	center, err := s.deps.Centers.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Center not found")
			return
		}
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"center":  center,
	})
}

type centerRequest struct {
	Name              string   `json:"name"`
	Location          string   `json:"location"`
	Contact           string   `json:"contact"`
	Address           string   `json:"address"`
	OperatingHours    string   `json:"operatingHours"`
	AcceptedMaterials []string `json:"acceptedMaterials"`
	Capacity          float64  `json:"capacity"`
	Status            string   `json:"status"`
}

func (s *Server) handleCreateCenter(w http.ResponseWriter, r *http.Request) {
	var req centerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Location == "" {
		respondError(w, http.StatusBadRequest, "Name and location are required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	now := time.Now().UTC()
	center := &repository.Center{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Location:          req.Location,
		Contact:           req.Contact,
		Address:           req.Address,
		OperatingHours:    req.OperatingHours,
		AcceptedMaterials: req.AcceptedMaterials,
		Capacity:          req.Capacity,
		Status:            req.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.deps.Centers.Create(r.Context(), center); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"center":  center,
	})
}

func (s *Server) handleUpdateCenter(w http.ResponseWriter, r *http.Request) {
	center, err := s.deps.Centers.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Center not found")
			return
		}
		s.respondServiceError(w, err)
		return
	}

	var req struct {
		Name              *string  `json:"name"`
		Location          *string  `json:"location"`
		Contact           *string  `json:"contact"`
		Address           *string  `json:"address"`
		OperatingHours    *string  `json:"operatingHours"`
		AcceptedMaterials []string `json:"acceptedMaterials"`
		Capacity          *float64 `json:"capacity"`
		CurrentLoad       *float64 `json:"currentLoad"`
		Status            *string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		center.Name = *req.Name
	}
	if req.Location != nil {
		center.Location = *req.Location
	}
	if req.Contact != nil {
		center.Contact = *req.Contact
	}
	if req.Address != nil {
		center.Address = *req.Address
	}
	if req.OperatingHours != nil {
		center.OperatingHours = *req.OperatingHours
	}
	if req.AcceptedMaterials != nil {
		center.AcceptedMaterials = req.AcceptedMaterials
	}
	if req.Capacity != nil {
		center.Capacity = *req.Capacity
	}
	if req.CurrentLoad != nil {
		center.CurrentLoad = *req.CurrentLoad
	}
	if req.Status != nil {
		center.Status = *req.Status
	}
	center.UpdatedAt = time.Now().UTC()

	if err := s.deps.Centers.Update(r.Context(), center); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"center":  center,
	})
}

func (s *Server) handleDeleteCenter(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Centers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Center removed",
	})
}
