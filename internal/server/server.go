//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/binwise/backend/internal/auth"
	"github.com/binwise/backend/internal/pickups"
	"github.com/binwise/backend/internal/repository"
	"github.com/binwise/backend/internal/users"
)

type PickupService interface {
	Create(ctx context.Context, actor pickups.Actor, input pickups.CreateInput) (*pickups.Pickup, error)
	Update(ctx context.Context, actor pickups.Actor, id string, input pickups.UpdateInput) (*pickups.Pickup, error)
	Assign(ctx context.Context, actor pickups.Actor, id, agentID string, pickupTime *time.Time) (*pickups.Pickup, error)
	Complete(ctx context.Context, actor pickups.Actor, id string) (*pickups.CompleteResult, error)
	Delete(ctx context.Context, actor pickups.Actor, id string) error
	GetMy(ctx context.Context, actor pickups.Actor) ([]*pickups.Pickup, error)
	GetAll(ctx context.Context, actor pickups.Actor) ([]*pickups.Pickup, error)
}

type UserService interface {
	Get(ctx context.Context, id string) (*users.Profile, error)
	List(ctx context.Context) ([]*users.Profile, error)
	Activity(ctx context.Context, userID string, limit int) ([]*users.Activity, error)
	RecordProgress(ctx context.Context, userID string) (*users.ProgressResult, error)
}

type AuthService interface {
	Register(ctx context.Context, name, email, password, role string) (*repository.User, string, error)
	Login(ctx context.Context, email, password string) (*repository.User, string, error)
}

type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

type AgentStore interface {
	Create(ctx context.Context, agent *repository.DeliveryAgent) error
	GetByID(ctx context.Context, id string) (*repository.DeliveryAgent, error)
	GetByEmail(ctx context.Context, email string) (*repository.DeliveryAgent, error)
	GetAll(ctx context.Context) ([]*repository.DeliveryAgent, error)
	Update(ctx context.Context, agent *repository.DeliveryAgent) error
	Delete(ctx context.Context, id string) error
}

type CenterStore interface {
	Create(ctx context.Context, center *repository.Center) error
	GetByID(ctx context.Context, id string) (*repository.Center, error)
	GetAll(ctx context.Context, status string) ([]*repository.Center, error)
	Update(ctx context.Context, center *repository.Center) error
	Delete(ctx context.Context, id string) error
}

type RealtimeHub interface {
	HandleConnection(w http.ResponseWriter, r *http.Request, userID string)
	ConnectedUsers() int
}

type WelcomeMailer interface {
	SendWelcome(name, to string)
}

type Deps struct {
	Pickups PickupService
	Users   UserService
	Auth    AuthService
	Tokens  TokenValidator
	Agents  AgentStore
	Centers CenterStore
	Hub     RealtimeHub
	Mailer  WelcomeMailer
	Outbox  OutboxRepository

	AuditTopic string
}

type Server struct {
	deps         Deps
	log          *zap.Logger
	secureCookie bool
	server       *http.Server
	AuditManager *AuditManager
}

func New(deps Deps, secureCookie bool, log *zap.Logger) *Server {
	auditManager := NewAuditManager(deps.Outbox, deps.AuditTopic, 2, 5, 500*time.Millisecond, log)
	return &Server{
		deps:         deps,
		log:          log,
		secureCookie: secureCookie,
		AuditManager: auditManager,
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	s.log.Info("server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.AuditManager.Shutdown(ctx)

	s.log.Info("server shutdown completed")
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.auditLogMiddleware)

	authAPI := api.PathPrefix("/auth").Subrouter()
	authAPI.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authAPI.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authAPI.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/pickups", s.handleCreatePickup).Methods(http.MethodPost)
	protected.HandleFunc("/pickups/my", s.handleMyPickups).Methods(http.MethodGet)
	protected.HandleFunc("/pickups/{id}", s.handleUpdatePickup).Methods(http.MethodPut)
	protected.HandleFunc("/pickups/{id}/complete", s.handleCompletePickup).Methods(http.MethodPut)
	protected.HandleFunc("/pickups/{id}", s.handleDeletePickup).Methods(http.MethodDelete)

	protected.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/me/activity", s.handleMyActivity).Methods(http.MethodGet)
	protected.HandleFunc("/progress", s.handleProgress).Methods(http.MethodPost)

	protected.HandleFunc("/centers", s.handleListCenters).Methods(http.MethodGet)
	protected.HandleFunc("/centers/{id}", s.handleGetCenter).Methods(http.MethodGet)
	protected.HandleFunc("/delivery-agents", s.handleListAgents).Methods(http.MethodGet)

	admin := protected.NewRoute().Subrouter()
	admin.Use(s.adminOnly)

	admin.HandleFunc("/pickups", s.handleAllPickups).Methods(http.MethodGet)
	admin.HandleFunc("/pickups/{id}/assign", s.handleAssignPickup).Methods(http.MethodPut)
	admin.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)

	admin.HandleFunc("/delivery-agents", s.handleCreateAgent).Methods(http.MethodPost)
	admin.HandleFunc("/delivery-agents/{id}", s.handleUpdateAgent).Methods(http.MethodPut)
	admin.HandleFunc("/delivery-agents/{id}", s.handleDeleteAgent).Methods(http.MethodDelete)

	admin.HandleFunc("/centers", s.handleCreateCenter).Methods(http.MethodPost)
	admin.HandleFunc("/centers/{id}", s.handleUpdateCenter).Methods(http.MethodPut)
	admin.HandleFunc("/centers/{id}", s.handleDeleteCenter).Methods(http.MethodDelete)

	router.Handle("/ws", s.authMiddleware(http.HandlerFunc(s.handleWebsocket))).Methods(http.MethodGet)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"connections": s.deps.Hub.ConnectedUsers(),
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	s.deps.Hub.HandleConnection(w, r, actor.ID)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// respondServiceError maps domain errors onto HTTP statuses. Internal
// failures are masked with a generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pickups.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pickups.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, pickups.ErrNotFound), errors.Is(err, users.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, pickups.ErrConflict):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrObjectNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	default:
		s.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Server error")
	}
}
