package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := AuditLogEntry{
			Timestamp: time.Now().UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   getHandlerName(r.URL.Path, r.Method),
		}

		if strings.Contains(r.URL.Path, "/pickups/") {
			parts := strings.Split(r.URL.Path, "/")
			for i, part := range parts {
				if part == "pickups" && i+1 < len(parts) && parts[i+1] != "my" {
					entry.PickupID = parts[i+1]
					break
				}
			}
		}

		skipBody := strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") ||
			strings.Contains(r.URL.Path, "/auth/")
		if !skipBody && r.Body != nil {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)
		}

		rec := recordResponse(w)

		// The actor is resolved by authMiddleware further down the chain;
		// the holder lets this middleware see it after the handler ran.
		holder := &actorHolder{}
		r = r.WithContext(context.WithValue(r.Context(), actorHolderKey, holder))

		next.ServeHTTP(rec, r)

		entry.UserID = holder.actor.ID
		entry.StatusCode = rec.Status()
		entry.Response = string(rec.Body())

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

func getHandlerName(path string, method string) string {
	switch {
	case strings.HasPrefix(path, "/api/auth/register"):
		return "handleRegister"
	case strings.HasPrefix(path, "/api/auth/login"):
		return "handleLogin"
	case strings.HasPrefix(path, "/api/auth/logout"):
		return "handleLogout"
	case strings.HasPrefix(path, "/api/pickups"):
		switch {
		case method == http.MethodPost:
			return "handleCreatePickup"
		case strings.HasSuffix(path, "/my"):
			return "handleMyPickups"
		case strings.HasSuffix(path, "/assign"):
			return "handleAssignPickup"
		case strings.HasSuffix(path, "/complete"):
			return "handleCompletePickup"
		case method == http.MethodPut:
			return "handleUpdatePickup"
		case method == http.MethodDelete:
			return "handleDeletePickup"
		case method == http.MethodGet:
			return "handleAllPickups"
		}
	case strings.HasPrefix(path, "/api/users/me/activity"):
		return "handleMyActivity"
	case strings.HasPrefix(path, "/api/users/me"):
		return "handleMe"
	case strings.HasPrefix(path, "/api/users"):
		return "handleListUsers"
	case strings.HasPrefix(path, "/api/progress"):
		return "handleProgress"
	case strings.HasPrefix(path, "/api/delivery-agents"):
		switch method {
		case http.MethodPost:
			return "handleCreateAgent"
		case http.MethodPut:
			return "handleUpdateAgent"
		case http.MethodDelete:
			return "handleDeleteAgent"
		default:
			return "handleListAgents"
		}
	case strings.HasPrefix(path, "/api/centers"):
		switch method {
		case http.MethodPost:
			return "handleCreateCenter"
		case http.MethodPut:
			return "handleUpdateCenter"
		case http.MethodDelete:
			return "handleDeleteCenter"
		default:
			return "handleListCenters"
		}
	}
	return "unknown"
}
