package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/binwise/backend/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Message is the JSON frame pushed to clients.
type Message struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}

type session struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub is the session registry for connected realtime clients, keyed by user
// id. It implements Dispatcher. A hub is safe for concurrent use.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	byUser map[string]map[*session]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		byUser: make(map[string]map[*session]struct{}),
	}
}

// HandleConnection upgrades the request and registers the session under the
// authenticated user id.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.add(s)
	h.log.Info("realtime client connected", zap.String("user_id", userID))

	go s.writeLoop()
	go h.readLoop(s)
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[s.userID] == nil {
		h.byUser[s.userID] = make(map[*session]struct{})
	}
	h.byUser[s.userID][s] = struct{}{}
	metrics.RealtimeSessions.Inc()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, ok := h.byUser[s.userID]
	if !ok {
		return
	}
	if _, ok := sessions[s]; !ok {
		return
	}
	delete(sessions, s)
	if len(sessions) == 0 {
		delete(h.byUser, s.userID)
	}
	close(s.send)
	metrics.RealtimeSessions.Dec()
}

// Publish emits the event on the global channel (every connected session)
// and, when userID is given, on that user's private channel. Slow clients
// are skipped rather than blocking the caller.
func (h *Hub) Publish(event string, payload interface{}, userID string) {
	global, err := json.Marshal(Message{Event: event, Channel: "global", Data: payload})
	if err != nil {
		h.log.Error("failed to marshal realtime event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sessions := range h.byUser {
		for s := range sessions {
			h.trySend(s, global, event)
		}
	}

	if userID == "" {
		return
	}

	scoped, err := json.Marshal(Message{Event: event, Channel: "user:" + userID, Data: payload})
	if err != nil {
		h.log.Error("failed to marshal realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	for s := range h.byUser[userID] {
		h.trySend(s, scoped, event)
	}
}

func (h *Hub) trySend(s *session, frame []byte, event string) {
	select {
	case s.send <- frame:
	default:
		h.log.Warn("dropping realtime event for slow client",
			zap.String("event", event),
			zap.String("user_id", s.userID))
	}
}

// ConnectedUsers reports how many distinct users have at least one session.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}

func (h *Hub) readLoop(s *session) {
	defer func() {
		h.remove(s)
		s.conn.Close()
		h.log.Info("realtime client disconnected", zap.String("user_id", s.userID))
	}()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Clients do not send application data; the read loop only
		// services control frames and detects disconnects.
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
