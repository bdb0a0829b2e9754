package realtime

import "go.uber.org/zap"

// Event names delivered to connected clients. These are the wire contract
// with the frontend and must not be renamed.
const (
	EventNewPickup       = "new-pickup"
	EventPickupCreated   = "pickup-created"
	EventPickupUpdated   = "pickup-updated"
	EventPickupAssigned  = "pickup-assigned"
	EventPickupCompleted = "pickup-completed"
	EventPointsAwarded   = "points-awarded"
	EventPickupDeleted   = "pickup-deleted"
)

// Dispatcher delivers state-transition events to connected clients.
// Delivery is best effort: implementations never return an error and never
// block the calling state transition.
type Dispatcher interface {
	// Publish emits the event on the global channel and, when userID is
	// non-empty, on that user's private channel as well.
	Publish(event string, payload interface{}, userID string)
}

// Nop is the dispatcher used when no realtime transport is configured.
// Events are dropped and the condition is logged.
type Nop struct {
	Log *zap.Logger
}

func (n Nop) Publish(event string, payload interface{}, userID string) {
	if n.Log != nil {
		n.Log.Debug("realtime transport unavailable, dropping event",
			zap.String("event", event),
			zap.String("user_id", userID))
	}
}
