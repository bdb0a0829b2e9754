package repository

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("not found")

const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
)

type Pickup struct {
	ID              string          `db:"id"`
	UserID          string          `db:"user_id"`
	Items           json.RawMessage `db:"items"`
	Address         string          `db:"address"`
	Weight          float64         `db:"weight"`
	Instructions    string          `db:"instructions"`
	PickupTime      time.Time       `db:"pickup_time"`
	TimeSlot        string          `db:"time_slot"`
	Status          string          `db:"status"`
	AwardedPoints   int             `db:"awarded_points"`
	Gains           float64         `db:"gains"`
	DeliveryAgentID *string         `db:"delivery_agent_id"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type User struct {
	ID               string     `db:"id"`
	Name             string     `db:"name"`
	Email            string     `db:"email"`
	Password         string     `db:"password"`
	Role             string     `db:"role"`
	Points           int        `db:"points"`
	Gains            float64    `db:"gains"`
	DaysRecycled     int        `db:"days_recycled"`
	DailyProgress    int        `db:"daily_progress"`
	LastProgressDate *time.Time `db:"last_progress_date"`
	Level            []string   `db:"level"`
	Badges           []string   `db:"badges"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

type ActivityEntry struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Action    string    `db:"action"`
	Points    int       `db:"points"`
	Gains     float64   `db:"gains"`
	CreatedAt time.Time `db:"created_at"`
}

type DeliveryAgent struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Available bool      `db:"available"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Center struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Location          string    `db:"location"`
	Contact           string    `db:"contact"`
	Address           string    `db:"address"`
	OperatingHours    string    `db:"operating_hours"`
	AcceptedMaterials []string  `db:"accepted_materials"`
	Capacity          float64   `db:"capacity"`
	CurrentLoad       float64   `db:"current_load"`
	Status            string    `db:"status"`
	Rating            float64   `db:"rating"`
	TotalReviews      int       `db:"total_reviews"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}
