package event

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Date              time.Time       `json:"date"`
	Location          string          `json:"location,omitempty"`
	Capacity          int             `json:"capacity"`
	Price             decimal.Decimal `json:"price"`
	Status            Status          `json:"status"`
	CreatedBy         *string         `json:"createdBy,omitempty"`
	RegistrationCount int             `json:"registrationCount"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

var ErrNotFound = errors.New("event not found")

// CapacityBelowRegistrationsError rejects an update that would shrink capacity
// under the seats already taken.
type CapacityBelowRegistrationsError struct {
	Capacity          int
	RegistrationCount int
}

func (e *CapacityBelowRegistrationsError) Error() string {
	return "capacity cannot be lowered below the current registration count"
}

// Draft carries the raw form values exactly as submitted. Field-level
// validation (the required/date/number checks) lives in validate.go, so the
// binding tags only guard against absurd sizes and unknown statuses.
type Draft struct {
	Title       string `json:"title" binding:"omitempty,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	Date        string `json:"date" binding:"omitempty,max=64"`
	Location    string `json:"location" binding:"omitempty,max=200"`
	Capacity    string `json:"capacity" binding:"omitempty,max=20"`
	Price       string `json:"price" binding:"omitempty,max=32"`
	Status      string `json:"status" binding:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=upcoming ongoing completed cancelled"`
}
