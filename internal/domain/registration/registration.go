package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Registration struct {
	ID               string    `json:"id"`
	EventID          string    `json:"eventId"`
	AttendeeName     string    `json:"attendeeName"`
	RegistrationDate time.Time `json:"registrationDate"`
	CreatedAt        time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("registration not found")

// CapacityError carries the event title and capacity so the handler can
// build the user-facing message without a second lookup.
type CapacityError struct {
	EventTitle string
	Capacity   int
	Count      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Event %q is at full capacity (%d/%d)", e.EventTitle, e.Count, e.Capacity)
}

// DuplicateError reports an attendee name already registered for the event.
// Matching is exact and case-sensitive.
type DuplicateError struct {
	AttendeeName string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%q is already registered for this event", e.AttendeeName)
}

type CreateRegistrationRequest struct {
	EventID      string `json:"-"`
	AttendeeName string `json:"attendeeName" binding:"required,min=1,max=200"`
}

// NewFromCreateRequest builds a Registration from the incoming DTO with the
// current timestamp as the registration date.
func NewFromCreateRequest(req CreateRegistrationRequest) Registration {
	now := time.Now().UTC()
	return Registration{
		ID:               uuid.NewString(),
		EventID:          req.EventID,
		AttendeeName:     req.AttendeeName,
		RegistrationDate: now,
		CreatedAt:        now,
	}
}
