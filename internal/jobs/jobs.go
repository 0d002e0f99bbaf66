// Package jobs defines the asynchronous work types enqueued by the API and
// executed by cmd/worker.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypeRegistrationConfirmation = "registration.confirmation"
)

var (
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidJobPayload = errors.New("invalid job payload")
)

func ValidType(t string) bool {
	return t == TypeRegistrationConfirmation
}

// RegistrationConfirmationPayload is enqueued in the same transaction as the
// registration insert; the worker notifies from it without re-reading the row.
type RegistrationConfirmationPayload struct {
	RegistrationID string    `json:"registrationId"`
	EventID        string    `json:"eventId"`
	EventTitle     string    `json:"eventTitle"`
	AttendeeName   string    `json:"attendeeName"`
	RequestedAt    time.Time `json:"requestedAt"`
}

func (p RegistrationConfirmationPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// DecodeRegistrationConfirmation unmarshals and sanity-checks a payload.
func DecodeRegistrationConfirmation(raw json.RawMessage) (RegistrationConfirmationPayload, error) {
	var p RegistrationConfirmationPayload

	if len(raw) == 0 {
		return p, ErrInvalidJobPayload
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if p.RegistrationID == "" || p.EventID == "" || p.AttendeeName == "" {
		return p, ErrInvalidJobPayload
	}

	return p, nil
}

// IdempotencyKey keeps repeated enqueues for the same registration from
// producing duplicate confirmations.
func IdempotencyKey(registrationID string) string {
	return "registration:confirm:" + registrationID
}
