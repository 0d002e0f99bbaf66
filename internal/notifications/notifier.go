package notifications

import "context"

type RegistrationConfirmationInput struct {
	RegistrationID string
	EventID        string
	EventTitle     string
	AttendeeName   string
}

type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, input RegistrationConfirmationInput) error
}
