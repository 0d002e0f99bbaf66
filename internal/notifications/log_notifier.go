package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier is the stand-in delivery provider: it just logs the
// confirmation. A real provider (email/SMS) would implement Notifier the
// same way.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmationInput) error {
	// Optional: simulate a slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate a provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	n.log.InfoContext(ctx, "notification.registration_confirmation",
		"attendee", in.AttendeeName,
		"event", in.EventID,
		"event_title", in.EventTitle,
		"registration", in.RegistrationID,
	)
	return nil
}
