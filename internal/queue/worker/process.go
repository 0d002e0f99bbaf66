package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmokoena/eventdash/internal/domain/job"
	"github.com/tmokoena/eventdash/internal/jobs"
	"github.com/tmokoena/eventdash/internal/notifications"
)

// ProcessOne claims and executes a single job. It reports whether a job was
// claimed; execution failures are absorbed into retry/failed bookkeeping and
// do not surface as errors.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.process(ctx, j)
	return true, nil
}

func (w *Worker) process(ctx context.Context, j job.Job) {
	start := time.Now()
	w.prom.JobsInFlight.Inc()
	defer w.prom.JobsInFlight.Dec()

	err := w.execute(ctx, j)

	result := "done"
	if err != nil {
		result = w.handleFailure(ctx, j, err)
	} else if markErr := w.repo.MarkDone(ctx, j.ID); markErr != nil {
		w.log.Error("mark done failed", "job_id", j.ID, "error", markErr)
		result = "error"
	}

	w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
	w.prom.JobResults.WithLabelValues(j.Type, result).Inc()

	w.log.Info("job processed",
		"job_id", j.ID,
		"job_type", j.Type,
		"result", result,
		"attempt", j.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	switch j.Type {
	case jobs.TypeRegistrationConfirmation:
		p, err := jobs.DecodeRegistrationConfirmation(j.Payload)
		if err != nil {
			// bad payload never becomes valid; no point retrying
			return permanent(err)
		}
		return w.notifier.SendRegistrationConfirmation(ctx, notifications.RegistrationConfirmationInput{
			RegistrationID: p.RegistrationID,
			EventID:        p.EventID,
			EventTitle:     p.EventTitle,
			AttendeeName:   p.AttendeeName,
		})
	default:
		return permanent(fmt.Errorf("%w: %q", jobs.ErrInvalidJobType, j.Type))
	}
}

// handleFailure decides between retry and terminal failure and returns the
// metric result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	attempt := j.Attempts + 1 // Reschedule bumps the stored counter

	if isPermanent(execErr) || attempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed failed", "job_id", j.ID, "error", err)
		}
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(attempt))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "error", err)
		return "error"
	}
	return "retry"
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}
