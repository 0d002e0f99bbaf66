package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmokoena/eventdash/internal/domain/job"
	"github.com/tmokoena/eventdash/internal/jobs"
	"github.com/tmokoena/eventdash/internal/notifications"
	"github.com/tmokoena/eventdash/internal/observability"
)

type fakeJobsRepo struct {
	queued []job.Job

	doneIDs      []string
	failed       map[string]string
	rescheduled  map[string]time.Time
	claimErr     error
	markDoneErr  error
	claimedBy    []string
	claimedCount int
}

func newFakeJobsRepo(queued ...job.Job) *fakeJobsRepo {
	return &fakeJobsRepo{
		queued:      queued,
		failed:      make(map[string]string),
		rescheduled: make(map[string]time.Time),
	}
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if f.claimErr != nil {
		return job.Job{}, f.claimErr
	}
	if len(f.queued) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}
	j := f.queued[0]
	f.queued = f.queued[1:]
	f.claimedBy = append(f.claimedBy, workerID)
	f.claimedCount++
	return j, nil
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	if f.markDoneErr != nil {
		return f.markDoneErr
	}
	f.doneIDs = append(f.doneIDs, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeJobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	sent []notifications.RegistrationConfirmationInput
	err  error
}

func (f *fakeNotifier) SendRegistrationConfirmation(ctx context.Context, in notifications.RegistrationConfirmationInput) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, in)
	return nil
}

func newTestWorker(repo JobsRepository, n notifications.Notifier) *Worker {
	prom := observability.NewProm(prometheus.NewRegistry())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(Config{
		PollInterval: time.Millisecond,
		WorkerID:     "test-worker",
	}, repo, n, nil, prom, log)
}

func confirmationJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := jobs.RegistrationConfirmationPayload{
		RegistrationID: "reg-1",
		EventID:        "evt-1",
		EventTitle:     "Go Meetup",
		AttendeeName:   "Alice",
		RequestedAt:    time.Now().UTC(),
	}.JSON()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	j := job.New(job.CreateRequest{
		Type:        jobs.TypeRegistrationConfirmation,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	})
	j.Attempts = attempts
	return j
}

func TestProcessOne_DeliversAndMarksDone(t *testing.T) {
	j := confirmationJob(t, 0, 3)
	repo := newFakeJobsRepo(j)
	notifier := &fakeNotifier{}
	w := newTestWorker(repo, notifier)

	claimed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if !claimed {
		t.Fatal("expected a job to be claimed")
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(notifier.sent))
	}
	sent := notifier.sent[0]
	if sent.AttendeeName != "Alice" || sent.EventTitle != "Go Meetup" {
		t.Fatalf("unexpected notification: %+v", sent)
	}

	if len(repo.doneIDs) != 1 || repo.doneIDs[0] != j.ID {
		t.Fatalf("doneIDs = %v, want [%s]", repo.doneIDs, j.ID)
	}
	if repo.claimedBy[0] != "test-worker" {
		t.Fatalf("claimed by %q, want test-worker", repo.claimedBy[0])
	}
}

func TestProcessOne_NoJob(t *testing.T) {
	repo := newFakeJobsRepo()
	w := newTestWorker(repo, &fakeNotifier{})

	claimed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if claimed {
		t.Fatal("expected no job to be claimed")
	}
}

func TestProcessOne_TransientFailureReschedules(t *testing.T) {
	j := confirmationJob(t, 0, 3)
	repo := newFakeJobsRepo(j)
	notifier := &fakeNotifier{err: errors.New("smtp unavailable")}
	w := newTestWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	runAt, ok := repo.rescheduled[j.ID]
	if !ok {
		t.Fatalf("expected job %s to be rescheduled; failed=%v done=%v", j.ID, repo.failed, repo.doneIDs)
	}
	if !runAt.After(time.Now().UTC()) {
		t.Fatalf("reschedule runAt %v is not in the future", runAt)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("job unexpectedly marked failed: %v", repo.failed)
	}
}

func TestProcessOne_ExhaustedAttemptsMarkFailed(t *testing.T) {
	j := confirmationJob(t, 2, 3) // next failure is attempt 3 of 3
	repo := newFakeJobsRepo(j)
	notifier := &fakeNotifier{err: errors.New("smtp unavailable")}
	w := newTestWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("expected job marked failed; rescheduled=%v", repo.rescheduled)
	}
	if len(repo.rescheduled) != 0 {
		t.Fatalf("job unexpectedly rescheduled: %v", repo.rescheduled)
	}
}

func TestProcessOne_BadPayloadFailsWithoutRetry(t *testing.T) {
	j := job.New(job.CreateRequest{
		Type:        jobs.TypeRegistrationConfirmation,
		Payload:     json.RawMessage(`{"registrationId":""}`),
		MaxAttempts: 5,
	})
	repo := newFakeJobsRepo(j)
	w := newTestWorker(repo, &fakeNotifier{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatal("expected bad payload to mark the job failed on first attempt")
	}
	if len(repo.rescheduled) != 0 {
		t.Fatalf("bad payload must not be retried, got reschedule %v", repo.rescheduled)
	}
}

func TestProcessOne_UnknownTypeFails(t *testing.T) {
	j := job.New(job.CreateRequest{
		Type:        "email.digest",
		Payload:     json.RawMessage(`{}`),
		MaxAttempts: 5,
	})
	repo := newFakeJobsRepo(j)
	w := newTestWorker(repo, &fakeNotifier{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatal("expected unknown job type to be marked failed")
	}
}

func TestExponentialBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 2 * time.Second, 2*time.Second + 250*time.Millisecond},
		{1, 4 * time.Second, 4*time.Second + 250*time.Millisecond},
		{2, 8 * time.Second, 8*time.Second + 250*time.Millisecond},
		{20, 5 * time.Minute, 5*time.Minute + 250*time.Millisecond},
	}

	for _, tc := range cases {
		d := ExponentialBackoff(tc.attempt)
		if d < tc.min || d > tc.max {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", tc.attempt, d, tc.min, tc.max)
		}
	}
}
