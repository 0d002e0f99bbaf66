// Package worker drains the jobs table and delivers registration
// confirmations. Claims go through FOR UPDATE SKIP LOCKED on the repo side,
// so any number of worker processes can run against the same database.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tmokoena/eventdash/internal/domain/job"
	"github.com/tmokoena/eventdash/internal/notifications"
	"github.com/tmokoena/eventdash/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Waker lets the worker block on a redis list instead of burning the full
// poll interval between empty claims. A nil Waker falls back to polling.
type Waker interface {
	WaitForWake(ctx context.Context, timeout time.Duration) (string, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	StaleLockTTL  time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	waker    Waker
	prom     *observability.Prom
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, waker Waker, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.StaleLockTTL <= 0 {
		cfg.StaleLockTTL = 5 * time.Minute
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		waker:    waker,
		prom:     prom,
		log:      log,
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

// Run claims and processes jobs until ctx is cancelled. Claimed jobs run on
// a bounded set of goroutines; on shutdown, in-flight jobs get ShutdownGrace
// to finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	stale := time.NewTicker(time.Minute)
	defer stale.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutting down", "worker_id", w.cfg.WorkerID)
			return w.drain(&wg)

		case <-stale.C:
			w.requeueStale()

		default:
		}

		claimCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
		cancel()

		if err != nil {
			if !errors.Is(err, job.ErrJobNotFound) {
				w.log.Error("claim failed", "error", err)
			}
			w.idle(ctx)
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// claimed but shutting down; run it inline so the claim is
			// not abandoned until the stale-lock requeue fires
			w.process(context.Background(), j)
			return w.drain(&wg)
		}

		wg.Add(1)
		go func(j job.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			w.process(ctx, j)
		}(j)
	}
}

// idle waits for the next claim attempt: a redis wake if available,
// otherwise the poll interval.
func (w *Worker) idle(ctx context.Context) {
	if w.waker != nil {
		if _, err := w.waker.WaitForWake(ctx, w.cfg.PollInterval); err != nil && ctx.Err() == nil {
			w.log.Warn("wake wait failed, falling back to poll", "error", err)
		} else {
			return
		}
	}

	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

func (w *Worker) drain(wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return errors.New("shutdown grace elapsed with jobs still in flight")
	}
}

func (w *Worker) requeueStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.StaleLockTTL)
	if err != nil {
		w.log.Error("stale requeue failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Warn("requeued stale jobs", "count", n)
	}
}
