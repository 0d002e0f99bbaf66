package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/job"
	"github.com/tmokoena/eventdash/internal/domain/registration"
	"github.com/tmokoena/eventdash/internal/jobs"
	"github.com/tmokoena/eventdash/internal/observability"
	"github.com/tmokoena/eventdash/internal/repo/postgres"
)

type RegistrationsStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, req registration.CreateRegistrationRequest) (registration.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
	Delete(ctx context.Context, eventID, registrationID string) error
}

type JobsCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

// WorkerWaker nudges the background worker after a job is enqueued.
// Best effort; the worker also polls.
type WorkerWaker interface {
	Wake(ctx context.Context, jobID string) error
}

type RegistrationsHandler struct {
	repo     RegistrationsStore
	jobsRepo JobsCreator
	waker    WorkerWaker
	prom     *observability.Prom
}

func NewRegistrationsHandler(repo RegistrationsStore, jobsRepo JobsCreator, waker WorkerWaker, prom *observability.Prom) *RegistrationsHandler {
	return &RegistrationsHandler{
		repo:     repo,
		jobsRepo: jobsRepo,
		waker:    waker,
		prom:     prom,
	}
}

func (h *RegistrationsHandler) admission(outcome string) {
	if h.prom != nil {
		h.prom.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

// Register runs the admission checks and the confirmation-job enqueue in
// one transaction, so a registration row never exists without its job.
func (h *RegistrationsHandler) Register(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !isUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var req registration.CreateRegistrationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// URL param is the source of truth
	req.EventID = eventID

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.repo.BeginTx(cctx)
	if err != nil {
		h.admission("error")
		RespondInternal(ctx, "Could not register attendee")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	reg, err := h.repo.CreateTx(cctx, tx, req)
	if err != nil {
		var capErr *registration.CapacityError
		var dupErr *registration.DuplicateError

		switch {
		case errors.Is(err, event.ErrNotFound):
			h.admission("event_not_found")
			RespondNotFound(ctx, "Event not found")
		case errors.As(err, &dupErr):
			h.admission("duplicate_attendee")
			RespondConflict(ctx, "duplicate_attendee", dupErr.Error())
		case errors.As(err, &capErr):
			h.admission("capacity_exceeded")
			RespondConflict(ctx, "capacity_exceeded", capErr.Error())
		default:
			h.admission("error")
			RespondInternal(ctx, "Could not register attendee")
		}
		return
	}

	payload := jobs.RegistrationConfirmationPayload{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		AttendeeName:   reg.AttendeeName,
		RequestedAt:    time.Now().UTC(),
	}

	raw, err := payload.JSON()
	if err != nil {
		h.admission("error")
		RespondInternal(ctx, "Could not register attendee")
		return
	}

	key := jobs.IdempotencyKey(reg.ID)

	enqueued, err := h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           jobs.TypeRegistrationConfirmation,
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
	})
	if err != nil && !postgres.IsUniqueViolation(err) {
		h.admission("error")
		RespondInternal(ctx, "Could not register attendee")
		return
	}

	if err := tx.Commit(cctx); err != nil {
		h.admission("error")
		RespondInternal(ctx, "Could not register attendee")
		return
	}

	h.admission("accepted")

	if h.waker != nil {
		if err := h.waker.Wake(ctx.Request.Context(), enqueued.ID); err != nil {
			slog.Default().Warn("worker wake failed", "job_id", enqueued.ID, "error", err)
		}
	}

	ctx.JSON(http.StatusCreated, reg)
}

func (h *RegistrationsHandler) ListForEvent(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !isUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.repo.ListByEvent(cctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":       eventID,
		"count":         len(regs),
		"registrations": regs,
	})
}

func (h *RegistrationsHandler) Unregister(ctx *gin.Context) {
	eventID := ctx.Param("id")
	regID := ctx.Param("registrationId")

	if !isUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}
	if !isUUID(regID) {
		RespondBadRequest(ctx, "registration id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, eventID, regID); err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not remove registration")
		return
	}

	ctx.Status(http.StatusNoContent)
}
