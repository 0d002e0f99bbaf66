package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/http/middlewares"
)

type EventsStore interface {
	Create(ctx context.Context, n event.Normalized, createdBy *string) (event.Event, error)
	List(ctx context.Context) ([]event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	Update(ctx context.Context, id string, n event.Normalized) (event.Event, error)
	SetStatus(ctx context.Context, id string, status event.Status) error
	Delete(ctx context.Context, id string) error
}

type EventsHandler struct {
	repo EventsStore
}

func NewEventsHandler(repo EventsStore) *EventsHandler {
	return &EventsHandler{repo: repo}
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// eventView decorates the entity with the presentation hints the dashboard
// consumes alongside the raw status.
type eventView struct {
	event.Event
	StatusLabel string `json:"statusLabel"`
	StatusColor string `json:"statusColor"`
}

func viewOf(e event.Event) eventView {
	return eventView{
		Event:       e,
		StatusLabel: e.Status.Label(),
		StatusColor: e.Status.Color(),
	}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	var draft event.Draft

	if !BindJSON(ctx, &draft) {
		return
	}

	n, fieldErrs := event.ValidateDraft(draft, time.Now())
	if len(fieldErrs) > 0 {
		RespondUnprocessable(ctx, "validation_failed", "Event draft failed validation", gin.H{"fields": fieldErrs})
		return
	}

	var createdBy *string
	if id, ok := middlewares.UserIDFromContext(ctx); ok && id != "" {
		createdBy = &id
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, n, createdBy)
	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, viewOf(created))
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	items := make([]eventView, 0, len(events))
	for _, e := range events {
		items = append(items, viewOf(e))
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, viewOf(e))
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var draft event.Draft

	if !BindJSON(ctx, &draft) {
		return
	}

	n, fieldErrs := event.ValidateDraft(draft, time.Now())
	if len(fieldErrs) > 0 {
		RespondUnprocessable(ctx, "validation_failed", "Event draft failed validation", gin.H{"fields": fieldErrs})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, n)
	if err != nil {
		var capErr *event.CapacityBelowRegistrationsError

		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.As(err, &capErr):
			RespondConflict(ctx, "capacity_below_registrations", capErr.Error())
		default:
			RespondInternal(ctx, "Could not update event")
		}
		return
	}

	ctx.JSON(http.StatusOK, viewOf(updated))
}

func (h *EventsHandler) SetEventStatus(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var req event.SetStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.repo.SetStatus(cctx, id, event.Status(req.Status)); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event status")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// DeleteEvent removes the event and every registration under it.
func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	ctx.Status(http.StatusNoContent)
}
