package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/dashboard"
	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
)

type EventsReader interface {
	List(ctx context.Context) ([]event.Event, error)
}

type RegistrationsReader interface {
	ListAll(ctx context.Context) ([]registration.Registration, error)
}

// DashboardHandler recomputes the aggregates on every request; nothing here
// is cached or persisted.
type DashboardHandler struct {
	events    EventsReader
	regs      RegistrationsReader
	topEvents int
}

func NewDashboardHandler(events EventsReader, regs RegistrationsReader, topEvents int) *DashboardHandler {
	if topEvents <= 0 {
		topEvents = 7
	}
	return &DashboardHandler{
		events:    events,
		regs:      regs,
		topEvents: topEvents,
	}
}

func (h *DashboardHandler) Fetch(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	events, err := h.events.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	regs, err := h.regs.ListAll(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"metrics":      dashboard.ComputeMetrics(events, regs),
		"topEvents":    dashboard.TopEventsByRegistrations(events, h.topEvents),
		"statusCounts": dashboard.StatusCounts(events),
	})
}
