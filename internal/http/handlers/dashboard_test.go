package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
	"github.com/tmokoena/eventdash/internal/http/handlers"
)

type fakeEventsReader struct {
	events []event.Event
}

func (f *fakeEventsReader) List(ctx context.Context) ([]event.Event, error) {
	return f.events, nil
}

type fakeRegsReader struct {
	regs []registration.Registration
}

func (f *fakeRegsReader) ListAll(ctx context.Context) ([]registration.Registration, error) {
	return f.regs, nil
}

func TestDashboard_Fetch(t *testing.T) {
	evtID := uuid.NewString()

	events := []event.Event{
		{
			ID:                evtID,
			Title:             "Go Meetup",
			Capacity:          10,
			Price:             decimal.RequireFromString("10.00"),
			Status:            event.StatusUpcoming,
			RegistrationCount: 3,
		},
		{
			ID:       uuid.NewString(),
			Title:    "Retro",
			Capacity: 5,
			Price:    decimal.Zero,
			Status:   event.StatusOngoing,
		},
	}
	regs := []registration.Registration{
		{ID: uuid.NewString(), EventID: evtID, AttendeeName: "Alice"},
		{ID: uuid.NewString(), EventID: evtID, AttendeeName: "Bob"},
		{ID: uuid.NewString(), EventID: evtID, AttendeeName: "Carol"},
	}

	h := handlers.NewDashboardHandler(&fakeEventsReader{events: events}, &fakeRegsReader{regs: regs}, 7)

	r := gin.New()
	r.GET("/dashboard", h.Fetch)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("ETag") == "" {
		t.Fatal("expected an ETag header on the dashboard response")
	}

	var resp struct {
		Metrics struct {
			TotalEvents      int    `json:"totalEvents"`
			UpcomingEvents   int    `json:"upcomingEvents"`
			TotalUsers       int    `json:"totalUsers"`
			EstimatedRevenue string `json:"estimatedRevenue"`
		} `json:"metrics"`
		TopEvents []struct {
			Title string `json:"title"`
			Count int    `json:"count"`
		} `json:"topEvents"`
		StatusCounts []struct {
			Label string `json:"label"`
			Count int    `json:"count"`
			Color string `json:"color"`
		} `json:"statusCounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Metrics.TotalEvents != 2 || resp.Metrics.UpcomingEvents != 1 {
		t.Fatalf("metrics = %+v", resp.Metrics)
	}
	if resp.Metrics.TotalUsers != 3 {
		t.Fatalf("totalUsers = %d, want 3", resp.Metrics.TotalUsers)
	}
	if resp.Metrics.EstimatedRevenue != "30" {
		t.Fatalf("estimatedRevenue = %q, want 30", resp.Metrics.EstimatedRevenue)
	}

	if len(resp.TopEvents) != 2 || resp.TopEvents[0].Title != "Go Meetup" || resp.TopEvents[0].Count != 3 {
		t.Fatalf("topEvents = %+v", resp.TopEvents)
	}

	if len(resp.StatusCounts) != 2 {
		t.Fatalf("statusCounts = %+v", resp.StatusCounts)
	}
	if resp.StatusCounts[0].Label != "Upcoming" || resp.StatusCounts[0].Color != "#3B82F6" {
		t.Fatalf("first status group = %+v", resp.StatusCounts[0])
	}

	// Conditional revisit with the returned ETag short-circuits to 304.
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req)

	if rec2.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", rec2.Code)
	}
}
