package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
)

func price(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestComputeMetrics_EmptyDataSet(t *testing.T) {
	m := ComputeMetrics(nil, nil)

	if m.TotalEvents != 0 || m.UpcomingEvents != 0 || m.TotalUsers != 0 {
		t.Errorf("expected all-zero metrics, got %+v", m)
	}
	if !m.EstimatedRevenue.IsZero() {
		t.Errorf("revenue = %s, want 0", m.EstimatedRevenue)
	}
	if got := TopEventsByRegistrations(nil, 7); len(got) != 0 {
		t.Errorf("top events = %v, want empty", got)
	}
	if got := StatusCounts(nil); len(got) != 0 {
		t.Errorf("status counts = %v, want empty", got)
	}
}

func TestComputeMetrics_Revenue(t *testing.T) {
	events := []event.Event{
		{ID: "a", Title: "Priced", Price: price(t, "10.00"), RegistrationCount: 3, Status: event.StatusUpcoming},
		{ID: "b", Title: "Free", Price: price(t, "0"), RegistrationCount: 5, Status: event.StatusOngoing},
		{ID: "c", Title: "Empty", Price: price(t, "99.99"), RegistrationCount: 0, Status: event.StatusUpcoming},
	}

	m := ComputeMetrics(events, nil)

	if m.TotalEvents != 3 {
		t.Errorf("totalEvents = %d, want 3", m.TotalEvents)
	}
	if m.UpcomingEvents != 2 {
		t.Errorf("upcomingEvents = %d, want 2", m.UpcomingEvents)
	}
	// 10.00 * 3 + 0 * 5 + 99.99 * 0 = 30.00
	if !m.EstimatedRevenue.Equal(price(t, "30.00")) {
		t.Errorf("revenue = %s, want 30.00", m.EstimatedRevenue)
	}
}

func TestComputeMetrics_DistinctAttendees(t *testing.T) {
	regs := []registration.Registration{
		{EventID: "a", AttendeeName: "Alice"},
		{EventID: "b", AttendeeName: "Alice"}, // same person, second event
		{EventID: "a", AttendeeName: "Bob"},
		{EventID: "a", AttendeeName: "alice"}, // case-sensitive: distinct
	}

	m := ComputeMetrics(nil, regs)

	if m.TotalUsers != 3 {
		t.Errorf("totalUsers = %d, want 3 (Alice, Bob, alice)", m.TotalUsers)
	}
}

func TestTopEventsByRegistrations(t *testing.T) {
	events := []event.Event{
		{Title: "small", RegistrationCount: 1},
		{Title: "big", RegistrationCount: 10},
		{Title: "mid", RegistrationCount: 5},
		{Title: "tiny", RegistrationCount: 0},
	}

	got := TopEventsByRegistrations(events, 3)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Title != "big" || got[1].Title != "mid" || got[2].Title != "small" {
		t.Errorf("wrong order: %v", got)
	}

	// n <= 0 means unlimited
	if all := TopEventsByRegistrations(events, 0); len(all) != 4 {
		t.Errorf("unlimited len = %d, want 4", len(all))
	}
}

func TestStatusCounts(t *testing.T) {
	events := []event.Event{
		{Status: event.StatusUpcoming},
		{Status: event.StatusUpcoming},
		{Status: event.StatusOngoing},
	}

	got := StatusCounts(events)

	if len(got) != 2 {
		t.Fatalf("groups = %d, want 2 (%v)", len(got), got)
	}
	if got[0].Label != "Upcoming" || got[0].Count != 2 {
		t.Errorf("first group = %+v, want Upcoming/2", got[0])
	}
	if got[1].Label != "Ongoing" || got[1].Count != 1 {
		t.Errorf("second group = %+v, want Ongoing/1", got[1])
	}
	if got[0].Color != "#3B82F6" || got[1].Color != "#F59E0B" {
		t.Errorf("unexpected colors: %+v", got)
	}

	total := 0
	for _, g := range got {
		total += g.Count
	}
	if total != len(events) {
		t.Errorf("group totals = %d, want %d", total, len(events))
	}
}
