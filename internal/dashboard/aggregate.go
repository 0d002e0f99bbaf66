// Package dashboard computes the derived admin-dashboard aggregates. All
// functions are pure over the collections passed in; nothing here touches
// storage or caches results.
package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
)

type Metrics struct {
	TotalEvents      int             `json:"totalEvents"`
	UpcomingEvents   int             `json:"upcomingEvents"`
	TotalUsers       int             `json:"totalUsers"`
	EstimatedRevenue decimal.Decimal `json:"estimatedRevenue"`
}

type EventCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

type StatusCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// ComputeMetrics derives the headline numbers. TotalUsers counts distinct
// attendee names across all registrations (exact string match); revenue is
// price x registration count per event, zero registrations contributing zero.
func ComputeMetrics(events []event.Event, regs []registration.Registration) Metrics {
	m := Metrics{
		TotalEvents:      len(events),
		EstimatedRevenue: decimal.Zero,
	}

	for _, e := range events {
		if e.Status == event.StatusUpcoming {
			m.UpcomingEvents++
		}
		if e.RegistrationCount > 0 {
			m.EstimatedRevenue = m.EstimatedRevenue.Add(
				e.Price.Mul(decimal.NewFromInt(int64(e.RegistrationCount))),
			)
		}
	}

	seen := make(map[string]struct{}, len(regs))
	for _, r := range regs {
		seen[r.AttendeeName] = struct{}{}
	}
	m.TotalUsers = len(seen)

	return m
}

// TopEventsByRegistrations returns (title, count) pairs sorted descending by
// count, limited to n. n <= 0 means no limit; the dashboard handler passes
// its configured limit rather than hardcoding one here.
func TopEventsByRegistrations(events []event.Event, n int) []EventCount {
	out := make([]EventCount, 0, len(events))
	for _, e := range events {
		out = append(out, EventCount{Title: e.Title, Count: e.RegistrationCount})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// statusOrder fixes the grouping order so responses are deterministic.
var statusOrder = []event.Status{
	event.StatusUpcoming,
	event.StatusOngoing,
	event.StatusCompleted,
	event.StatusCancelled,
}

// StatusCounts groups events by status. Only statuses that actually occur
// are returned; labels are capitalized for display and each carries its
// chart color hint.
func StatusCounts(events []event.Event) []StatusCount {
	counts := make(map[event.Status]int, len(statusOrder))
	for _, e := range events {
		counts[e.Status]++
	}

	out := make([]StatusCount, 0, len(counts))
	for _, s := range statusOrder {
		if c := counts[s]; c > 0 {
			out = append(out, StatusCount{
				Label: s.Label(),
				Count: c,
				Color: s.Color(),
			})
		}
	}
	return out
}
