package event

import "strings"

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Label is the display form used by the dashboard ("upcoming" -> "Upcoming").
func (s Status) Label() string {
	v := string(s)
	if v == "" {
		return ""
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// Color returns the chart color hint associated with each status.
func (s Status) Color() string {
	switch s {
	case StatusUpcoming:
		return "#3B82F6"
	case StatusOngoing:
		return "#F59E0B"
	case StatusCompleted:
		return "#10B981"
	case StatusCancelled:
		return "#EF4444"
	default:
		return "#6B7280"
	}
}
