package user

import (
	"errors"
	"time"
)

// Roles for dashboard staff. Organisers can view events and register
// attendees; only admins may create/edit/delete events or manage users.
const (
	RoleAdmin     = "admin"
	RoleOrganiser = "organiser"
)

var ErrNotFound = errors.New("user not found")

type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleOrganiser
}
