// Package memory is the process-local repository used by tests and local
// dev. It mirrors the postgres repos' semantics; where postgres serializes
// admission with a row lock, this store serializes with its mutex.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
)

type Store struct {
	mu     sync.RWMutex
	events map[string]event.Event
	regs   map[string]registration.Registration
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]event.Event),
		regs:   make(map[string]registration.Registration),
	}
}

func (s *Store) countLocked(eventID string) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

func (s *Store) withCount(e event.Event) event.Event {
	e.RegistrationCount = s.countLocked(e.ID)
	return e
}

func (s *Store) CreateEvent(ctx context.Context, n event.Normalized, createdBy *string) (event.Event, error) {
	now := time.Now().UTC()

	e := event.Event{
		ID:          uuid.NewString(),
		Title:       n.Title,
		Description: n.Description,
		Date:        n.Date,
		Location:    n.Location,
		Capacity:    n.Capacity,
		Price:       n.Price,
		Status:      n.Status,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.events[e.ID] = e
	s.mu.Unlock()

	return e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]event.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, s.withCount(e))
	}
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return s.withCount(e), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, n event.Normalized) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	regCount := s.countLocked(id)

	if n.Capacity < regCount {
		return event.Event{}, &event.CapacityBelowRegistrationsError{
			Capacity:          n.Capacity,
			RegistrationCount: regCount,
		}
	}

	e.Title = n.Title
	e.Description = n.Description
	e.Date = n.Date
	e.Location = n.Location
	e.Capacity = n.Capacity
	e.Price = n.Price
	e.Status = n.Status
	e.UpdatedAt = time.Now().UTC()

	s.events[id] = e

	e.RegistrationCount = regCount
	return e, nil
}

func (s *Store) SetEventStatus(ctx context.Context, id string, status event.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return event.ErrNotFound
	}

	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	s.events[id] = e
	return nil
}

// DeleteEvent removes the event and all of its registrations, matching the
// cascade the postgres repo runs in a transaction.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return event.ErrNotFound
	}

	for regID, r := range s.regs {
		if r.EventID == id {
			delete(s.regs, regID)
		}
	}
	delete(s.events, id)
	return nil
}

// Register applies the admission checks under the store lock, so concurrent
// registrations for the last seat cannot both pass.
func (s *Store) Register(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[req.EventID]
	if !ok {
		return registration.Registration{}, event.ErrNotFound
	}

	// Duplicate names are reported as duplicates even when the event is
	// already full, so the check runs before the capacity gate.
	for _, r := range s.regs {
		if r.EventID == req.EventID && r.AttendeeName == req.AttendeeName {
			return registration.Registration{}, &registration.DuplicateError{AttendeeName: req.AttendeeName}
		}
	}

	current := s.countLocked(req.EventID)

	if current >= e.Capacity {
		return registration.Registration{}, &registration.CapacityError{
			EventTitle: e.Title,
			Capacity:   e.Capacity,
			Count:      current,
		}
	}

	reg := registration.NewFromCreateRequest(req)
	s.regs[reg.ID] = reg
	return reg, nil
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]registration.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, event.ErrNotFound
	}

	out := make([]registration.Registration, 0)
	for _, r := range s.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListAllRegistrations(ctx context.Context) ([]registration.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]registration.Registration, 0, len(s.regs))
	for _, r := range s.regs {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) DeleteRegistration(ctx context.Context, eventID, registrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.regs[registrationID]
	if !ok || r.EventID != eventID {
		return registration.ErrNotFound
	}

	delete(s.regs, registrationID)
	return nil
}
