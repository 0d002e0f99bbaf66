package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/observability"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const eventColumns = `
	e.id, e.title, e.description, e.date, e.location,
	e.capacity, e.price, e.status, e.created_by,
	e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id) AS registration_count`

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var status string

	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location,
		&e.Capacity, &e.Price, &status, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt,
		&e.RegistrationCount,
	)
	if err != nil {
		return event.Event{}, err
	}

	e.Status = event.Status(status)
	return e, nil
}

func (r *EventsRepo) Create(ctx context.Context, n event.Normalized, createdBy *string) (event.Event, error) {
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

	err := r.observe("events.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, description, date, location, capacity, price, status, created_by, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			e.ID, e.Title, e.Description, e.Date, e.Location, e.Capacity, e.Price, string(e.Status), e.CreatedBy, e.CreatedAt, e.UpdatedAt)
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

// List returns every event, newest first, each carrying its registration count.
func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	var rows pgx.Rows
	var err error

	err = r.observe("events.list", func() error {
		rows, err = r.pool.Query(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			ORDER BY e.created_at DESC, e.id DESC
		`)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Event, 0)

	for rows.Next() {
		e, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	var err error

	err = r.observe("events.get_by_id", func() error {
		e, err = scanEvent(r.pool.QueryRow(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			WHERE e.id = $1
		`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// Update replaces the mutable fields. The event row is locked for the
// duration so the capacity check cannot race a concurrent registration.
func (r *EventsRepo) Update(ctx context.Context, id string, n event.Normalized) (updated event.Event, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	var regCount int

	err = r.observe("events.update.capacity_lock", func() error {
		return tx.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id)
			FROM events e
			WHERE e.id = $1
			FOR UPDATE
		`, id).Scan(&regCount)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
		return
	}

	// lowering capacity below the seats already taken would silently
	// overbook the event
	if n.Capacity < regCount {
		err = &event.CapacityBelowRegistrationsError{
			Capacity:          n.Capacity,
			RegistrationCount: regCount,
		}
		return
	}

	err = r.observe("events.update", func() error {
		var e event.Event
		var status string

		scanErr := tx.QueryRow(ctx, `
			UPDATE events
			SET title = $2,
			    description = $3,
			    date = $4,
			    location = $5,
			    capacity = $6,
			    price = $7,
			    status = $8,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, title, description, date, location, capacity, price, status, created_by, created_at, updated_at
		`, id, n.Title, n.Description, n.Date, n.Location, n.Capacity, n.Price, string(n.Status)).Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.Location,
			&e.Capacity, &e.Price, &status, &e.CreatedBy,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if scanErr != nil {
			return scanErr
		}

		e.Status = event.Status(status)
		e.RegistrationCount = regCount
		updated = e
		return nil
	})

	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *EventsRepo) SetStatus(ctx context.Context, id string, status event.Status) error {
	return r.observe("events.set_status", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE events
			SET status = $2, updated_at = NOW()
			WHERE id = $1
		`, id, string(status))

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return event.ErrNotFound
		}

		return nil
	})
}

// Delete removes the event together with its registrations in a single
// transaction, registrations first.
func (r *EventsRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = r.observe("events.delete.registrations", func() error {
		_, execErr := tx.Exec(ctx, `DELETE FROM event_registrations WHERE event_id = $1`, id)
		return execErr
	})

	if err != nil {
		return
	}

	var deleted bool

	err = r.observe("events.delete", func() error {
		tag, execErr := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})

	if err != nil {
		return
	}

	if !deleted {
		err = event.ErrNotFound
		return
	}

	err = tx.Commit(ctx)
	return
}
