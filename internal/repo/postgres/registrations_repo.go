package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/registration"
	"github.com/tmokoena/eventdash/internal/observability"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{pool: pool, prom: prom}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *RegistrationsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return repo.pool.BeginTx(ctx, pgx.TxOptions{})
}

// CreateTx runs the admission checks and the insert inside the caller's
// transaction. The event row is locked first, which serializes concurrent
// registrations per event: two requests for the last seat cannot both pass
// the capacity check.
func (repo *RegistrationsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req registration.CreateRegistrationRequest) (reg registration.Registration, err error) {
	// 1) lock event row + read capacity and current count
	var title string
	var capacity int
	var current int

	err = repo.observe("registrations.create_tx.capacity_lock", func() error {
		return tx.QueryRow(ctx, `
			SELECT e.title, e.capacity,
				(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id) AS current
			FROM events e
			WHERE e.id = $1
			FOR UPDATE
		`, req.EventID).Scan(&title, &capacity, &current)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
		}
		return
	}

	// 2) duplicate attendee gate (exact, case-sensitive). Runs before the
	// capacity gate: a name already on the list is a duplicate even when
	// the event is full.
	var exists bool

	err = repo.observe("registrations.create_tx.duplicate_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM event_registrations
			WHERE event_id = $1 AND attendee_name = $2
		)`, req.EventID, req.AttendeeName).Scan(&exists)
	})

	if err != nil {
		return
	}

	if exists {
		err = &registration.DuplicateError{AttendeeName: req.AttendeeName}
		return
	}

	// 3) capacity gate
	if current >= capacity {
		err = &registration.CapacityError{EventTitle: title, Capacity: capacity, Count: current}
		return
	}

	// 4) insert
	reg = registration.NewFromCreateRequest(req)

	err = repo.observe("registrations.create_tx.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO event_registrations (id, event_id, attendee_name, registration_date, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, reg.ID, reg.EventID, reg.AttendeeName, reg.RegistrationDate, reg.CreatedAt)
		return e
	})

	if err != nil {
		// the unique index is the backstop when the store is reached
		// outside this transaction path
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "event_registrations_event_attendee_uniq" {
			err = &registration.DuplicateError{AttendeeName: req.AttendeeName}
			return
		}
		return
	}

	return
}

// Create is the single-call form: one transaction around CreateTx.
func (repo *RegistrationsRepo) Create(ctx context.Context, req registration.CreateRegistrationRequest) (reg registration.Registration, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	reg, err = repo.CreateTx(ctx, tx, req)

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}

func (repo *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) (regs []registration.Registration, err error) {
	var rows pgx.Rows

	err = repo.observe("registrations.list_by_event", func() error {
		rows, err = repo.pool.Query(ctx, `
			SELECT id, event_id, attendee_name, registration_date, created_at
			FROM event_registrations
			WHERE event_id = $1
			ORDER BY registration_date ASC, id ASC
		`, eventID)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	regs = make([]registration.Registration, 0)

	for rows.Next() {
		var r registration.Registration

		e := rows.Scan(&r.ID, &r.EventID, &r.AttendeeName, &r.RegistrationDate, &r.CreatedAt)

		if e != nil {
			err = e
			return
		}
		regs = append(regs, r)
	}

	if e := rows.Err(); e != nil {
		err = e
		return
	}

	// distinguish "no registrations" from "no such event"
	if len(regs) == 0 {
		var dummy string

		err = repo.observe("registrations.list_by_event.check_event_exists", func() error {
			return repo.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&dummy)
		})

		if errors.Is(err, pgx.ErrNoRows) {
			err = event.ErrNotFound
			return
		}

		if err != nil {
			return
		}
	}

	return
}

// ListAll feeds the dashboard's distinct-attendee computation.
func (repo *RegistrationsRepo) ListAll(ctx context.Context) (regs []registration.Registration, err error) {
	var rows pgx.Rows

	err = repo.observe("registrations.list_all", func() error {
		rows, err = repo.pool.Query(ctx, `
			SELECT id, event_id, attendee_name, registration_date, created_at
			FROM event_registrations
		`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	regs = make([]registration.Registration, 0)

	for rows.Next() {
		var r registration.Registration

		if e := rows.Scan(&r.ID, &r.EventID, &r.AttendeeName, &r.RegistrationDate, &r.CreatedAt); e != nil {
			err = e
			return
		}
		regs = append(regs, r)
	}

	err = rows.Err()
	return
}

func (repo *RegistrationsRepo) CountForEvent(ctx context.Context, eventID string) (int, error) {
	var total int
	err := repo.observe("registrations.count_for_event", func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, eventID).Scan(&total)
	})
	return total, err
}

// Delete removes a single registration; no cascading side effects.
func (repo *RegistrationsRepo) Delete(ctx context.Context, eventID, registrationID string) (err error) {
	var tag pgconn.CommandTag

	err = repo.observe("registrations.delete", func() error {
		var execErr error
		tag, execErr = repo.pool.Exec(ctx,
			`DELETE FROM event_registrations WHERE id = $1 AND event_id = $2`,
			registrationID, eventID)
		return execErr
	})

	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = registration.ErrNotFound
		return
	}

	return
}
