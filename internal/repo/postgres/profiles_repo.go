package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmokoena/eventdash/internal/domain/user"
	"github.com/tmokoena/eventdash/internal/observability"
)

var ErrEmailAlreadyUsed = errors.New("email already in use")

type ProfilesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProfilesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProfilesRepo {
	return &ProfilesRepo{pool: pool, prom: prom}
}

func (r *ProfilesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ProfilesRepo) Create(ctx context.Context, email, passwordHash, fullName, role string) (user.Profile, error) {
	now := time.Now().UTC()

	p := user.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("profiles.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO profiles (id, email, full_name, role, password_hash, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			p.ID, p.Email, p.FullName, p.Role, p.PasswordHash, p.CreatedAt, p.UpdatedAt)
		return execErr
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.Profile{}, ErrEmailAlreadyUsed
		}
		return user.Profile{}, err
	}

	return p, nil
}

func (r *ProfilesRepo) GetByEmail(ctx context.Context, email string) (user.Profile, error) {
	var p user.Profile

	err := r.observe("profiles.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, full_name, role, password_hash, created_at, updated_at
			 FROM profiles
			 WHERE email = $1`, email,
		).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Profile{}, user.ErrNotFound
		}
		return user.Profile{}, err
	}

	return p, nil
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (user.Profile, error) {
	var p user.Profile

	err := r.observe("profiles.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, full_name, role, password_hash, created_at, updated_at
			 FROM profiles
			 WHERE id = $1`, id,
		).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Profile{}, user.ErrNotFound
		}
		return user.Profile{}, err
	}

	return p, nil
}

func (r *ProfilesRepo) List(ctx context.Context) (profiles []user.Profile, err error) {
	var rows pgx.Rows

	err = r.observe("profiles.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT id, email, full_name, role, password_hash, created_at, updated_at
			 FROM profiles
			 ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	profiles = make([]user.Profile, 0)

	for rows.Next() {
		var p user.Profile

		if e := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); e != nil {
			err = e
			return
		}
		profiles = append(profiles, p)
	}

	err = rows.Err()
	return
}
