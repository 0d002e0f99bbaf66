package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/domain/user"
	"github.com/tmokoena/eventdash/internal/security"
)

// EnsureAdminUser seeds the configured admin profile on startup so a fresh
// deployment has at least one account able to manage events.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM profiles WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.Profile{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		FullName:     cfg.AdminName,
		Role:         user.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO profiles (id, email, full_name, role, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
