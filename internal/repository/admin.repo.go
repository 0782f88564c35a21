package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository interface {
	// EnsureSuperAdmin seeds the bootstrap super-admin; safe to call on
	// every startup.
	EnsureSuperAdmin(ctx context.Context) error
	IsAdmin(ctx context.Context, userID string) (bool, error)
	IsSuperAdmin(ctx context.Context, userID string) (bool, error)
	// AddAdmin returns (nil, nil) when the user is already registered.
	AddAdmin(ctx context.Context, userID, name, username, addedBy string) (*domain.AdminRecord, error)
	// RemoveAdmin fails with ErrProtectedRecord for the bootstrap
	// super-admin, regardless of caller.
	RemoveAdmin(ctx context.Context, userID, removedBy string) error
	UpdateAdmin(ctx context.Context, userID, name, username string) error
	ListAdmins(ctx context.Context) ([]*domain.AdminRecord, error)
}

type adminRepo struct {
	db          *pgxpool.Pool
	bootstrapID string
}

func NewAdminRepo(db *pgxpool.Pool, bootstrapID string) AdminRepository {
	return &adminRepo{db: db, bootstrapID: bootstrapID}
}

func (r *adminRepo) EnsureSuperAdmin(ctx context.Context) error {
	if r.bootstrapID == "" {
		return fmt.Errorf("%w: bootstrap super-admin id not configured", xerrors.ErrPersistence)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO admins (user_id, name, username, is_super_admin)
		VALUES ($1, 'Super Admin', 'super_admin', TRUE)
		ON CONFLICT (user_id) DO UPDATE SET is_super_admin = TRUE
	`, r.bootstrapID)
	if err != nil {
		return fmt.Errorf("%w: ensure super admin: %v", xerrors.ErrPersistence, err)
	}
	return nil
}

func (r *adminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: is admin: %v", xerrors.ErrPersistence, err)
	}
	return exists, nil
}

func (r *adminRepo) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	var isSuper bool
	err := r.db.QueryRow(ctx,
		`SELECT is_super_admin FROM admins WHERE user_id = $1`, userID,
	).Scan(&isSuper)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: is super admin: %v", xerrors.ErrPersistence, err)
	}
	return isSuper, nil
}

func (r *adminRepo) AddAdmin(ctx context.Context, userID, name, username, addedBy string) (*domain.AdminRecord, error) {
	rec := &domain.AdminRecord{
		UserID:   userID,
		Name:     name,
		Username: username,
		AddedBy:  addedBy,
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO admins (user_id, name, username, added_by)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, created_at
	`, userID, name, username, addedBy).Scan(&rec.ID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // already registered, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("%w: add admin %s: %v", xerrors.ErrPersistence, userID, err)
	}
	return rec, nil
}

func (r *adminRepo) RemoveAdmin(ctx context.Context, userID, removedBy string) error {
	if userID == r.bootstrapID {
		return xerrors.ErrProtectedRecord
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: remove admin %s: %v", xerrors.ErrPersistence, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *adminRepo) UpdateAdmin(ctx context.Context, userID, name, username string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE admins SET name = $2, username = $3 WHERE user_id = $1`,
		userID, name, username)
	if err != nil {
		return fmt.Errorf("%w: update admin %s: %v", xerrors.ErrPersistence, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *adminRepo) ListAdmins(ctx context.Context) ([]*domain.AdminRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, COALESCE(name, ''), COALESCE(username, ''), is_super_admin, COALESCE(added_by, ''), created_at
		FROM admins ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list admins: %v", xerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var admins []*domain.AdminRecord
	for rows.Next() {
		rec := &domain.AdminRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Username,
			&rec.IsSuperAdmin, &rec.AddedBy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan admin: %v", xerrors.ErrPersistence, err)
		}
		admins = append(admins, rec)
	}
	return admins, rows.Err()
}
