package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// UserRepository — CRUD для таблицы users.
type UserRepository interface {
	// GetByID возвращает пользователя по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByKey возвращает пользователя по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.User, error)
	// GetByEmail возвращает пользователя по email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Create создаёт пользователя.
	Create(ctx context.Context, u *model.User) error
	// Update обновляет изменяемые атрибуты пользователя.
	Update(ctx context.Context, u *model.User) error
}

type userRepo struct {
	db DBTX
}

const userColumns = `id, site_id, email, fullname, group_id, enabled, site_admin, group_admin, site_read`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.SiteID, &u.Email, &u.Fullname, &u.GroupID,
		&u.Enabled, &u.SiteAdmin, &u.GroupAdmin, &u.SiteRead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.User, error) {
	if key.Kind == model.KeyUUID {
		return r.GetByID(ctx, key.UUID)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE site_id = $1`
	return scanUser(r.db.QueryRow(ctx, query, key.SiteID))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, site_id, email, fullname, group_id, enabled, site_admin, group_admin, site_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.SiteID, u.Email, u.Fullname, u.GroupID,
		u.Enabled, u.SiteAdmin, u.GroupAdmin, u.SiteRead,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким email уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET fullname = $2, group_id = $3, enabled = $4,
			site_admin = $5, group_admin = $6, site_read = $7
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		u.ID, u.Fullname, u.GroupID, u.Enabled, u.SiteAdmin, u.GroupAdmin, u.SiteRead,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
