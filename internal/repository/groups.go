package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// GroupRepository — CRUD для таблицы groups.
type GroupRepository interface {
	// GetByID возвращает группу по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	// GetByKey возвращает группу по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.Group, error)
	// Create создаёт группу.
	Create(ctx context.Context, g *model.Group) error
	// UpdateName переименовывает группу.
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
}

type groupRepo struct {
	db DBTX
}

const groupColumns = `id, site_id, name`

func scanGroup(row pgx.Row) (*model.Group, error) {
	g := &model.Group{}
	if err := row.Scan(&g.ID, &g.SiteID, &g.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения группы: %w", err)
	}
	return g, nil
}

func (r *groupRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	return scanGroup(r.db.QueryRow(ctx, query, id))
}

func (r *groupRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.Group, error) {
	if key.Kind == model.KeyUUID {
		return r.GetByID(ctx, key.UUID)
	}
	query := `SELECT ` + groupColumns + ` FROM groups WHERE site_id = $1`
	return scanGroup(r.db.QueryRow(ctx, query, key.SiteID))
}

func (r *groupRepo) Create(ctx context.Context, g *model.Group) error {
	query := `INSERT INTO groups (id, site_id, name) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, g.ID, g.SiteID, g.Name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: группа с таким идентификатором уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания группы: %w", err)
	}
	return nil
}

func (r *groupRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE groups SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("ошибка переименования группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
