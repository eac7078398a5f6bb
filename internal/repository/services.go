package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// ServiceRepository — доступ к таблицам services, service_users и
// service_executions.
type ServiceRepository interface {
	// GetByKey возвращает сервис (с допущенными пользователями)
	// по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.Service, error)
	// Create создаёт сервис.
	Create(ctx context.Context, s *model.Service) error
	// SetUsers заменяет список допущенных пользователей сервиса.
	SetUsers(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) error
	// ExecutionExists проверяет, исполнялся ли сервис над набором.
	ExecutionExists(ctx context.Context, serviceID, metadatasetID uuid.UUID) (bool, error)
	// RecordExecution фиксирует исполнение сервиса над набором.
	// Повторная фиксация той же пары возвращает ErrConflict.
	RecordExecution(ctx context.Context, e *model.ServiceExecution) error
}

type serviceRepo struct {
	db DBTX
}

func (r *serviceRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.Service, error) {
	var row pgx.Row
	if key.Kind == model.KeyUUID {
		row = r.db.QueryRow(ctx, `SELECT id, site_id, name FROM services WHERE id = $1`, key.UUID)
	} else {
		row = r.db.QueryRow(ctx, `SELECT id, site_id, name FROM services WHERE site_id = $1`, key.SiteID)
	}

	s := &model.Service{}
	if err := row.Scan(&s.ID, &s.SiteID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения сервиса: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM service_users WHERE service_id = $1`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения пользователей сервиса: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя сервиса: %w", err)
		}
		s.UserIDs = append(s.UserIDs, id)
	}
	return s, rows.Err()
}

func (r *serviceRepo) Create(ctx context.Context, s *model.Service) error {
	query := `INSERT INTO services (id, site_id, name) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, s.ID, s.SiteID, s.Name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сервис с таким именем уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания сервиса: %w", err)
	}
	if len(s.UserIDs) > 0 {
		return r.SetUsers(ctx, s.ID, s.UserIDs)
	}
	return nil
}

func (r *serviceRepo) SetUsers(ctx context.Context, serviceID uuid.UUID, userIDs []uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM service_users WHERE service_id = $1`, serviceID); err != nil {
		return fmt.Errorf("ошибка очистки пользователей сервиса: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO service_users (service_id, user_id) VALUES ($1, $2)`,
			serviceID, userID); err != nil {
			return fmt.Errorf("ошибка добавления пользователя сервиса: %w", err)
		}
	}
	return nil
}

func (r *serviceRepo) ExecutionExists(ctx context.Context, serviceID, metadatasetID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM service_executions
			WHERE service_id = $1 AND metadataset_id = $2
		)`
	if err := r.db.QueryRow(ctx, query, serviceID, metadatasetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("проверка исполнения сервиса: %w", err)
	}
	return exists, nil
}

func (r *serviceRepo) RecordExecution(ctx context.Context, e *model.ServiceExecution) error {
	query := `
		INSERT INTO service_executions (id, service_id, metadataset_id, user_id, datetime)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, e.ID, e.ServiceID, e.MetadatasetID, e.UserID, e.Datetime); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сервис уже исполнялся над этим набором", ErrConflict)
		}
		return fmt.Errorf("ошибка фиксации исполнения сервиса: %w", err)
	}
	return nil
}
