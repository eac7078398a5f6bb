package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// SubmissionRepository — доступ к таблице submissions.
// Сабмишены неизменяемы: только создание, чтение и привилегированное
// удаление.
type SubmissionRepository interface {
	// GetByKey возвращает сабмишен по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.Submission, error)
	// Create создаёт сабмишен.
	Create(ctx context.Context, s *model.Submission) error
	// Delete удаляет сабмишен.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByGroup возвращает сабмишены группы в порядке создания.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Submission, error)
}

type submissionRepo struct {
	db DBTX
}

const submissionColumns = `id, site_id, label, date, group_id`

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	if err := row.Scan(&s.ID, &s.SiteID, &s.Label, &s.Date, &s.GroupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения сабмишена: %w", err)
	}
	return s, nil
}

func (r *submissionRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.Submission, error) {
	var row pgx.Row
	if key.Kind == model.KeyUUID {
		row = r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, key.UUID)
	} else {
		row = r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE site_id = $1`, key.SiteID)
	}
	return scanSubmission(row)
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	query := `
		INSERT INTO submissions (id, site_id, label, date, group_id)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, s.ID, s.SiteID, s.Label, s.Date, s.GroupID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сабмишен с таким идентификатором уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания сабмишена: %w", err)
	}
	return nil
}

func (r *submissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления сабмишена: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *submissionRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE group_id = $1 ORDER BY date ASC`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка сабмишенов: %w", err)
	}
	defer rows.Close()

	var result []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
