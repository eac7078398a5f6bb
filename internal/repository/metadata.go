package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// MetadataRepository — доступ к определениям схемы (таблица metadata).
// Определения создаются и изменяются администратором; удаление
// не поддерживается.
type MetadataRepository interface {
	// All возвращает все определения, отсортированные по ordinal.
	All(ctx context.Context) ([]*model.MetaDatum, error)
	// GetByName возвращает определение по имени поля.
	GetByName(ctx context.Context, name string) (*model.MetaDatum, error)
	// Create создаёт определение.
	Create(ctx context.Context, md *model.MetaDatum) error
	// Update обновляет определение.
	Update(ctx context.Context, md *model.MetaDatum) error
}

type metadataRepo struct {
	db DBTX
}

const metadatumColumns = `id, name, regexp, lint_message, datetime_fmt, mandatory,
	ordinal, is_file, submission_unique, site_unique, service_id`

func scanMetadatum(row pgx.Row) (*model.MetaDatum, error) {
	md := &model.MetaDatum{}
	err := row.Scan(&md.ID, &md.Name, &md.Regexp, &md.LintMessage, &md.DatetimeFmt,
		&md.Mandatory, &md.Ordinal, &md.IsFile, &md.SubmissionUnique, &md.SiteUnique, &md.ServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения определения метаданных: %w", err)
	}
	return md, nil
}

func (r *metadataRepo) All(ctx context.Context) ([]*model.MetaDatum, error) {
	query := `SELECT ` + metadatumColumns + ` FROM metadata ORDER BY ordinal ASC, name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения определений метаданных: %w", err)
	}
	defer rows.Close()

	var result []*model.MetaDatum
	for rows.Next() {
		md, err := scanMetadatum(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, md)
	}
	return result, rows.Err()
}

func (r *metadataRepo) GetByName(ctx context.Context, name string) (*model.MetaDatum, error) {
	query := `SELECT ` + metadatumColumns + ` FROM metadata WHERE name = $1`
	return scanMetadatum(r.db.QueryRow(ctx, query, name))
}

func (r *metadataRepo) Create(ctx context.Context, md *model.MetaDatum) error {
	query := `
		INSERT INTO metadata (id, name, regexp, lint_message, datetime_fmt, mandatory,
			ordinal, is_file, submission_unique, site_unique, service_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		md.ID, md.Name, md.Regexp, md.LintMessage, md.DatetimeFmt, md.Mandatory,
		md.Ordinal, md.IsFile, md.SubmissionUnique, md.SiteUnique, md.ServiceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: поле с именем %q уже определено", ErrConflict, md.Name)
		}
		return fmt.Errorf("ошибка создания определения метаданных: %w", err)
	}
	return nil
}

func (r *metadataRepo) Update(ctx context.Context, md *model.MetaDatum) error {
	query := `
		UPDATE metadata
		SET name = $2, regexp = $3, lint_message = $4, datetime_fmt = $5, mandatory = $6,
			ordinal = $7, is_file = $8, submission_unique = $9, site_unique = $10, service_id = $11
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		md.ID, md.Name, md.Regexp, md.LintMessage, md.DatetimeFmt, md.Mandatory,
		md.Ordinal, md.IsFile, md.SubmissionUnique, md.SiteUnique, md.ServiceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: поле с именем %q уже определено", ErrConflict, md.Name)
		}
		return fmt.Errorf("ошибка обновления определения метаданных: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
