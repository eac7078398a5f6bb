package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// FileRepository — доступ к таблице files.
// Статус привязки (RecordID, SubmissionGroupID) вычисляется через
// LEFT JOIN к записям метаданных и сабмишенам.
type FileRepository interface {
	// GetByKey возвращает файл по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.File, error)
	// GetManyForUpdate возвращает файлы по списку UUID, блокируя строки
	// files до конца транзакции. Отсутствующие идентификаторы в результат
	// не попадают.
	GetManyForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.File, error)
	// Create создаёт объявленный файл (без данных).
	Create(ctx context.Context, f *model.File) error
	// UpdateMeta обновляет имя и контрольную сумму незамороженного файла.
	UpdateMeta(ctx context.Context, f *model.File) error
	// SetStorageURI фиксирует локатор загруженных данных.
	SetStorageURI(ctx context.Context, id uuid.UUID, uri string) error
	// Freeze помечает файл загруженным и фиксирует размер.
	Freeze(ctx context.Context, id uuid.UUID, filesize int64) error
	// Delete удаляет файл.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListStaged возвращает незаявленные в сабмишены файлы пользователя.
	ListStaged(ctx context.Context, userID uuid.UUID) ([]*model.File, error)
}

type fileRepo struct {
	db DBTX
}

// fileSelect — выборка файла со статусом привязки: запись метаданных,
// ссылающаяся на файл, и группа сабмишена её набора.
const fileSelect = `
	SELECT f.id, f.site_id, f.name, f.storage_uri, f.checksum, f.filesize,
		f.content_uploaded, f.user_id, f.group_id, r.id, s.group_id
	FROM files f
	LEFT JOIN metadatumrecords r ON r.file_id = f.id
	LEFT JOIN metadatasets m ON m.id = r.metadataset_id
	LEFT JOIN submissions s ON s.id = m.submission_id`

func scanFile(row pgx.Row) (*model.File, error) {
	f := &model.File{}
	err := row.Scan(&f.ID, &f.SiteID, &f.Name, &f.StorageURI, &f.Checksum, &f.Filesize,
		&f.ContentUploaded, &f.UserID, &f.GroupID, &f.RecordID, &f.SubmissionGroupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.File, error) {
	var row pgx.Row
	if key.Kind == model.KeyUUID {
		row = r.db.QueryRow(ctx, fileSelect+` WHERE f.id = $1`, key.UUID)
	} else {
		row = r.db.QueryRow(ctx, fileSelect+` WHERE f.site_id = $1`, key.SiteID)
	}
	return scanFile(row)
}

func (r *fileRepo) GetManyForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.File, error) {
	query := fileSelect + ` WHERE f.id = ANY($1) FOR UPDATE OF f`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокирующей выборки файлов: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*model.File, len(ids))
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result[f.ID] = f
	}
	return result, rows.Err()
}

func (r *fileRepo) Create(ctx context.Context, f *model.File) error {
	query := `
		INSERT INTO files (id, site_id, name, storage_uri, checksum, filesize,
			content_uploaded, user_id, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		f.ID, f.SiteID, f.Name, f.StorageURI, f.Checksum, f.Filesize,
		f.ContentUploaded, f.UserID, f.GroupID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким идентификатором уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания файла: %w", err)
	}
	return nil
}

func (r *fileRepo) UpdateMeta(ctx context.Context, f *model.File) error {
	// Заморозка сбрасывается: новая сумма требует повторной сверки
	query := `
		UPDATE files
		SET name = $2, checksum = $3, content_uploaded = false, filesize = NULL
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, f.ID, f.Name, f.Checksum)
	if err != nil {
		return fmt.Errorf("ошибка обновления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) SetStorageURI(ctx context.Context, id uuid.UUID, uri string) error {
	tag, err := r.db.Exec(ctx, `UPDATE files SET storage_uri = $2 WHERE id = $1`, id, uri)
	if err != nil {
		return fmt.Errorf("ошибка сохранения локатора данных: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) Freeze(ctx context.Context, id uuid.UUID, filesize int64) error {
	query := `UPDATE files SET content_uploaded = true, filesize = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, filesize)
	if err != nil {
		return fmt.Errorf("ошибка заморозки файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) ListStaged(ctx context.Context, userID uuid.UUID) ([]*model.File, error) {
	query := fileSelect + `
		WHERE f.user_id = $1 AND (m.submission_id IS NULL)
		ORDER BY f.site_id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
