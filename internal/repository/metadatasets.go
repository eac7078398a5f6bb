package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// MetadatasetRepository — доступ к наборам метаданных и их записям
// (таблицы metadatasets и metadatumrecords).
type MetadatasetRepository interface {
	// GetByKey возвращает набор с записями по UUID или site_id.
	GetByKey(ctx context.Context, key model.ResourceKey) (*model.MetaDataSet, error)
	// GetManyForUpdate возвращает наборы с записями по списку UUID,
	// блокируя строки metadatasets до конца транзакции (FOR UPDATE).
	// Отсутствующие идентификаторы в результат не попадают.
	GetManyForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.MetaDataSet, error)
	// Create создаёт набор (без записей).
	Create(ctx context.Context, m *model.MetaDataSet) error
	// InsertRecords создаёт записи значений.
	InsertRecords(ctx context.Context, recs []*model.MetaDatumRecord) error
	// UpdateRecord обновляет значение и привязку файла записи.
	UpdateRecord(ctx context.Context, rec *model.MetaDatumRecord) error
	// BindFile привязывает файл к записи.
	BindFile(ctx context.Context, recordID, fileID uuid.UUID) error
	// AttachSubmission привязывает наборы к сабмишену.
	AttachSubmission(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error
	// Delete удаляет набор вместе с записями.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListPending возвращает неотправленные наборы пользователя.
	ListPending(ctx context.Context, userID uuid.UUID) ([]*model.MetaDataSet, error)
	// ListBySubmission возвращает наборы сабмишена.
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*model.MetaDataSet, error)
	// SubmittedValues возвращает те из указанных значений поля, которые
	// уже встречаются среди отправленных наборов (любой группы).
	SubmittedValues(ctx context.Context, metadatumName string, values []string) ([]string, error)
	// BackfillNullRecords добавляет NULL-запись нового определения во все
	// существующие наборы (инвариант полноты схемы). Возвращает число
	// созданных записей.
	BackfillNullRecords(ctx context.Context, metadatumID uuid.UUID) (int64, error)
}

type metadatasetRepo struct {
	db DBTX
}

// msetSelect — выборка набора с группой сабмишена (если отправлен).
const msetSelect = `
	SELECT m.id, m.site_id, m.user_id, m.group_id, m.submission_id, s.group_id
	FROM metadatasets m
	LEFT JOIN submissions s ON s.id = m.submission_id`

func scanMset(row pgx.Row) (*model.MetaDataSet, error) {
	m := &model.MetaDataSet{}
	err := row.Scan(&m.ID, &m.SiteID, &m.UserID, &m.GroupID, &m.SubmissionID, &m.SubmissionGroupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения набора метаданных: %w", err)
	}
	return m, nil
}

func (r *metadatasetRepo) GetByKey(ctx context.Context, key model.ResourceKey) (*model.MetaDataSet, error) {
	var row pgx.Row
	if key.Kind == model.KeyUUID {
		row = r.db.QueryRow(ctx, msetSelect+` WHERE m.id = $1`, key.UUID)
	} else {
		row = r.db.QueryRow(ctx, msetSelect+` WHERE m.site_id = $1`, key.SiteID)
	}
	m, err := scanMset(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRecords(ctx, map[uuid.UUID]*model.MetaDataSet{m.ID: m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *metadatasetRepo) GetManyForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.MetaDataSet, error) {
	// FOR UPDATE OF m: блокируем только строки metadatasets;
	// внешнюю сторону LEFT JOIN блокировать нельзя
	query := msetSelect + ` WHERE m.id = ANY($1) FOR UPDATE OF m`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокирующей выборки наборов: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*model.MetaDataSet, len(ids))
	for rows.Next() {
		m, err := scanMset(rows)
		if err != nil {
			return nil, err
		}
		result[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadRecords(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadRecords загружает записи значений для указанных наборов.
func (r *metadatasetRepo) loadRecords(ctx context.Context, msets map[uuid.UUID]*model.MetaDataSet) error {
	if len(msets) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(msets))
	for id := range msets {
		ids = append(ids, id)
	}

	query := `
		SELECT r.id, r.metadatum_id, md.name, md.is_file, r.metadataset_id, r.file_id, r.value
		FROM metadatumrecords r
		JOIN metadata md ON md.id = r.metadatum_id
		WHERE r.metadataset_id = ANY($1)
		ORDER BY md.ordinal ASC, md.name ASC`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("ошибка загрузки записей метаданных: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := &model.MetaDatumRecord{}
		err := rows.Scan(&rec.ID, &rec.MetadatumID, &rec.MetadatumName, &rec.IsFile,
			&rec.MetadatasetID, &rec.FileID, &rec.Value)
		if err != nil {
			return fmt.Errorf("ошибка сканирования записи метаданных: %w", err)
		}
		if m, ok := msets[rec.MetadatasetID]; ok {
			m.Records = append(m.Records, rec)
		}
	}
	return rows.Err()
}

func (r *metadatasetRepo) Create(ctx context.Context, m *model.MetaDataSet) error {
	query := `
		INSERT INTO metadatasets (id, site_id, user_id, group_id, submission_id)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, m.ID, m.SiteID, m.UserID, m.GroupID, m.SubmissionID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: набор с таким идентификатором уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания набора метаданных: %w", err)
	}
	return nil
}

func (r *metadatasetRepo) InsertRecords(ctx context.Context, recs []*model.MetaDatumRecord) error {
	query := `
		INSERT INTO metadatumrecords (id, metadatum_id, metadataset_id, file_id, value)
		VALUES ($1, $2, $3, $4, $5)`
	for _, rec := range recs {
		if _, err := r.db.Exec(ctx, query, rec.ID, rec.MetadatumID, rec.MetadatasetID, rec.FileID, rec.Value); err != nil {
			return fmt.Errorf("ошибка создания записи метаданных: %w", err)
		}
	}
	return nil
}

func (r *metadatasetRepo) UpdateRecord(ctx context.Context, rec *model.MetaDatumRecord) error {
	query := `UPDATE metadatumrecords SET value = $2, file_id = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, rec.ID, rec.Value, rec.FileID)
	if err != nil {
		return fmt.Errorf("ошибка обновления записи метаданных: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *metadatasetRepo) BindFile(ctx context.Context, recordID, fileID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE metadatumrecords SET file_id = $2 WHERE id = $1`, recordID, fileID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл уже привязан к другой записи", ErrConflict)
		}
		return fmt.Errorf("ошибка привязки файла к записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *metadatasetRepo) AttachSubmission(ctx context.Context, ids []uuid.UUID, submissionID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE metadatasets SET submission_id = $2 WHERE id = ANY($1)`, ids, submissionID)
	if err != nil {
		return fmt.Errorf("ошибка привязки наборов к сабмишену: %w", err)
	}
	return nil
}

func (r *metadatasetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM metadatumrecords WHERE metadataset_id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления записей набора: %w", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM metadatasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления набора метаданных: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *metadatasetRepo) ListPending(ctx context.Context, userID uuid.UUID) ([]*model.MetaDataSet, error) {
	query := msetSelect + ` WHERE m.user_id = $1 AND m.submission_id IS NULL ORDER BY m.site_id`
	return r.list(ctx, query, userID)
}

func (r *metadatasetRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*model.MetaDataSet, error) {
	query := msetSelect + ` WHERE m.submission_id = $1 ORDER BY m.site_id`
	return r.list(ctx, query, submissionID)
}

func (r *metadatasetRepo) list(ctx context.Context, query string, args ...any) ([]*model.MetaDataSet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка наборов: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*model.MetaDataSet)
	var result []*model.MetaDataSet
	for rows.Next() {
		m, err := scanMset(rows)
		if err != nil {
			return nil, err
		}
		byID[m.ID] = m
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadRecords(ctx, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *metadatasetRepo) SubmittedValues(ctx context.Context, metadatumName string, values []string) ([]string, error) {
	query := `
		SELECT DISTINCT r.value
		FROM metadatumrecords r
		JOIN metadatasets m ON m.id = r.metadataset_id
		JOIN metadata md ON md.id = r.metadatum_id
		WHERE m.submission_id IS NOT NULL
			AND md.name = $1
			AND r.value = ANY($2)`

	rows, err := r.db.Query(ctx, query, metadatumName, values)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки отправленных значений: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значения: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *metadatasetRepo) BackfillNullRecords(ctx context.Context, metadatumID uuid.UUID) (int64, error) {
	// Одна команда: NULL-запись нового определения для каждого набора,
	// у которого её ещё нет
	query := `
		INSERT INTO metadatumrecords (id, metadatum_id, metadataset_id, file_id, value)
		SELECT gen_random_uuid(), $1, m.id, NULL, NULL
		FROM metadatasets m
		WHERE NOT EXISTS (
			SELECT 1 FROM metadatumrecords r
			WHERE r.metadatum_id = $1 AND r.metadataset_id = m.id
		)`

	tag, err := r.db.Exec(ctx, query, metadatumID)
	if err != nil {
		return 0, fmt.Errorf("ошибка дозаполнения записей нового поля: %w", err)
	}
	return tag.RowsAffected(), nil
}
