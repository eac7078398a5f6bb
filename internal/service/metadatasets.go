// metadatasets.go — сервис staging-области наборов метаданных.
// Создание с валидацией против схемы, чтение с фильтрацией сервисных
// полей, удаление неотправленных наборов и отчёт по ожидающим отправки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/domain/schema"
	"github.com/bigkaa/gometastore/internal/repository"
)

// MetadatasetService — сервис наборов метаданных.
type MetadatasetService struct {
	store    repository.Store
	metadata *MetadataService
	siteIDs  *SiteIDGenerator
	prefix   string
	logger   *slog.Logger
}

// NewMetadatasetService создаёт сервис наборов метаданных.
func NewMetadatasetService(
	store repository.Store,
	metadata *MetadataService,
	siteIDs *SiteIDGenerator,
	prefix string,
	logger *slog.Logger,
) *MetadatasetService {
	return &MetadatasetService{
		store:    store,
		metadata: metadata,
		siteIDs:  siteIDs,
		prefix:   prefix,
		logger:   logger.With(slog.String("component", "metadataset_service")),
	}
}

// PendingReport — набор в staging-области вместе с актуальным отчётом
// валидации. Схема могла измениться после создания набора, поэтому
// отчёт строится заново при каждом запросе.
type PendingReport struct {
	Metadataset *model.MetaDataSet
	Errors      []schema.FieldError
}

// Create валидирует запись против схемы, нормализует значения
// даты/времени и сохраняет новый набор. Для каждого известного
// определения (включая сервисные поля) создаётся запись, отсутствующие
// значения — NULL.
func (s *MetadatasetService) Create(ctx context.Context, actor *model.User, record map[string]*string) (*model.MetaDataSet, error) {
	defs, err := s.metadata.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	userDefs := schema.WithoutService(defs)

	if fieldErrs := schema.ValidateRecord(userDefs, record, false); len(fieldErrs) > 0 {
		return nil, newValidationError(fieldIssues("", fieldErrs))
	}

	rendered, err := schema.RenderRecord(userDefs, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	siteID, err := s.siteIDs.New(ctx, "metadatasets", s.prefix)
	if err != nil {
		return nil, err
	}

	m := &model.MetaDataSet{
		ID:      uuid.New(),
		SiteID:  siteID,
		UserID:  actor.ID,
		GroupID: actor.GroupID,
	}
	for _, md := range schema.Ordered(defs) {
		rec := &model.MetaDatumRecord{
			ID:            uuid.New(),
			MetadatumID:   md.ID,
			MetadatumName: md.Name,
			IsFile:        md.IsFile,
			MetadatasetID: m.ID,
		}
		if v, ok := rendered[md.Name]; ok {
			rec.Value = v
		}
		m.Records = append(m.Records, rec)
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Metadatasets().Create(ctx, m); err != nil {
			return fmt.Errorf("создание набора: %w", err)
		}
		if err := tx.Metadatasets().InsertRecords(ctx, m.Records); err != nil {
			return fmt.Errorf("создание записей: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Набор метаданных создан",
		slog.String("site_id", m.SiteID),
		slog.String("user", actor.SiteID),
	)
	return m, nil
}

// Get возвращает набор по ключу. Сервисные поля видны только
// пользователям с правом site_read; значения даты/времени
// возвращаются в формате, заданном администратором.
func (s *MetadatasetService) Get(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.MetaDataSet, error) {
	m, err := s.store.Metadatasets().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение набора: %w", err)
	}
	if !authz.ViewMset(actor, m) {
		return nil, ErrAccessDenied
	}

	defs, err := s.metadata.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	s.renderForReading(actor, defs, m)
	return m, nil
}

// Delete удаляет неотправленный набор вместе с записями.
// Отправленные наборы этим путём не удаляются.
func (s *MetadatasetService) Delete(ctx context.Context, actor *model.User, key model.ResourceKey) error {
	m, err := s.store.Metadatasets().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение набора: %w", err)
	}
	if !authz.DeleteMset(actor, m) {
		return ErrAccessDenied
	}
	if m.WasSubmitted() {
		return ErrNotModifiable
	}

	if err := s.store.Metadatasets().Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("удаление набора: %w", err)
	}

	s.logger.Info("Набор метаданных удалён", slog.String("site_id", m.SiteID))
	return nil
}

// ListPending возвращает неотправленные наборы пользователя с актуальным
// отчётом валидации против текущей схемы.
func (s *MetadatasetService) ListPending(ctx context.Context, actor *model.User) ([]*PendingReport, error) {
	defs, err := s.metadata.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	userDefs := schema.WithoutService(defs)

	msets, err := s.store.Metadatasets().ListPending(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("получение ожидающих наборов: %w", err)
	}

	reports := make([]*PendingReport, 0, len(msets))
	for _, m := range msets {
		fieldErrs := schema.ValidateRecord(userDefs, recordValues(m, userDefs), true)
		s.renderForReading(actor, defs, m)
		reports = append(reports, &PendingReport{Metadataset: m, Errors: fieldErrs})
	}
	return reports, nil
}

// renderForReading фильтрует записи по читаемым определениям и приводит
// значения даты/времени к формату администратора.
func (s *MetadatasetService) renderForReading(actor *model.User, defs []*model.MetaDatum, m *model.MetaDataSet) {
	readable := schema.ByName(authz.ReadableMetadata(actor, defs))

	filtered := make([]*model.MetaDatumRecord, 0, len(m.Records))
	for _, rec := range m.Records {
		md, ok := readable[rec.MetadatumName]
		if !ok {
			continue
		}
		rec.Value = schema.FormatValue(md, rec.Value)
		filtered = append(filtered, rec)
	}
	m.Records = filtered
}

// recordValues строит отображение имя поля → значение для валидации
// сохранённого набора против переданных определений.
func recordValues(m *model.MetaDataSet, defs []*model.MetaDatum) map[string]*string {
	byName := schema.ByName(defs)
	values := make(map[string]*string, len(m.Records))
	for _, rec := range m.Records {
		if _, ok := byName[rec.MetadatumName]; ok {
			values[rec.MetadatumName] = rec.Value
		}
	}
	return values
}

// fieldIssues привязывает ошибки полей к идентификатору ресурса.
func fieldIssues(entity string, fieldErrs []schema.FieldError) []Issue {
	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{Entity: entity, Field: fe.Field, Message: fe.Message})
	}
	return issues
}
