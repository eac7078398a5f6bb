// serviceexec.go — исполнение внешних сервисов над отправленными наборами.
// Единственный путь записи в отправленный набор: сервис заполняет
// принадлежащие ему поля ровно один раз на пару (сервис, набор).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/domain/schema"
	"github.com/bigkaa/gometastore/internal/repository"
)

// ServiceExecService — сервис исполнения внешних сервисов.
type ServiceExecService struct {
	store    repository.Store
	metadata *MetadataService
	logger   *slog.Logger
}

// NewServiceExecService создаёт сервис исполнения.
func NewServiceExecService(store repository.Store, metadata *MetadataService, logger *slog.Logger) *ServiceExecService {
	return &ServiceExecService{
		store:    store,
		metadata: metadata,
		logger:   logger.With(slog.String("component", "service_exec")),
	}
}

// Get возвращает сервис по ключу.
func (s *ServiceExecService) Get(ctx context.Context, key model.ResourceKey) (*model.Service, error) {
	svc, err := s.store.Services().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение сервиса: %w", err)
	}
	return svc, nil
}

// Execute записывает значения сервисных полей в отправленный набор.
// Файловые сервисные поля привязываются к предоставленным файлам по
// тем же правилам сопоставления, что и при отправке. Проверки:
// пользователь допущен к сервису; набор отправлен; сервис над этим
// набором ещё не исполнялся; каждое поле записи принадлежит сервису;
// значения проходят валидацию схемы.
func (s *ServiceExecService) Execute(
	ctx context.Context,
	actor *model.User,
	serviceKey, msetKey model.ResourceKey,
	record map[string]*string,
	fileKeys []model.ResourceKey,
) error {
	svc, err := s.Get(ctx, serviceKey)
	if err != nil {
		return err
	}
	if !authz.ExecuteService(actor, svc) {
		return ErrAccessDenied
	}

	defs, err := s.metadata.Definitions(ctx)
	if err != nil {
		return err
	}
	svcDefs := serviceDefinitions(defs, svc.ID)

	// Поля, не принадлежащие сервису, и содержательные нарушения
	if fieldErrs := schema.ValidateRecord(svcDefs, record, false); len(fieldErrs) > 0 {
		return newValidationError(fieldIssues("", fieldErrs))
	}
	rendered, err := schema.RenderRecord(svcDefs, record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return s.store.InTx(ctx, func(tx repository.Store) error {
		m, err := tx.Metadatasets().GetByKey(ctx, msetKey)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("получение набора: %w", err)
		}
		if !m.WasSubmitted() {
			return fmt.Errorf("%w: набор ещё не отправлен", ErrStateConflict)
		}

		done, err := tx.Services().ExecutionExists(ctx, svc.ID, m.ID)
		if err != nil {
			return err
		}
		if done {
			return fmt.Errorf("%w: сервис %s уже исполнялся над набором %s",
				ErrStateConflict, svc.SiteID, m.SiteID)
		}

		files, accessIssues, err := s.resolveFiles(ctx, tx, actor, fileKeys)
		if err != nil {
			return err
		}
		if len(accessIssues) > 0 {
			return newAccessError(accessIssues)
		}

		// Значения применяются к записям в памяти, затем сопоставляются
		// предоставленные файлы. Набор уже отправлен, поэтому проверка
		// отправленности пропускается.
		for name, value := range rendered {
			rec := m.Record(name)
			if rec == nil {
				// Инвариант полноты схемы гарантирует запись для каждого
				// определения; отсутствие — рассинхронизация данных
				return fmt.Errorf("у набора %s нет записи поля %q", m.SiteID, name)
			}
			rec.Value = value
		}

		bindings, assocIssues := resolveAssociations([]*model.MetaDataSet{m}, files, true)
		if len(assocIssues) > 0 {
			return newValidationError(assocIssues)
		}

		for name := range rendered {
			rec := m.Record(name)
			if err := tx.Metadatasets().UpdateRecord(ctx, rec); err != nil {
				return fmt.Errorf("запись поля %q: %w", name, err)
			}
		}
		for _, b := range bindings {
			if err := tx.Metadatasets().BindFile(ctx, b.Record.ID, b.File.ID); err != nil {
				return fmt.Errorf("привязка файла %s: %w", b.File.SiteID, err)
			}
		}

		exec := &model.ServiceExecution{
			ID:            uuid.New(),
			ServiceID:     svc.ID,
			MetadatasetID: m.ID,
			UserID:        actor.ID,
			Datetime:      time.Now().UTC(),
		}
		if err := tx.Services().RecordExecution(ctx, exec); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: сервис %s уже исполнялся над набором %s",
					ErrStateConflict, svc.SiteID, m.SiteID)
			}
			return err
		}

		s.logger.Info("Сервис исполнен",
			slog.String("service", svc.SiteID),
			slog.String("metadataset", m.SiteID),
			slog.String("user", actor.SiteID),
		)
		return nil
	})
}

// resolveFiles разрешает и блокирует предоставленные сервисом файлы.
// Ненайденные и чужие файлы попадают в список отказов доступа.
func (s *ServiceExecService) resolveFiles(
	ctx context.Context,
	tx repository.Store,
	actor *model.User,
	keys []model.ResourceKey,
) ([]*model.File, []Issue, error) {
	var issues []Issue

	ids, issues, err := resolveKeys(keys, issues, func(key model.ResourceKey) (uuid.UUID, error) {
		f, err := tx.Files().GetByKey(ctx, key)
		if err != nil {
			return uuid.Nil, err
		}
		return f.ID, nil
	})
	if err != nil {
		return nil, nil, err
	}

	locked, err := tx.Files().GetManyForUpdate(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	files := make([]*model.File, 0, len(ids))
	for _, id := range ids {
		f := locked[id]
		if f == nil {
			continue
		}
		if !authz.SubmitFile(actor, f) {
			issues = append(issues, Issue{Entity: f.SiteID, Message: msgAccessDenied})
			continue
		}
		files = append(files, f)
	}
	return files, issues, nil
}

// serviceDefinitions отбирает определения, принадлежащие сервису.
func serviceDefinitions(defs []*model.MetaDatum, serviceID uuid.UUID) []*model.MetaDatum {
	result := make([]*model.MetaDatum, 0, len(defs))
	for _, md := range defs {
		if md.ServiceID != nil && *md.ServiceID == serviceID {
			result = append(result, md)
		}
	}
	return result
}
