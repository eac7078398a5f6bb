// metadata.go — сервис реестра схемы метаданных.
// Определения полей читаются при каждой валидации, поэтому кэшируются
// с коротким TTL; любое изменение схемы сбрасывает кэш.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
)

// schemaCacheKey — единственный ключ кэша: схема одна на инсталляцию.
const schemaCacheKey = "schema"

// MetadataService — сервис реестра определений метаданных.
type MetadataService struct {
	store  repository.Store
	cache  *expirable.LRU[string, []*model.MetaDatum]
	logger *slog.Logger
}

// NewMetadataService создаёт сервис реестра схемы.
func NewMetadataService(store repository.Store, cacheTTL time.Duration, logger *slog.Logger) *MetadataService {
	return &MetadataService{
		store:  store,
		cache:  expirable.NewLRU[string, []*model.MetaDatum](1, nil, cacheTTL),
		logger: logger.With(slog.String("component", "metadata_service")),
	}
}

// Definitions возвращает все определения схемы, отсортированные по
// позиции. Результат кэшируется.
func (s *MetadataService) Definitions(ctx context.Context) ([]*model.MetaDatum, error) {
	if defs, ok := s.cache.Get(schemaCacheKey); ok {
		return defs, nil
	}

	defs, err := s.store.Metadata().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение определений схемы: %w", err)
	}

	s.cache.Add(schemaCacheKey, defs)
	return defs, nil
}

// Get возвращает определение по имени поля.
func (s *MetadataService) Get(ctx context.Context, name string) (*model.MetaDatum, error) {
	md, err := s.store.Metadata().GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение определения: %w", err)
	}
	return md, nil
}

// Create создаёт определение поля. Требует прав администратора сайта.
// В той же транзакции каждому существующему набору метаданных добавляется
// NULL-запись нового поля: у каждого набора всегда есть запись для каждого
// известного определения.
func (s *MetadataService) Create(ctx context.Context, actor *model.User, md *model.MetaDatum) error {
	if !authz.CreateMetadatum(actor) {
		return ErrAccessDenied
	}
	if err := validateDefinition(md); err != nil {
		return err
	}
	if md.ID == uuid.Nil {
		md.ID = uuid.New()
	}

	var backfilled int64
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Metadata().Create(ctx, md); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: поле %q уже определено", ErrConflict, md.Name)
			}
			return fmt.Errorf("создание определения: %w", err)
		}
		n, err := tx.Metadatasets().BackfillNullRecords(ctx, md.ID)
		if err != nil {
			return fmt.Errorf("дозаполнение записей: %w", err)
		}
		backfilled = n
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Remove(schemaCacheKey)

	s.logger.Info("Определение схемы создано",
		slog.String("name", md.Name),
		slog.Int64("backfilled_records", backfilled),
	)
	return nil
}

// Update обновляет определение поля. Требует прав администратора сайта.
func (s *MetadataService) Update(ctx context.Context, actor *model.User, md *model.MetaDatum) error {
	if !authz.UpdateMetadatum(actor) {
		return ErrAccessDenied
	}
	if err := validateDefinition(md); err != nil {
		return err
	}

	if err := s.store.Metadata().Update(ctx, md); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%w: поле %q уже определено", ErrConflict, md.Name)
		}
		return fmt.Errorf("обновление определения: %w", err)
	}

	s.cache.Remove(schemaCacheKey)

	s.logger.Info("Определение схемы обновлено", slog.String("name", md.Name))
	return nil
}

// validateDefinition проверяет согласованность определения.
func validateDefinition(md *model.MetaDatum) error {
	if md.Name == "" {
		return fmt.Errorf("%w: имя поля не задано", ErrValidation)
	}
	// Уникальность в пределах сайта подразумевает уникальность
	// в пределах сабмишена
	if md.SiteUnique {
		md.SubmissionUnique = true
	}
	if md.IsFile && md.DatetimeFmt != nil {
		return fmt.Errorf("%w: файловое поле не может быть датой", ErrValidation)
	}
	return nil
}
