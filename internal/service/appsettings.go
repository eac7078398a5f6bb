// appsettings.go — сервис настроек приложения.
// Настройки типизированы; обновление обязано сохранять тип существующей
// настройки. Создание новых ключей через API не поддерживается.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/gometastore/internal/domain/authz"
	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/repository"
)

// AppSettingsService — сервис настроек приложения.
type AppSettingsService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewAppSettingsService создаёт сервис настроек.
func NewAppSettingsService(store repository.Store, logger *slog.Logger) *AppSettingsService {
	return &AppSettingsService{
		store:  store,
		logger: logger.With(slog.String("component", "appsettings_service")),
	}
}

// List возвращает все настройки. Только администратор сайта.
func (s *AppSettingsService) List(ctx context.Context, actor *model.User) ([]*model.AppSetting, error) {
	if !authz.ViewAppSettings(actor) {
		return nil, ErrAccessDenied
	}
	settings, err := s.store.AppSettings().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение настроек: %w", err)
	}
	return settings, nil
}

// Set обновляет значение настройки. Текстовое значение разбирается
// в соответствии с типом существующей настройки; несовпадение типа —
// ошибка валидации.
func (s *AppSettingsService) Set(ctx context.Context, actor *model.User, key, raw string) (*model.AppSetting, error) {
	if !authz.UpdateAppSettings(actor) {
		return nil, ErrAccessDenied
	}

	current, err := s.store.AppSettings().Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение настройки: %w", err)
	}

	value, err := model.DecodeSettingValue(current.Value.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.store.AppSettings().Set(ctx, key, value); err != nil {
		return nil, fmt.Errorf("обновление настройки: %w", err)
	}

	s.logger.Info("Настройка обновлена",
		slog.String("key", key),
		slog.String("updated_by", actor.SiteID),
	)
	return &model.AppSetting{Key: key, Value: value}, nil
}
