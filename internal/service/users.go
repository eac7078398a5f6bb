// users.go — сервис управления пользователями.
// Просмотр, смена имени, включение/выключение учётной записи и
// изменение флагов прав. Правила доступа — предикаты пакета authz.
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

// UserService — сервис пользователей.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// UserFlags — запрашиваемые изменения флагов прав.
// nil — флаг не меняется.
type UserFlags struct {
	// Enabled — учётная запись активна
	Enabled *bool
	// SiteAdmin — администратор сайта
	SiteAdmin *bool
	// GroupAdmin — администратор своей группы
	GroupAdmin *bool
	// SiteRead — право чтения всех данных сайта
	SiteRead *bool
}

// Get возвращает пользователя по ключу. Обычный пользователь видит
// только себя, администратор группы — свою группу, site_read — всех.
func (s *UserService) Get(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.User, error) {
	target, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !authz.ViewUser(actor, target) {
		return nil, ErrAccessDenied
	}
	return target, nil
}

// UpdateName меняет полное имя пользователя.
func (s *UserService) UpdateName(ctx context.Context, actor *model.User, key model.ResourceKey, fullname string) (*model.User, error) {
	if fullname == "" {
		return nil, fmt.Errorf("%w: имя не задано", ErrValidation)
	}

	target, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !authz.UpdateUserName(actor, target) {
		return nil, ErrAccessDenied
	}

	target.Fullname = fullname
	if err := s.store.Users().Update(ctx, target); err != nil {
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}

	s.logger.Info("Имя пользователя изменено",
		slog.String("site_id", target.SiteID),
		slog.String("changed_by", actor.SiteID),
	)
	return target, nil
}

// UpdateFlags применяет изменения флагов. Каждый флаг проверяется своим
// предикатом; при любом отказе ни одно изменение не применяется.
func (s *UserService) UpdateFlags(ctx context.Context, actor *model.User, key model.ResourceKey, flags UserFlags) (*model.User, error) {
	target, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if flags.Enabled != nil && !authz.UpdateUserStatus(actor, target) {
		return nil, ErrAccessDenied
	}
	if flags.SiteAdmin != nil && !authz.UpdateUserSiteAdmin(actor, target) {
		return nil, ErrAccessDenied
	}
	if flags.GroupAdmin != nil && !authz.UpdateUserGroupAdmin(actor, target) {
		return nil, ErrAccessDenied
	}
	if flags.SiteRead != nil && !authz.UpdateUserSiteRead(actor) {
		return nil, ErrAccessDenied
	}

	if flags.Enabled != nil {
		target.Enabled = *flags.Enabled
	}
	if flags.SiteAdmin != nil {
		target.SiteAdmin = *flags.SiteAdmin
	}
	if flags.GroupAdmin != nil {
		target.GroupAdmin = *flags.GroupAdmin
	}
	if flags.SiteRead != nil {
		target.SiteRead = *flags.SiteRead
	}

	if err := s.store.Users().Update(ctx, target); err != nil {
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}

	s.logger.Info("Флаги пользователя изменены",
		slog.String("site_id", target.SiteID),
		slog.String("changed_by", actor.SiteID),
		slog.Bool("enabled", target.Enabled),
		slog.Bool("site_admin", target.SiteAdmin),
		slog.Bool("group_admin", target.GroupAdmin),
		slog.Bool("site_read", target.SiteRead),
	)
	return target, nil
}

func (s *UserService) lookup(ctx context.Context, key model.ResourceKey) (*model.User, error) {
	target, err := s.store.Users().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return target, nil
}
