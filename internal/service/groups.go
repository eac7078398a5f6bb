// groups.go — сервис групп: просмотр и переименование.
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

// GroupService — сервис групп.
type GroupService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewGroupService создаёт сервис групп.
func NewGroupService(store repository.Store, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:  store,
		logger: logger.With(slog.String("component", "group_service")),
	}
}

// Get возвращает группу по ключу. Видна членам группы и пользователям
// с правом чтения сайта.
func (s *GroupService) Get(ctx context.Context, actor *model.User, key model.ResourceKey) (*model.Group, error) {
	g, err := s.store.Groups().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение группы: %w", err)
	}
	if !authz.IsOwnGroup(actor, g.ID) && !authz.CanSiteRead(actor) {
		return nil, ErrAccessDenied
	}
	return g, nil
}

// Rename меняет название группы. Требуются административные права
// над группой.
func (s *GroupService) Rename(ctx context.Context, actor *model.User, key model.ResourceKey, name string) (*model.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: название группы не задано", ErrValidation)
	}

	g, err := s.store.Groups().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение группы: %w", err)
	}
	if !authz.HasGroupRights(actor, g.ID) {
		return nil, ErrAccessDenied
	}

	if err := s.store.Groups().UpdateName(ctx, g.ID, name); err != nil {
		return nil, fmt.Errorf("переименование группы: %w", err)
	}
	g.Name = name

	s.logger.Info("Группа переименована",
		slog.String("site_id", g.SiteID),
		slog.String("changed_by", actor.SiteID),
	)
	return g, nil
}
