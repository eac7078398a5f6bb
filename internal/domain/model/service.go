package model

import (
	"time"

	"github.com/google/uuid"
)

// Service — внешний сервис, которому разрешено записывать ограниченный
// набор полей уже отправленного набора метаданных, ровно один раз на
// пару (сервис, набор).
type Service struct {
	// ID — UUID сервиса
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор сервиса
	SiteID string
	// Name — название сервиса
	Name string
	// UserIDs — пользователи, которым разрешено исполнять сервис
	UserIDs []uuid.UUID
}

// CanExecute сообщает, разрешено ли пользователю исполнять сервис.
func (s *Service) CanExecute(userID uuid.UUID) bool {
	for _, id := range s.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ServiceExecution — факт исполнения сервиса над набором метаданных.
// Повторное исполнение той же пары (сервис, набор) запрещено.
type ServiceExecution struct {
	// ID — UUID записи исполнения
	ID uuid.UUID
	// ServiceID — UUID сервиса
	ServiceID uuid.UUID
	// MetadatasetID — UUID набора метаданных
	MetadatasetID uuid.UUID
	// UserID — UUID пользователя, выполнившего сервис
	UserID uuid.UUID
	// Datetime — момент исполнения
	Datetime time.Time
}
