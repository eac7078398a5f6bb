package model

import "github.com/google/uuid"

// Group — группа пользователей. Каждый пользователь принадлежит
// ровно одной группе; после отправки данные видны всей группе.
type Group struct {
	// ID — UUID группы
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор группы
	SiteID string
	// Name — название группы
	Name string
}
