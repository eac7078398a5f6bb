package model

import "github.com/google/uuid"

// User — пользователь портала.
// Хранится в таблице users.
type User struct {
	// ID — UUID пользователя
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор (например, MSUSER-0000000042)
	SiteID string
	// Email — электронная почта (уникальна)
	Email string
	// Fullname — полное имя
	Fullname string
	// GroupID — UUID группы, которой принадлежит пользователь
	GroupID uuid.UUID
	// Enabled — учётная запись активна
	Enabled bool
	// SiteAdmin — администратор всего сайта
	SiteAdmin bool
	// GroupAdmin — администратор своей группы
	GroupAdmin bool
	// SiteRead — право чтения всех данных сайта без права изменения
	SiteRead bool
}
