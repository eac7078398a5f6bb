package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission — неизменяемый пакет наборов метаданных (и связанных с ними
// файлов), отправленных вместе. Принадлежит группе. После создания никогда
// не обновляется; удаление возможно только привилегированным путём.
type Submission struct {
	// ID — UUID сабмишена
	ID uuid.UUID
	// SiteID — человекочитаемый идентификатор сабмишена
	SiteID string
	// Label — необязательная человекочитаемая метка
	Label *string
	// Date — момент создания
	Date time.Time
	// GroupID — UUID группы-владельца
	GroupID uuid.UUID
}
