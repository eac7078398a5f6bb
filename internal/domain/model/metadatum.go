package model

import "github.com/google/uuid"

// MetaDatum — определение одного поля схемы метаданных.
// Набор определений конфигурируется администратором сайта и
// хранится в таблице metadata. Удаление не поддерживается.
type MetaDatum struct {
	// ID — UUID определения
	ID uuid.UUID
	// Name — имя поля (уникально в пределах схемы)
	Name string
	// Mandatory — поле обязательно к заполнению
	Mandatory bool
	// Ordinal — позиция поля при отображении и сортировке
	Ordinal int
	// IsFile — значение поля является именем файла, а не литералом
	IsFile bool
	// Regexp — регулярное выражение, которому должно полностью
	// соответствовать значение (nil — без проверки)
	Regexp *string
	// LintMessage — человекочитаемое сообщение при несоответствии Regexp
	LintMessage *string
	// DatetimeFmt — формат даты/времени для разбора и отображения
	// значения (nil — поле не является датой)
	DatetimeFmt *string
	// SubmissionUnique — значение уникально в пределах одного сабмишена
	SubmissionUnique bool
	// SiteUnique — значение уникально в пределах всего сайта
	// (подразумевает SubmissionUnique)
	SiteUnique bool
	// ServiceID — UUID сервиса, которому принадлежит поле.
	// Такие поля заполняются только через service execution и
	// видимы ограниченному кругу пользователей.
	ServiceID *uuid.UUID
}
