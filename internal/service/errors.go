// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrAccessDenied — у пользователя нет прав на операцию.
	ErrAccessDenied = errors.New("доступ запрещён")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStateConflict — операция несовместима с текущим состоянием ресурса.
	ErrStateConflict = errors.New("конфликт состояния ресурса")
	// ErrNotModifiable — ресурс уже отправлен и неизменяем.
	ErrNotModifiable = errors.New("ресурс неизменяем после отправки")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
)

// Issue — одно нарушение, привязанное к ресурсу и полю.
type Issue struct {
	// Entity — идентификатор ресурса в том виде, в котором его указал
	// клиент (UUID или site_id); пусто для одиночных операций
	Entity string
	// Field — имя поля; пусто для нарушений уровня ресурса
	Field string
	// Message — человекочитаемое сообщение
	Message string
}

// ValidationError — совокупность нарушений, собранных за один проход.
// Reason определяет категорию: ErrValidation для содержательных нарушений,
// ErrAccessDenied для отказов доступа.
type ValidationError struct {
	Reason error
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: нарушений — %d", e.Reason, len(e.Issues))
}

// Unwrap позволяет errors.Is(err, ErrValidation) и errors.Is(err, ErrAccessDenied).
func (e *ValidationError) Unwrap() error { return e.Reason }

// newValidationError создаёт ошибку категории ErrValidation.
func newValidationError(issues []Issue) *ValidationError {
	return &ValidationError{Reason: ErrValidation, Issues: issues}
}

// newAccessError создаёт ошибку категории ErrAccessDenied.
func newAccessError(issues []Issue) *ValidationError {
	return &ValidationError{Reason: ErrAccessDenied, Issues: issues}
}
