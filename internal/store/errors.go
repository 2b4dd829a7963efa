package store

import (
	"errors"
	"fmt"

	"github.com/iudanet/shiftsync/internal/models"
)

// Ошибки стора
var (
	// ErrNotFound запись с таким ID отсутствует
	ErrNotFound = errors.New("employee not found")

	// ErrDuplicateID запись с таким ID уже существует;
	// вызывающая сторона должна сгенерировать новый идентификатор
	ErrDuplicateID = errors.New("duplicate employee id")

	// ErrEmptyPatch патч не содержит ни одного поля
	ErrEmptyPatch = errors.New("empty patch")
)

// VersionConflictError возникает, когда expectedVersion мутации не совпадает
// с текущей версией записи. Это ожидаемый исход optimistic lock, а не сбой:
// вызывающая сторона передает Remote в резолвер конфликтов.
type VersionConflictError struct {
	Remote   *models.Employee // авторитетный снимок на момент проверки
	ID       string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on employee %s: expected %d, actual %d",
		e.ID, e.Expected, e.Actual)
}
