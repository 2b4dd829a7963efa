package models

import (
	"fmt"
	"strconv"
	"time"
)

// Employee представляет сотрудника в общем ростере смен.
// Единица синхронизации: каждое успешное изменение строго увеличивает Version,
// ID и CreatedAt неизменяемы после создания.
type Employee struct {
	CreatedAt      time.Time `json:"created_at"`      // CreatedAt время создания записи
	UpdatedAt      time.Time `json:"updated_at"`      // UpdatedAt время последнего изменения
	ID             string    `json:"id"`              // ID уникальный идентификатор (UUID)
	Name           string    `json:"name"`            // Name имя сотрудника
	Role           string    `json:"role"`            // Role роль в смене (например, "cashier", "cook")
	EmploymentType string    `json:"employment_type"` // EmploymentType тип занятости (закрытое перечисление)
	Period         string    `json:"period"`          // Period ключ планируемого периода (например, "2026-W35")
	Notes          string    `json:"notes"`           // Notes произвольные заметки планировщика
	WeeklyHours    int       `json:"weekly_hours"`    // WeeklyHours запланированные часы в неделю
	Version        int64     `json:"version"`         // Version монотонно растущая версия записи
}

// EmploymentType константы для типов занятости
const (
	EmploymentFullTime = "full_time"
	EmploymentPartTime = "part_time"
	EmploymentContract = "contract"
)

// KnownEmploymentType проверяет, входит ли значение в закрытое перечисление.
func KnownEmploymentType(t string) bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract:
		return true
	}
	return false
}

// Clone создает глубокую копию записи сотрудника
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Изменяемые поля сотрудника в каноническом порядке.
// Порядок фиксирован: от него зависит детерминизм пофилдового слияния.
var fieldNames = []string{
	FieldName,
	FieldRole,
	FieldEmploymentType,
	FieldWeeklyHours,
	FieldPeriod,
	FieldNotes,
}

// Имена изменяемых полей в wire-формате
const (
	FieldName           = "name"
	FieldRole           = "role"
	FieldEmploymentType = "employment_type"
	FieldWeeklyHours    = "weekly_hours"
	FieldPeriod         = "period"
	FieldNotes          = "notes"
)

// FieldNames возвращает копию списка изменяемых полей в каноническом порядке.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Field возвращает строковое представление изменяемого поля.
// Неизвестное имя возвращает пустую строку: вызывающие стороны работают
// только со списком FieldNames.
func (e *Employee) Field(name string) string {
	switch name {
	case FieldName:
		return e.Name
	case FieldRole:
		return e.Role
	case FieldEmploymentType:
		return e.EmploymentType
	case FieldWeeklyHours:
		if e.WeeklyHours == 0 {
			return ""
		}
		return strconv.Itoa(e.WeeklyHours)
	case FieldPeriod:
		return e.Period
	case FieldNotes:
		return e.Notes
	}
	return ""
}

// SetField устанавливает изменяемое поле из строкового представления.
func (e *Employee) SetField(name, value string) error {
	switch name {
	case FieldName:
		e.Name = value
	case FieldRole:
		e.Role = value
	case FieldEmploymentType:
		e.EmploymentType = value
	case FieldWeeklyHours:
		if value == "" {
			e.WeeklyHours = 0
			return nil
		}
		hours, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid weekly_hours value %q: %w", value, err)
		}
		e.WeeklyHours = hours
	case FieldPeriod:
		e.Period = value
	case FieldNotes:
		e.Notes = value
	default:
		return fmt.Errorf("unknown employee field %q", name)
	}
	return nil
}
