package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iudanet/shiftsync/internal/models"
)

const (
	maxNameLength  = 100
	maxNotesLength = 500
	maxWeeklyHours = 80
)

// Формат ключа периода: ISO-неделя, например "2026-W35"
var periodRegex = regexp.MustCompile(`^\d{4}-W(0[1-9]|[1-4][0-9]|5[0-3])$`)

// Error описывает нарушение правила на уровне одного поля.
// Поле и сообщение возвращаются клиенту как есть.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateName проверяет имя сотрудника
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &Error{Field: models.FieldName, Message: "must not be empty"}
	}
	if len(name) > maxNameLength {
		return &Error{
			Field:   models.FieldName,
			Message: fmt.Sprintf("must be at most %d characters long", maxNameLength),
		}
	}
	return nil
}

// ValidateEmploymentType проверяет тип занятости по закрытому перечислению
func ValidateEmploymentType(t string) error {
	if !models.KnownEmploymentType(t) {
		return &Error{
			Field: models.FieldEmploymentType,
			Message: fmt.Sprintf("unknown employment type %q, expected one of: %s, %s, %s",
				t, models.EmploymentFullTime, models.EmploymentPartTime, models.EmploymentContract),
		}
	}
	return nil
}

// ValidateWeeklyHours проверяет недельные часы
func ValidateWeeklyHours(hours int) error {
	if hours < 0 {
		return &Error{Field: models.FieldWeeklyHours, Message: "must not be negative"}
	}
	if hours > maxWeeklyHours {
		return &Error{
			Field:   models.FieldWeeklyHours,
			Message: fmt.Sprintf("must be at most %d", maxWeeklyHours),
		}
	}
	return nil
}

// ValidatePeriod проверяет ключ периода. Пустой период допустим:
// запись еще не привязана к конкретной неделе.
func ValidatePeriod(period string) error {
	if period == "" {
		return nil
	}
	if !periodRegex.MatchString(period) {
		return &Error{
			Field:   models.FieldPeriod,
			Message: fmt.Sprintf("invalid period key %q, expected ISO week like 2026-W35", period),
		}
	}
	return nil
}

// ValidateNotes проверяет заметки
func ValidateNotes(notes string) error {
	if len(notes) > maxNotesLength {
		return &Error{
			Field:   models.FieldNotes,
			Message: fmt.Sprintf("must be at most %d characters long", maxNotesLength),
		}
	}
	return nil
}

// ValidateEmployee проверяет запись сотрудника целиком.
// Вызывается на создании и после применения патча, поэтому проверяет
// итоговое состояние, а не отдельные изменения.
func ValidateEmployee(e *models.Employee) error {
	if e == nil {
		return &Error{Field: "employee", Message: "must not be nil"}
	}
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if err := ValidateEmploymentType(e.EmploymentType); err != nil {
		return err
	}
	if err := ValidateWeeklyHours(e.WeeklyHours); err != nil {
		return err
	}
	if err := ValidatePeriod(e.Period); err != nil {
		return err
	}
	return ValidateNotes(e.Notes)
}
