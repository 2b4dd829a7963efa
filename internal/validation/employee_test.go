package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/models"
)

func validEmployee() *models.Employee {
	return &models.Employee{
		ID:             "emp-1",
		Name:           "Alice",
		Role:           "cashier",
		EmploymentType: models.EmploymentFullTime,
		Period:         "2026-W35",
		WeeklyHours:    40,
	}
}

func TestValidateEmployee_Valid(t *testing.T) {
	assert.NoError(t, ValidateEmployee(validEmployee()))
}

func TestValidateEmployee(t *testing.T) {
	tests := []struct {
		mutate    func(e *models.Employee)
		name      string
		wantField string
	}{
		{
			name:      "empty name",
			mutate:    func(e *models.Employee) { e.Name = "" },
			wantField: models.FieldName,
		},
		{
			name:      "whitespace name",
			mutate:    func(e *models.Employee) { e.Name = "   " },
			wantField: models.FieldName,
		},
		{
			name:      "name too long",
			mutate:    func(e *models.Employee) { e.Name = strings.Repeat("a", maxNameLength+1) },
			wantField: models.FieldName,
		},
		{
			name:      "unknown employment type",
			mutate:    func(e *models.Employee) { e.EmploymentType = "freelance" },
			wantField: models.FieldEmploymentType,
		},
		{
			name:      "negative hours",
			mutate:    func(e *models.Employee) { e.WeeklyHours = -1 },
			wantField: models.FieldWeeklyHours,
		},
		{
			name:      "too many hours",
			mutate:    func(e *models.Employee) { e.WeeklyHours = maxWeeklyHours + 1 },
			wantField: models.FieldWeeklyHours,
		},
		{
			name:      "bad period key",
			mutate:    func(e *models.Employee) { e.Period = "august" },
			wantField: models.FieldPeriod,
		},
		{
			name:      "week out of range",
			mutate:    func(e *models.Employee) { e.Period = "2026-W54" },
			wantField: models.FieldPeriod,
		},
		{
			name:      "notes too long",
			mutate:    func(e *models.Employee) { e.Notes = strings.Repeat("n", maxNotesLength+1) },
			wantField: models.FieldNotes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEmployee()
			tt.mutate(e)

			err := ValidateEmployee(e)
			require.Error(t, err)

			var vErr *Error
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestValidatePeriod_EmptyAllowed(t *testing.T) {
	assert.NoError(t, ValidatePeriod(""))
}

func TestValidateEmployee_Nil(t *testing.T) {
	assert.Error(t, ValidateEmployee(nil))
}
