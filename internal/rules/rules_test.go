package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/models"
)

func employee(id, name, role, empType string, hours int) *models.Employee {
	return &models.Employee{
		ID:             id,
		Name:           name,
		Role:           role,
		EmploymentType: empType,
		Period:         "2026-W35",
		WeeklyHours:    hours,
	}
}

func TestCheck_CleanRoster(t *testing.T) {
	snapshot := []*models.Employee{
		employee("emp-1", "Alice", "cashier", models.EmploymentFullTime, 40),
		employee("emp-2", "Boris", "cook", models.EmploymentPartTime, 20),
	}

	assert.Empty(t, Check(snapshot))
}

func TestCheck_Overtime(t *testing.T) {
	tests := []struct {
		name     string
		empType  string
		hours    int
		violates bool
	}{
		{"full time at cap", models.EmploymentFullTime, 40, false},
		{"full time over cap", models.EmploymentFullTime, 41, true},
		{"part time over cap", models.EmploymentPartTime, 30, true},
		{"contract within cap", models.EmploymentContract, 55, false},
		{"contract over cap", models.EmploymentContract, 61, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := []*models.Employee{
				employee("emp-1", "Alice", "cashier", tt.empType, tt.hours),
			}

			violations := Check(snapshot)
			if !tt.violates {
				assert.Empty(t, violations)
				return
			}

			require.Len(t, violations, 1)
			assert.Equal(t, RuleOvertime, violations[0].Rule)
			assert.Equal(t, "emp-1", violations[0].EntityID)
			assert.Contains(t, violations[0].Message, tt.empType)
		})
	}
}

func TestCheck_MissingRole(t *testing.T) {
	snapshot := []*models.Employee{
		employee("emp-1", "Alice", "", models.EmploymentFullTime, 40),
		employee("emp-2", "Boris", "  ", models.EmploymentFullTime, 40),
		employee("emp-3", "Clara", "cook", models.EmploymentFullTime, 40),
	}

	violations := Check(snapshot)
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, RuleMissingRole, v.Rule)
	}
	assert.Equal(t, "emp-1", violations[0].EntityID)
	assert.Equal(t, "emp-2", violations[1].EntityID)
}

func TestCheck_DuplicateNames(t *testing.T) {
	snapshot := []*models.Employee{
		employee("emp-1", "Alice", "cashier", models.EmploymentFullTime, 40),
		employee("emp-2", "alice ", "cook", models.EmploymentPartTime, 15),
		employee("emp-3", "Boris", "cook", models.EmploymentFullTime, 40),
	}

	violations := Check(snapshot)
	require.Len(t, violations, 2)

	assert.Equal(t, RuleDuplicateName, violations[0].Rule)
	assert.Equal(t, "emp-1", violations[0].EntityID)
	assert.Equal(t, RuleDuplicateName, violations[1].Rule)
	assert.Equal(t, "emp-2", violations[1].EntityID)
}

// Построчные нарушения идут в порядке снимка, дубликаты — после них
func TestCheck_Ordering(t *testing.T) {
	snapshot := []*models.Employee{
		employee("emp-1", "Alice", "", models.EmploymentFullTime, 50),
		employee("emp-2", "Alice", "cook", models.EmploymentFullTime, 40),
	}

	violations := Check(snapshot)
	require.Len(t, violations, 4)

	assert.Equal(t, RuleOvertime, violations[0].Rule)
	assert.Equal(t, RuleMissingRole, violations[1].Rule)
	assert.Equal(t, RuleDuplicateName, violations[2].Rule)
	assert.Equal(t, "emp-1", violations[2].EntityID)
	assert.Equal(t, RuleDuplicateName, violations[3].Rule)
	assert.Equal(t, "emp-2", violations[3].EntityID)
}

func TestCheck_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Check(nil))
}
