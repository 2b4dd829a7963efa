package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/rules"
	"github.com/iudanet/shiftsync/pkg/api"
)

func TestCheckRoster_SinglePeriod(t *testing.T) {
	overtime := mirrorEmployee("emp-1", "Alice", "2026-W35", 1)
	overtime.WeeklyHours = 55

	noRole := mirrorEmployee("emp-2", "Bob", "2026-W35", 1)
	noRole.Role = ""

	violations := checkRoster([]api.Employee{overtime, noRole}, "2026-W35")

	require.Len(t, violations, 2)
	assert.Equal(t, rules.RuleOvertime, violations[0].Rule)
	assert.Equal(t, "emp-1", violations[0].EntityID)
	assert.Equal(t, rules.RuleMissingRole, violations[1].Rule)
	assert.Equal(t, "emp-2", violations[1].EntityID)
}

func TestCheckRoster_GroupsByPeriod(t *testing.T) {
	// Одинаковые имена в разных неделях — не дубликаты
	employees := []api.Employee{
		mirrorEmployee("emp-1", "Alice", "2026-W35", 1),
		mirrorEmployee("emp-2", "Alice", "2026-W36", 1),
	}
	assert.Empty(t, checkRoster(employees, ""))

	// Внутри одной недели — дубликаты, по нарушению на каждого
	employees = append(employees, mirrorEmployee("emp-3", "alice ", "2026-W35", 1))
	violations := checkRoster(employees, "")

	require.Len(t, violations, 2)
	assert.Equal(t, rules.RuleDuplicateName, violations[0].Rule)
	assert.Equal(t, rules.RuleDuplicateName, violations[1].Rule)
}

func TestRunViolations(t *testing.T) {
	io := &fakeIO{}
	mirror := newTestMirror(t)

	overtime := mirrorEmployee("emp-1", "Alice", "2026-W35", 1)
	overtime.WeeklyHours = 60
	require.NoError(t, mirror.Upsert(overtime))
	require.NoError(t, mirror.Upsert(mirrorEmployee("emp-2", "Bob", "2026-W35", 1)))

	require.NoError(t, RunViolations(io, mirror, []string{"2026-W35"}))

	out := io.out.String()
	assert.Contains(t, out, "=== Rule Violations for 2026-W35 ===")
	assert.Contains(t, out, "Found 1 violation(s) across 2 employee(s):")
	assert.Contains(t, out, "[overtime] Alice (emp-1):")
	assert.Contains(t, out, "60 weekly hours exceed the full_time cap of 40")
}

func TestRunViolations_CleanRoster(t *testing.T) {
	io := &fakeIO{}
	mirror := newTestMirror(t)
	require.NoError(t, mirror.Upsert(mirrorEmployee("emp-1", "Alice", "2026-W35", 1)))

	require.NoError(t, RunViolations(io, mirror, nil))

	assert.Contains(t, io.out.String(), "No violations found across 1 employee(s).")
}
