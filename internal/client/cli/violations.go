package cli

import (
	"fmt"
	"sort"

	"github.com/iudanet/shiftsync/internal/client/iocli"
	"github.com/iudanet/shiftsync/internal/client/state"
	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/rules"
	"github.com/iudanet/shiftsync/pkg/api"
)

type violationsView struct {
	Period     string
	Checked    int
	Violations []rules.Violation
}

// RunViolations прогоняет локальное зеркало через правила ростера.
// Работает офлайн: проверяется то, что зеркало видело последним.
func RunViolations(io iocli.IO, mirror *state.Mirror, args []string) error {
	var period string
	if len(args) > 0 {
		period = args[0]
	}

	employees, err := mirror.List(period)
	if err != nil {
		return fmt.Errorf("failed to list employees: %w", err)
	}

	return render(io, violationsTmpl, violationsView{
		Period:     period,
		Checked:    len(employees),
		Violations: checkRoster(employees, period),
	})
}

// checkRoster проверяет снимок правилами. Правила действуют внутри
// учетного периода, поэтому пустой period означает проверку каждого
// периода по отдельности: одинаковые имена в разных неделях — не
// дубликаты.
func checkRoster(employees []api.Employee, period string) []rules.Violation {
	if period != "" {
		return rules.Check(toModelSnapshot(employees))
	}

	byPeriod := make(map[string][]api.Employee)
	for _, e := range employees {
		byPeriod[e.Period] = append(byPeriod[e.Period], e)
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	var out []rules.Violation
	for _, p := range periods {
		out = append(out, rules.Check(toModelSnapshot(byPeriod[p]))...)
	}
	return out
}

func toModelSnapshot(employees []api.Employee) []*models.Employee {
	out := make([]*models.Employee, 0, len(employees))
	for _, e := range employees {
		out = append(out, &models.Employee{
			CreatedAt:      e.CreatedAt,
			UpdatedAt:      e.UpdatedAt,
			ID:             e.ID,
			Name:           e.Name,
			Role:           e.Role,
			EmploymentType: e.EmploymentType,
			Period:         e.Period,
			Notes:          e.Notes,
			WeeklyHours:    e.WeeklyHours,
			Version:        e.Version,
		})
	}
	return out
}
