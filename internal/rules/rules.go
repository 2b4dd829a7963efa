// Package rules проверяет ростер как целое: правила уровня смены,
// которые нельзя проверить на одной записи в момент мутации.
// Нарушения не блокируют изменения — ростер и с ними остается
// рабочим документом; они отдаются по запросу планировщику.
package rules

import (
	"fmt"
	"strings"

	"github.com/iudanet/shiftsync/internal/models"
)

// Имена правил в ответе проверки
const (
	RuleOvertime      = "overtime"
	RuleDuplicateName = "duplicate_name"
	RuleMissingRole   = "missing_role"
)

// Недельные лимиты часов по типу занятости
var hourCaps = map[string]int{
	models.EmploymentFullTime: 40,
	models.EmploymentPartTime: 20,
	models.EmploymentContract: 60,
}

// Violation — одно нарушение бизнес-правила
type Violation struct {
	Rule     string `json:"rule"`
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

// Check прогоняет снимок ростера через все правила.
// Порядок нарушений детерминирован: сначала построчные правила в порядке
// снимка, затем дубликаты имен. Пустой результат — ростер чист.
func Check(snapshot []*models.Employee) []Violation {
	var out []Violation

	for _, e := range snapshot {
		if limit, ok := hourCaps[e.EmploymentType]; ok && e.WeeklyHours > limit {
			out = append(out, Violation{
				Rule:     RuleOvertime,
				EntityID: e.ID,
				Name:     e.Name,
				Message: fmt.Sprintf("%d weekly hours exceed the %s cap of %d",
					e.WeeklyHours, e.EmploymentType, limit),
			})
		}
		if strings.TrimSpace(e.Role) == "" {
			out = append(out, Violation{
				Rule:     RuleMissingRole,
				EntityID: e.ID,
				Name:     e.Name,
				Message:  "employee has no role assigned",
			})
		}
	}

	out = append(out, duplicateNames(snapshot)...)
	return out
}

// duplicateNames находит сотрудников с совпадающими именами внутри снимка.
// Сравнение регистронезависимое, пробелы по краям не учитываются.
func duplicateNames(snapshot []*models.Employee) []Violation {
	seen := make(map[string]int, len(snapshot))
	for _, e := range snapshot {
		seen[normalizeName(e.Name)]++
	}

	var out []Violation
	for _, e := range snapshot {
		if seen[normalizeName(e.Name)] < 2 {
			continue
		}
		out = append(out, Violation{
			Rule:     RuleDuplicateName,
			EntityID: e.ID,
			Name:     e.Name,
			Message:  fmt.Sprintf("name %q is shared by multiple employees in this period", e.Name),
		})
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
