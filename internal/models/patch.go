package models

// EmployeePatch представляет разреженный набор изменений полей сотрудника.
// Каждое поле — указатель: nil означает "поле не тронуто", не-nil — "установить
// значение" (включая пустое). Семантика present-vs-absent принципиальна:
// одновременные правки непересекающихся полей не требуют разрешения конфликта.
type EmployeePatch struct {
	Name           *string `json:"name,omitempty"`
	Role           *string `json:"role,omitempty"`
	EmploymentType *string `json:"employment_type,omitempty"`
	WeeklyHours    *int    `json:"weekly_hours,omitempty"`
	Period         *string `json:"period,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// IsEmpty сообщает, что патч не содержит ни одного поля.
func (p *EmployeePatch) IsEmpty() bool {
	return p == nil || (p.Name == nil && p.Role == nil && p.EmploymentType == nil &&
		p.WeeklyHours == nil && p.Period == nil && p.Notes == nil)
}

// Fields возвращает имена присутствующих полей в каноническом порядке.
func (p *EmployeePatch) Fields() []string {
	if p == nil {
		return nil
	}
	var out []string
	if p.Name != nil {
		out = append(out, FieldName)
	}
	if p.Role != nil {
		out = append(out, FieldRole)
	}
	if p.EmploymentType != nil {
		out = append(out, FieldEmploymentType)
	}
	if p.WeeklyHours != nil {
		out = append(out, FieldWeeklyHours)
	}
	if p.Period != nil {
		out = append(out, FieldPeriod)
	}
	if p.Notes != nil {
		out = append(out, FieldNotes)
	}
	return out
}

// ApplyTo применяет присутствующие поля патча к записи.
// Отсутствующие поля не трогаются (no-op-on-absent).
func (p *EmployeePatch) ApplyTo(e *Employee) {
	if p == nil || e == nil {
		return
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Role != nil {
		e.Role = *p.Role
	}
	if p.EmploymentType != nil {
		e.EmploymentType = *p.EmploymentType
	}
	if p.WeeklyHours != nil {
		e.WeeklyHours = *p.WeeklyHours
	}
	if p.Period != nil {
		e.Period = *p.Period
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}
