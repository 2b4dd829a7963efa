package coordinator

import (
	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/pkg/api"
)

func toAPIEmployee(e *models.Employee) *api.Employee {
	if e == nil {
		return nil
	}
	return &api.Employee{
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
	}
}

// fromAPIEmployee переносит только пользовательские поля: версию и метки
// времени назначает стор
func fromAPIEmployee(w *api.Employee) *models.Employee {
	return &models.Employee{
		ID:             w.ID,
		Name:           w.Name,
		Role:           w.Role,
		EmploymentType: w.EmploymentType,
		Period:         w.Period,
		Notes:          w.Notes,
		WeeklyHours:    w.WeeklyHours,
	}
}

func fromAPIPatch(p *api.EmployeePatch) *models.EmployeePatch {
	if p == nil {
		return nil
	}
	return &models.EmployeePatch{
		Name:           p.Name,
		Role:           p.Role,
		EmploymentType: p.EmploymentType,
		WeeklyHours:    p.WeeklyHours,
		Period:         p.Period,
		Notes:          p.Notes,
	}
}

func toAPIChange(entry *models.ChangeEntry) api.ChangeEvent {
	return api.ChangeEvent{
		Timestamp:     entry.Timestamp,
		Op:            entry.Op,
		EntityID:      entry.EntityID,
		ClientID:      entry.ClientID,
		Employee:      toAPIEmployee(entry.Employee),
		Version:       entry.Version,
		EntityVersion: entry.EntityVersion,
	}
}

func toAPIConflict(r *models.ConflictRecord) *api.ConflictInfo {
	if r == nil {
		return nil
	}

	info := &api.ConflictInfo{
		ResolvedAt: r.ResolvedAt,
		Strategy:   r.Strategy,
		Rationale:  r.Rationale,
		Local:      toAPIEmployee(r.Local),
		Remote:     toAPIEmployee(r.Remote),
		Resolved:   toAPIEmployee(r.Resolved),
		Confidence: r.Confidence,
	}

	for _, fc := range r.Conflicts {
		info.Conflicts = append(info.Conflicts, api.FieldConflict{
			Field:      fc.Field,
			Local:      fc.Local,
			Remote:     fc.Remote,
			Resolution: fc.Resolution,
		})
	}

	return info
}
