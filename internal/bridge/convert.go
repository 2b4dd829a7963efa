package bridge

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
