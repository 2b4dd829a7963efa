package resolver

import (
	"time"

	"github.com/iudanet/shiftsync/internal/models"
)

// mergeEmployees выполняет пофилдовое слияние локального намерения с
// авторитетным снимком. Правила:
//  1. поле тронуто только одной стороной — берется ее значение (объединение
//     непересекающихся правок, конфликт не фиксируется);
//  2. поле тронуто обеими сторонами, ровно одно значение непустое — берется
//     непустое;
//  3. обе стороны записали разные непустые значения — побеждает авторитетное
//     (remote_wins в деталях конфликта).
//
// Итоговая версия = max(local, remote)+1, UpdatedAt — более поздний из двух.
// ID и CreatedAt берутся из авторитетного снимка: они неизменяемы.
func mergeEmployees(c Conflict) (*models.Employee, []models.FieldConflict) {
	resolved := c.Remote.Clone()
	localChanged := c.localChangedSet()
	remoteChanged := c.remoteChangedSet()

	var conflicts []models.FieldConflict
	for _, field := range models.FieldNames() {
		lv := c.Local.Field(field)
		rv := c.Remote.Field(field)
		if lv == rv {
			continue
		}

		localTouched := localChanged[field]
		remoteTouched := remoteChanged[field]

		switch {
		case localTouched && !remoteTouched:
			// Непересекающаяся правка: локальное значение входит в объединение
			_ = resolved.SetField(field, lv)
		case remoteTouched && !localTouched:
			// Авторитетное значение уже в resolved
		default:
			// Обе стороны тронули поле (или происхождение расхождения
			// неизвестно — трактуется как пересечение).
			if lv != "" && rv == "" {
				_ = resolved.SetField(field, lv)
				conflicts = append(conflicts, models.FieldConflict{
					Field:      field,
					Local:      lv,
					Remote:     rv,
					Resolution: models.ResolutionLocalWins,
				})
				continue
			}
			conflicts = append(conflicts, models.FieldConflict{
				Field:      field,
				Local:      lv,
				Remote:     rv,
				Resolution: models.ResolutionRemoteWins,
			})
		}
	}

	resolved.Version = maxVersion(c.Local, c.Remote) + 1
	resolved.UpdatedAt = laterTime(c.Local.UpdatedAt, c.Remote.UpdatedAt)

	return resolved, conflicts
}

func maxVersion(a, b *models.Employee) int64 {
	if a.Version > b.Version {
		return a.Version
	}
	return b.Version
}

func laterTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
