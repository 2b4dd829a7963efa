// Package store содержит авторитетное in-memory хранилище ростера.
// Одна карта под одним RWMutex: чтения конкурентны, каждая мутация
// эксклюзивна. Стор ведет два независимых счетчика: глобальную версию
// (порядок журнала изменений для catch-up) и версию каждой записи
// (optimistic lock). Наружу отдаются только защитные копии.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/validation"
)

// DefaultChangeLogSize емкость журнала изменений по умолчанию
const DefaultChangeLogSize = 512

// Store представляет версионируемое хранилище сотрудников.
type Store struct {
	employees map[string]*models.Employee
	log       *changeLog
	mu        sync.RWMutex
	version   int64 // глобальный счетчик, растет на каждой мутации
}

// New создает пустой стор с журналом заданной емкости.
// Неположительная емкость заменяется на DefaultChangeLogSize.
func New(logCapacity int) *Store {
	if logCapacity <= 0 {
		logCapacity = DefaultChangeLogSize
	}
	return &Store{
		employees: make(map[string]*models.Employee),
		log:       newChangeLog(logCapacity),
	}
}

// Create добавляет нового сотрудника с версией 1.
// Пустой ID заменяется свежим UUID. Существующий ID — ошибка ErrDuplicateID.
func (s *Store) Create(e *models.Employee, clientID string) (*models.Employee, error) {
	if e == nil {
		return nil, fmt.Errorf("create employee: %w", &validation.Error{Field: "employee", Message: "must not be nil"})
	}

	created := e.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	if err := validation.ValidateEmployee(created); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[created.ID]; exists {
		return nil, fmt.Errorf("create employee %s: %w", created.ID, ErrDuplicateID)
	}

	now := time.Now()
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	s.employees[created.ID] = created
	s.appendLog(models.OpCreate, created, clientID, now)

	return created.Clone(), nil
}

// Update применяет разреженный патч к записи с проверкой optimistic lock.
// expectedVersion=0 означает безусловное применение. Несовпадение версии
// возвращает *VersionConflictError с авторитетным снимком — точка обнаружения
// конфликта; дальше решает резолвер, не стор.
func (s *Store) Update(id string, patch *models.EmployeePatch, expectedVersion int64, clientID string) (*models.Employee, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update employee %s: %w", id, ErrEmptyPatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.employees[id]
	if !exists {
		return nil, fmt.Errorf("update employee %s: %w", id, ErrNotFound)
	}

	if expectedVersion != 0 && expectedVersion != existing.Version {
		return nil, &VersionConflictError{
			ID:       id,
			Expected: expectedVersion,
			Actual:   existing.Version,
			Remote:   existing.Clone(),
		}
	}

	candidate := existing.Clone()
	patch.ApplyTo(candidate)
	if err := validation.ValidateEmployee(candidate); err != nil {
		return nil, fmt.Errorf("update employee %s: %w", id, err)
	}

	now := time.Now()
	candidate.Version = existing.Version + 1
	candidate.UpdatedAt = now

	s.employees[id] = candidate
	s.appendLog(models.OpUpdate, candidate, clientID, now)

	return candidate.Clone(), nil
}

// Put устанавливает снимок записи как есть, без optimistic lock.
// Используется резолвером и мостом персистентности: версия и метки времени
// уже вычислены при слиянии. Отсутствующая запись добавляется.
func (s *Store) Put(e *models.Employee, clientID string) (*models.Employee, error) {
	if err := validation.ValidateEmployee(e); err != nil {
		return nil, fmt.Errorf("put employee: %w", err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("put employee: %w", ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op := models.OpUpdate
	if _, exists := s.employees[e.ID]; !exists {
		op = models.OpCreate
	}

	installed := e.Clone()
	s.employees[e.ID] = installed
	s.appendLog(op, installed, clientID, time.Now())

	return installed.Clone(), nil
}

// Delete удаляет запись и заносит удаление в журнал.
// Идентификаторы не переиспользуются.
func (s *Store) Delete(id, clientID string) (*models.ChangeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.employees[id]
	if !exists {
		return nil, fmt.Errorf("delete employee %s: %w", id, ErrNotFound)
	}

	delete(s.employees, id)

	s.version++
	entry := &models.ChangeEntry{
		Timestamp:     time.Now(),
		Op:            models.OpDelete,
		EntityID:      id,
		ClientID:      clientID,
		Version:       s.version,
		EntityVersion: existing.Version,
	}
	s.log.append(entry)

	return entry.Clone(), nil
}

// Get возвращает защитную копию записи.
func (s *Store) Get(id string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.employees[id]
	if !exists {
		return nil, fmt.Errorf("get employee %s: %w", id, ErrNotFound)
	}
	return e.Clone(), nil
}

// List возвращает копии записей, удовлетворяющих предикату,
// отсортированные по ID. nil-предикат возвращает все записи.
func (s *Store) List(pred func(*models.Employee) bool) []*models.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if pred == nil || pred(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListByPeriod возвращает записи одного планируемого периода.
func (s *Store) ListByPeriod(period string) []*models.Employee {
	return s.List(func(e *models.Employee) bool { return e.Period == period })
}

// ChangesSince возвращает удержанные записи журнала с глобальной версией
// строго больше version, в порядке возрастания.
func (s *Store) ChangesSince(version int64) []*models.ChangeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.since(version)
}

// Retains сообщает, покрывает ли журнал все изменения после version.
// false означает, что часть истории вытеснена и клиенту нужен полный снимок.
func (s *Store) Retains(version int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	oldest := s.log.oldestVersion()
	if oldest == 0 {
		// Журнал пуст: либо изменений не было, либо емкость нулевая.
		return version >= s.version
	}
	return version+1 >= oldest
}

// CurrentVersion возвращает текущую глобальную версию стора.
func (s *Store) CurrentVersion() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Count возвращает количество записей.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employees)
}

// Periods возвращает отсортированный список ключей периодов,
// встречающихся в ростере. Пустой период не включается.
func (s *Store) Periods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.employees {
		if e.Period != "" {
			seen[e.Period] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// appendLog увеличивает глобальную версию и заносит операцию в журнал.
// Вызывается только под эксклюзивной блокировкой.
func (s *Store) appendLog(op string, e *models.Employee, clientID string, ts time.Time) {
	s.version++
	s.log.append(&models.ChangeEntry{
		Timestamp:     ts,
		Op:            op,
		EntityID:      e.ID,
		ClientID:      clientID,
		Employee:      e.Clone(),
		Version:       s.version,
		EntityVersion: e.Version,
	})
}
