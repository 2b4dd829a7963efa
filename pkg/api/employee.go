package api

import "time"

// Employee представляет запись ростера в wire-формате
type Employee struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	EmploymentType string    `json:"employment_type"`
	Period         string    `json:"period"`
	Notes          string    `json:"notes"`
	WeeklyHours    int       `json:"weekly_hours"`
	Version        int64     `json:"version"`
}

// EmployeePatch — разреженное обновление: поле применяется только если
// оно присутствует в JSON. Отсутствие поля и пустое значение различимы.
type EmployeePatch struct {
	Name           *string `json:"name,omitempty"`
	Role           *string `json:"role,omitempty"`
	EmploymentType *string `json:"employment_type,omitempty"`
	Period         *string `json:"period,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	WeeklyHours    *int    `json:"weekly_hours,omitempty"`
}

// Операции журнала изменений
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent — одна запись журнала изменений для догоняющей синхронизации
type ChangeEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Op            string    `json:"op"`                 // create | update | delete
	EntityID      string    `json:"entity_id"`          // id затронутой записи
	ClientID      string    `json:"client_id"`          // инициатор изменения
	Employee      *Employee `json:"employee,omitempty"` // снимок после изменения, nil для delete
	Version       int64     `json:"version"`            // глобальная версия журнала
	EntityVersion int64     `json:"entity_version"`     // версия записи после изменения
}

// FieldConflict описывает расхождение по одному полю
type FieldConflict struct {
	Field      string `json:"field"`
	Local      string `json:"local"`
	Remote     string `json:"remote"`
	Resolution string `json:"resolution"` // local_wins | remote_wins | pending
}

// ConflictInfo — итог разрешения конфликта, прикладывается к событию
// обновления или к ошибке user_choice_required
type ConflictInfo struct {
	ResolvedAt time.Time       `json:"resolved_at"`
	Strategy   string          `json:"strategy"`
	Rationale  string          `json:"rationale,omitempty"`
	Local      *Employee       `json:"local"`
	Remote     *Employee       `json:"remote"`
	Resolved   *Employee       `json:"resolved,omitempty"` // nil пока конфликт ждет выбора пользователя
	Conflicts  []FieldConflict `json:"conflicts,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}
