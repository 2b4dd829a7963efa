package models

import "time"

// Исходы пофилдового разрешения конфликта
const (
	ResolutionLocalWins  = "local_wins"
	ResolutionRemoteWins = "remote_wins"
	ResolutionPending    = "pending"
)

// FieldConflict описывает расхождение по одному полю:
// что хотел клиент, что лежит в авторитетном сторе и чья версия победила.
type FieldConflict struct {
	Field      string `json:"field"`
	Local      string `json:"local"`
	Remote     string `json:"remote"`
	Resolution string `json:"resolution"`
}

// ConflictRecord представляет результат разрешения конфликта версий.
// Remote — авторитетный снимок стора, Local — намерение клиента,
// Resolved — итоговый снимок (nil, когда стратегия отказалась решать
// и требуется выбор пользователя). Confidence и Rationale заполняются
// только эвристическим авторезолвером.
type ConflictRecord struct {
	ResolvedAt time.Time       `json:"resolved_at"`
	Strategy   string          `json:"strategy"`
	Rationale  string          `json:"rationale,omitempty"`
	Local      *Employee       `json:"local"`
	Remote     *Employee       `json:"remote"`
	Resolved   *Employee       `json:"resolved,omitempty"`
	Conflicts  []FieldConflict `json:"conflicts,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}
