package api

import "time"

// EntityEvent — полезная нагрузка событий entity-created, entity-updated
// и entity-deleted. Employee — авторитетный снимок после применения
// (nil для delete), Changes — примененный патч, если событие вызвано
// разреженным обновлением без конфликта. Клиентам следует доверять
// снимку, а не воспроизводить патч.
type EntityEvent struct {
	Employee *Employee      `json:"employee,omitempty"`
	Changes  *EmployeePatch `json:"changes,omitempty"`
	Conflict *ConflictInfo  `json:"conflict,omitempty"` // присутствует после авторазрешенного конфликта
	ID       string         `json:"id"`
	ClientID string         `json:"client_id"` // инициатор изменения
	Version  int64          `json:"version"`   // версия записи после изменения
}

// Коды ошибок в сообщениях error
const (
	CodeMalformedMessage   = "malformed_message"
	CodeValidationFailed   = "validation_failed"
	CodeNotFound           = "not_found"
	CodeDuplicateID        = "duplicate_id"
	CodeEmptyPatch         = "empty_patch"
	CodeUnknownTopic       = "unknown_topic"
	CodeUserChoiceRequired = "user_choice_required"
	CodeInternal           = "internal_error"
)

// ErrorMessage — адресная ошибка, отправляется только сессии-инициатору
type ErrorMessage struct {
	Code     string        `json:"code"`               // машинный код, см. Code* константы
	Message  string        `json:"message"`            // человекочитаемое описание
	Detail   string        `json:"detail,omitempty"`   // уточнение (например, имя поля)
	Conflict *ConflictInfo `json:"conflict,omitempty"` // оба снимка для user_choice_required
}

// Категории системных уведомлений
const (
	AlertPersistence = "persistence" // итоги периодической сверки с durable-хранилищем
	AlertConflict    = "conflict"    // конфликт ждет выбора пользователя
)

// SystemAlert — широковещательное уведомление в топик system/alerts
type SystemAlert struct {
	At        time.Time     `json:"at"`
	Category  string        `json:"category"` // см. Alert* константы
	Message   string        `json:"message"`
	Period    string        `json:"period,omitempty"`    // учетный период, к которому относится уведомление
	Applied   int           `json:"applied,omitempty"`   // применено записей при сверке
	Conflicts int           `json:"conflicts,omitempty"` // конфликтов обнаружено при сверке
	Conflict  *ConflictInfo `json:"conflict,omitempty"`  // детали для category=conflict
}

// SessionCreated — первое сообщение сервера после установки соединения
type SessionCreated struct {
	ClientID          string `json:"client_id"`
	ResumeToken       string `json:"resume_token"`       // JWT для восстановления сессии после обрыва
	HeartbeatInterval int64  `json:"heartbeat_interval"` // интервал ping в секундах
	Resumed           bool   `json:"resumed"`            // true, если подписки восстановлены по resume-токену
}

// SyncResponse — ответ на sync-request.
// Bootstrap=true означает, что журнал уже не покрывает since_version
// и клиенту отдан полный снимок вместо дельты.
type SyncResponse struct {
	SinceVersion   int64         `json:"since_version"`
	CurrentVersion int64         `json:"current_version"`
	Bootstrap      bool          `json:"bootstrap"`
	Employees      []Employee    `json:"employees,omitempty"` // полный снимок при bootstrap
	Changes        []ChangeEvent `json:"changes,omitempty"`   // дельта журнала иначе
}
