package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate проверяет структурную корректность входящих сообщений.
// Бизнес-правила (формат периода, лимиты часов) проверяет сервер.
var validate = validator.New()

// EntityCreateRequest — запрос на создание записи ростера.
// ID опционален: пустой id сервер заменяет сгенерированным UUID.
// Version, CreatedAt и UpdatedAt входной записи игнорируются.
type EntityCreateRequest struct {
	Employee Employee `json:"employee" validate:"required"`
}

// Validate проверяет форму запроса
func (r *EntityCreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid entity-create payload: %w", err)
	}
	if r.Employee.Name == "" {
		return fmt.Errorf("invalid entity-create payload: employee name is required")
	}
	return nil
}

// EntityUpdateRequest — запрос на разреженное обновление записи.
// ExpectedVersion — версия записи, которую клиент видел последней;
// ноль отключает optimistic lock (безусловное применение).
type EntityUpdateRequest struct {
	ID              string        `json:"id" validate:"required"`
	Changes         EmployeePatch `json:"changes"`
	ExpectedVersion int64         `json:"expected_version" validate:"gte=0"`
}

// Validate проверяет форму запроса
func (r *EntityUpdateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid entity-update payload: %w", err)
	}
	return nil
}

// EntityDeleteRequest — запрос на удаление записи
type EntityDeleteRequest struct {
	ID string `json:"id" validate:"required"`
}

// Validate проверяет форму запроса
func (r *EntityDeleteRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid entity-delete payload: %w", err)
	}
	return nil
}

// SubscribeRequest — подписка на один топик
type SubscribeRequest struct {
	Topic string `json:"topic" validate:"required"`
}

// Validate проверяет форму запроса и известность топика
func (r *SubscribeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid subscribe payload: %w", err)
	}
	if !KnownTopic(r.Topic) {
		return fmt.Errorf("unknown topic %q", r.Topic)
	}
	return nil
}

// UnsubscribeRequest — отписка от одного топика
type UnsubscribeRequest struct {
	Topic string `json:"topic" validate:"required"`
}

// Validate проверяет форму запроса
func (r *UnsubscribeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid unsubscribe payload: %w", err)
	}
	return nil
}

// SyncRequest — запрос догоняющей синхронизации.
// SinceVersion — последняя глобальная версия, которую клиент видел;
// ноль означает полный bootstrap.
type SyncRequest struct {
	SinceVersion int64 `json:"since_version" validate:"gte=0"`
}

// Validate проверяет форму запроса
func (r *SyncRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid sync-request payload: %w", err)
	}
	return nil
}
