// Package api содержит wire-контракт ShiftSync: конверт сообщения,
// типы сообщений, топики подписок и формы полезной нагрузки.
// Пакет намеренно не зависит от внутренних пакетов сервера, чтобы
// сторонние клиенты могли импортировать только его.
package api

import (
	"encoding/json"
	"fmt"
)

// Envelope — единый конверт для всех сообщений в обе стороны.
// Type определяет форму Payload; неизвестный Type получатель
// игнорирует (сервер логирует и продолжает обслуживание).
type Envelope struct {
	Type    string          `json:"type"`              // тип сообщения, см. Msg* константы
	Payload json.RawMessage `json:"payload,omitempty"` // полезная нагрузка, форма зависит от Type
}

// Типы сообщений клиент → сервер
const (
	MsgEntityCreate = "entity-create"
	MsgEntityUpdate = "entity-update"
	MsgEntityDelete = "entity-delete"
	MsgSubscribe    = "subscribe"
	MsgUnsubscribe  = "unsubscribe"
	MsgSyncRequest  = "sync-request"
	MsgPing         = "ping"
)

// Типы сообщений сервер → клиент
const (
	MsgEntityCreated  = "entity-created"
	MsgEntityUpdated  = "entity-updated"
	MsgEntityDeleted  = "entity-deleted"
	MsgError          = "error"
	MsgSystemAlert    = "system-alert"
	MsgPong           = "pong"
	MsgSessionCreated = "session-created"
	MsgSyncResponse   = "sync-response"
)

// Топики подписок
const (
	TopicEmployeesCreated = "employees/created"
	TopicEmployeesUpdated = "employees/updated"
	TopicEmployeesDeleted = "employees/deleted"
	TopicSystemAlerts     = "system/alerts"
)

// KnownTopic проверяет, входит ли топик в фиксированный набор.
func KnownTopic(topic string) bool {
	switch topic {
	case TopicEmployeesCreated, TopicEmployeesUpdated, TopicEmployeesDeleted, TopicSystemAlerts:
		return true
	}
	return false
}

// Encode упаковывает полезную нагрузку в конверт и сериализует его.
// nil-payload дает конверт без поля payload (ping/pong).
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return data, nil
}

// Decode распаковывает полезную нагрузку конверта в v.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("message %s has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}
