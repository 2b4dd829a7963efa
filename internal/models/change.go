package models

import "time"

// Операции журнала изменений
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEntry представляет запись в журнале изменений ростера.
// Version — глобальный счетчик стора (порядок для catch-up),
// EntityVersion — версия самой записи после операции. Это намеренно
// разные вещи: первый упорядочивает журнал, второй служит optimistic lock.
type ChangeEntry struct {
	Timestamp     time.Time `json:"timestamp"`          // Timestamp время операции
	Op            string    `json:"op"`                 // Op вид операции: create/update/delete
	EntityID      string    `json:"entity_id"`          // EntityID идентификатор сотрудника
	ClientID      string    `json:"client_id"`          // ClientID инициатор операции (пусто для системных)
	Employee      *Employee `json:"employee,omitempty"` // Employee снимок после операции; nil для delete
	Version       int64     `json:"version"`            // Version глобальная версия стора после операции
	EntityVersion int64     `json:"entity_version"`     // EntityVersion версия записи после операции
}

// Clone создает копию записи журнала вместе со снимком сотрудника.
func (c *ChangeEntry) Clone() *ChangeEntry {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Employee = c.Employee.Clone()
	return &clone
}
