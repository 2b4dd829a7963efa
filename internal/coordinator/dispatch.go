package coordinator

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/internal/validation"
	"github.com/iudanet/shiftsync/pkg/api"
)

// readLoop читает кадры до ошибки соединения. Искаженные сообщения
// получают адресную ошибку и не прерывают сессию; неизвестные типы
// логируются и пропускаются.
func (c *Coordinator) readLoop(cs *connState) {
	defer c.teardown(cs, "connection_closed")

	cs.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := cs.conn.ReadMessage()
		if err != nil {
			return
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(cs, api.CodeMalformedMessage, "message is not a valid envelope", err.Error())
			continue
		}

		c.dispatch(cs, &env)
	}
}

func (c *Coordinator) dispatch(cs *connState, env *api.Envelope) {
	switch env.Type {
	case api.MsgEntityCreate:
		c.handleCreate(cs, env)
	case api.MsgEntityUpdate:
		c.handleUpdate(cs, env)
	case api.MsgEntityDelete:
		c.handleDelete(cs, env)
	case api.MsgSubscribe:
		c.handleSubscribe(cs, env)
	case api.MsgUnsubscribe:
		c.handleUnsubscribe(cs, env)
	case api.MsgSyncRequest:
		c.handleSyncRequest(cs, env)
	case api.MsgPing:
		c.registry.Heartbeat(cs.clientID)
		c.sendTo(cs, api.MsgPong, nil)
	default:
		c.logger.Warn("unknown message type ignored",
			"type", env.Type,
			"client_id", cs.clientID,
		)
	}
}

func (c *Coordinator) handleCreate(cs *connState, env *api.Envelope) {
	var req api.EntityCreateRequest
	if err := env.Decode(&req); err != nil {
		c.sendError(cs, api.CodeMalformedMessage, "invalid entity-create payload", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		c.sendError(cs, api.CodeValidationFailed, "entity-create rejected", err.Error())
		return
	}

	created, err := c.store.Create(fromAPIEmployee(&req.Employee), cs.clientID)
	if err != nil {
		c.metrics.MutationObserved("create", "rejected")
		c.sendStoreError(cs, err)
		return
	}
	c.metrics.MutationObserved("create", "applied")

	event := api.EntityEvent{
		Employee: toAPIEmployee(created),
		ID:       created.ID,
		ClientID: cs.clientID,
		Version:  created.Version,
	}
	c.sendTo(cs, api.MsgEntityCreated, event)
	c.broadcast(api.TopicEmployeesCreated, api.MsgEntityCreated, event, cs.clientID)
}

func (c *Coordinator) handleUpdate(cs *connState, env *api.Envelope) {
	var req api.EntityUpdateRequest
	if err := env.Decode(&req); err != nil {
		c.sendError(cs, api.CodeMalformedMessage, "invalid entity-update payload", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		c.sendError(cs, api.CodeValidationFailed, "entity-update rejected", err.Error())
		return
	}

	patch := fromAPIPatch(&req.Changes)

	updated, err := c.store.Update(req.ID, patch, req.ExpectedVersion, cs.clientID)

	var conflict *store.VersionConflictError
	if errors.As(err, &conflict) {
		c.resolveConflict(cs, req, patch, conflict)
		return
	}
	if err != nil {
		c.metrics.MutationObserved("update", "rejected")
		c.sendStoreError(cs, err)
		return
	}
	c.metrics.MutationObserved("update", "applied")

	event := api.EntityEvent{
		Employee: toAPIEmployee(updated),
		Changes:  &req.Changes,
		ID:       updated.ID,
		ClientID: cs.clientID,
		Version:  updated.Version,
	}
	c.sendTo(cs, api.MsgEntityUpdated, event)
	c.broadcast(api.TopicEmployeesUpdated, api.MsgEntityUpdated, event, cs.clientID)
}

// resolveConflict — путь optimistic-lock конфликта. Намерение клиента
// восстанавливается как "авторитетный снимок + его патч", происхождение
// удаленных правок вычисляется по журналу изменений, решение принимает
// резолвер.
func (c *Coordinator) resolveConflict(cs *connState, req api.EntityUpdateRequest, patch *models.EmployeePatch, vc *store.VersionConflictError) {
	local := vc.Remote.Clone()
	patch.ApplyTo(local)

	remoteChanged, divergedAt := c.remoteHistory(req.ID, req.ExpectedVersion, vc.Remote)

	record, err := c.resolver.Resolve(resolver.Conflict{
		Local:         local,
		Remote:        vc.Remote,
		LocalChanged:  patch.Fields(),
		RemoteChanged: remoteChanged,
		DivergedAt:    divergedAt,
	})

	if errors.Is(err, resolver.ErrUserChoiceRequired) {
		c.metrics.MutationObserved("update", "user_choice")
		c.metrics.ConflictResolved(record.Strategy)
		c.sendTo(cs, api.MsgError, api.ErrorMessage{
			Code:     api.CodeUserChoiceRequired,
			Message:  "concurrent edit requires user choice",
			Conflict: toAPIConflict(record),
		})
		return
	}
	if err != nil {
		c.metrics.MutationObserved("update", "rejected")
		c.logger.Error("conflict resolution failed",
			"entity_id", req.ID,
			"client_id", cs.clientID,
			"error", err,
		)
		c.sendError(cs, api.CodeInternal, "conflict resolution failed", err.Error())
		return
	}

	c.metrics.ConflictResolved(record.Strategy)
	if record.Confidence > 0 {
		c.metrics.ConfidenceObserved(record.Confidence)
	}

	// FirstWriterWins: авторитетное состояние не меняется, подписчикам
	// рассылать нечего — инициатор получает актуальный снимок и запись
	// о конфликте
	if record.Strategy == string(resolver.StrategyFirstWriterWins) {
		c.metrics.MutationObserved("update", "superseded")
		c.sendTo(cs, api.MsgEntityUpdated, api.EntityEvent{
			Employee: toAPIEmployee(record.Resolved),
			Conflict: toAPIConflict(record),
			ID:       req.ID,
			ClientID: cs.clientID,
			Version:  record.Resolved.Version,
		})
		return
	}

	installed, err := c.store.Put(record.Resolved, cs.clientID)
	if err != nil {
		c.metrics.MutationObserved("update", "rejected")
		c.sendStoreError(cs, err)
		return
	}
	c.metrics.MutationObserved("update", "merged")

	// Инициатору — событие с записью о конфликте, остальным — обычное
	// entity-updated
	c.sendTo(cs, api.MsgEntityUpdated, api.EntityEvent{
		Employee: toAPIEmployee(installed),
		Conflict: toAPIConflict(record),
		ID:       installed.ID,
		ClientID: cs.clientID,
		Version:  installed.Version,
	})
	c.broadcast(api.TopicEmployeesUpdated, api.MsgEntityUpdated, api.EntityEvent{
		Employee: toAPIEmployee(installed),
		ID:       installed.ID,
		ClientID: cs.clientID,
		Version:  installed.Version,
	}, cs.clientID)
}

// remoteHistory восстанавливает по журналу, какие поля записи изменились
// на удаленной стороне после версии, от которой отталкивался клиент.
// Если журнал уже не хранит базовую версию, происхождение считается
// неизвестным (nil) и резолвер трактует все расхождения как пересечение.
func (c *Coordinator) remoteHistory(id string, expectedVersion int64, current *models.Employee) ([]string, time.Time) {
	var base *models.Employee
	var divergedAt time.Time

	for _, entry := range c.store.ChangesSince(0) {
		if entry.EntityID != id || entry.Employee == nil {
			continue
		}
		if entry.EntityVersion == expectedVersion {
			base = entry.Employee
			continue
		}
		if base != nil && divergedAt.IsZero() && entry.EntityVersion > expectedVersion {
			divergedAt = entry.Timestamp
		}
	}

	if base == nil {
		return nil, current.UpdatedAt
	}
	if divergedAt.IsZero() {
		divergedAt = current.UpdatedAt
	}

	var changed []string
	for _, field := range models.FieldNames() {
		if base.Field(field) != current.Field(field) {
			changed = append(changed, field)
		}
	}
	return changed, divergedAt
}

func (c *Coordinator) handleDelete(cs *connState, env *api.Envelope) {
	var req api.EntityDeleteRequest
	if err := env.Decode(&req); err != nil {
		c.sendError(cs, api.CodeMalformedMessage, "invalid entity-delete payload", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		c.sendError(cs, api.CodeValidationFailed, "entity-delete rejected", err.Error())
		return
	}

	entry, err := c.store.Delete(req.ID, cs.clientID)
	if err != nil {
		c.metrics.MutationObserved("delete", "rejected")
		c.sendStoreError(cs, err)
		return
	}
	c.metrics.MutationObserved("delete", "applied")

	event := api.EntityEvent{
		ID:       req.ID,
		ClientID: cs.clientID,
		Version:  entry.EntityVersion,
	}
	c.sendTo(cs, api.MsgEntityDeleted, event)
	c.broadcast(api.TopicEmployeesDeleted, api.MsgEntityDeleted, event, cs.clientID)
}

func (c *Coordinator) handleSubscribe(cs *connState, env *api.Envelope) {
	var req api.SubscribeRequest
	if err := env.Decode(&req); err != nil {
		c.sendError(cs, api.CodeMalformedMessage, "invalid subscribe payload", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		c.sendError(cs, api.CodeUnknownTopic, "subscribe rejected", err.Error())
		return
	}

	if err := c.registry.Subscribe(cs.clientID, req.Topic); err != nil {
		c.sendError(cs, api.CodeInternal, "subscribe failed", err.Error())
		return
	}
	cs.subscribe(req.Topic)
}

func (c *Coordinator) handleUnsubscribe(cs *connState, env *api.Envelope) {
	var req api.UnsubscribeRequest
	if err := env.Decode(&req); err != nil {
		c.sendError(cs, api.CodeMalformedMessage, "invalid unsubscribe payload", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		c.sendError(cs, api.CodeValidationFailed, "unsubscribe rejected", err.Error())
		return
	}

	if err := c.registry.Unsubscribe(cs.clientID, req.Topic); err != nil {
		c.sendError(cs, api.CodeInternal, "unsubscribe failed", err.Error())
		return
	}
	cs.unsubscribe(req.Topic)
}

func (c *Coordinator) handleSyncRequest(cs *connState, env *api.Envelope) {
	var req api.SyncRequest
	if len(env.Payload) > 0 {
		if err := env.Decode(&req); err != nil {
			c.sendError(cs, api.CodeMalformedMessage, "invalid sync-request payload", err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			c.sendError(cs, api.CodeValidationFailed, "sync-request rejected", err.Error())
			return
		}
	}

	c.pushSyncResponse(cs, req.SinceVersion)
}

// pushSyncResponse отдает дельту журнала, когда он еще покрывает
// запрошенную версию, и полный снимок иначе
func (c *Coordinator) pushSyncResponse(cs *connState, since int64) {
	resp := api.SyncResponse{
		SinceVersion:   since,
		CurrentVersion: c.store.CurrentVersion(),
	}

	if since > 0 && c.store.Retains(since) {
		entries := c.store.ChangesSince(since)
		resp.Changes = make([]api.ChangeEvent, 0, len(entries))
		for _, entry := range entries {
			resp.Changes = append(resp.Changes, toAPIChange(entry))
		}
	} else {
		resp.Bootstrap = true
		employees := c.store.List(nil)
		resp.Employees = make([]api.Employee, 0, len(employees))
		for _, emp := range employees {
			resp.Employees = append(resp.Employees, *toAPIEmployee(emp))
		}
	}

	if c.sendTo(cs, api.MsgSyncResponse, resp) {
		cs.markSynced(resp.CurrentVersion)
	}
}

// sendStoreError переводит типизированные ошибки стора в адресные
// сообщения об ошибке
func (c *Coordinator) sendStoreError(cs *connState, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.sendError(cs, api.CodeValidationFailed, "validation failed", verr.Error())
	case errors.Is(err, store.ErrNotFound):
		c.sendError(cs, api.CodeNotFound, "employee not found", "")
	case errors.Is(err, store.ErrDuplicateID):
		c.sendError(cs, api.CodeDuplicateID, "employee id already exists", "")
	case errors.Is(err, store.ErrEmptyPatch):
		c.sendError(cs, api.CodeEmptyPatch, "patch has no fields", "")
	default:
		c.logger.Error("store operation failed", "client_id", cs.clientID, "error", err)
		c.sendError(cs, api.CodeInternal, "operation failed", "")
	}
}

func (c *Coordinator) sendError(cs *connState, code, message, detail string) {
	c.sendTo(cs, api.MsgError, api.ErrorMessage{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}
