// Package coordinator владеет жизненным циклом WebSocket-сессий:
// принимает соединения, читает и диспетчеризует входящие сообщения,
// применяет мутации к стору, прогоняет конфликты через резолвер и
// решает, что уходит широковещательно, а что — только инициатору.
// На соединение приходится две горутины: читатель (декодирование и
// диспетчеризация) и писатель (слив исходящей очереди с дедлайнами),
// поэтому медленный получатель не останавливает чтение.
package coordinator

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/shiftsync/internal/registry"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/resume"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/internal/telemetry"
	"github.com/iudanet/shiftsync/pkg/api"
)

const (
	// writeWait — дедлайн записи одного кадра
	writeWait = 10 * time.Second
	// maxMessageSize — предел входящего кадра; ростер — маленькие сообщения
	maxMessageSize = 64 * 1024
)

// Coordinator связывает транспорт с остальными компонентами
type Coordinator struct {
	store    *store.Store
	resolver *resolver.Resolver
	registry *registry.Registry
	resume   *resume.Service
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	upgrader websocket.Upgrader
	conns    map[string]*connState
	mu       sync.Mutex
}

// connState — состояние одного соединения. Подписки дублируются здесь,
// потому что к моменту detach-хука реестр уже забыл клиента, а resume
// должен сохранить именно их.
type connState struct {
	conn     *websocket.Conn
	clientID string
	topics   map[string]bool
	synced   int64 // глобальная версия на момент последнего sync-ответа
	mu       sync.Mutex
	once     sync.Once
}

func (cs *connState) subscribe(topic string) {
	cs.mu.Lock()
	cs.topics[topic] = true
	cs.mu.Unlock()
}

func (cs *connState) unsubscribe(topic string) {
	cs.mu.Lock()
	delete(cs.topics, topic)
	cs.mu.Unlock()
}

func (cs *connState) topicList() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, 0, len(cs.topics))
	for t := range cs.topics {
		out = append(out, t)
	}
	return out
}

func (cs *connState) markSynced(version int64) {
	cs.mu.Lock()
	cs.synced = version
	cs.mu.Unlock()
}

func (cs *connState) syncedVersion() int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.synced
}

// New создает координатор и регистрирует detach-хук в реестре:
// принудительные отключения (переполнение очереди, молчание) должны
// закрывать и нижележащее соединение.
func New(
	st *store.Store,
	res *resolver.Resolver,
	reg *registry.Registry,
	resumeSvc *resume.Service,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		store:    st,
		resolver: res,
		registry: reg,
		resume:   resumeSvc,
		logger:   logger,
		metrics:  metrics,
		conns:    make(map[string]*connState),
		upgrader: websocket.Upgrader{
			// Ростер живет в доверенной сети, происхождение не проверяется
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	reg.OnDetach(c.onDetach)
	return c
}

// HandleWS обрабатывает GET /ws: апгрейд соединения, установка сессии
// и цикл чтения. Необязательный query-параметр resume восстанавливает
// подписки и позицию в журнале после обрыва.
func (c *Coordinator) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	clientID, restored := c.identify(r.URL.Query().Get("resume"))

	cs := &connState{
		conn:     conn,
		clientID: clientID,
		topics:   make(map[string]bool),
	}

	c.mu.Lock()
	c.conns[clientID] = cs
	c.mu.Unlock()

	outbound := c.registry.AddClient(clientID)

	token, err := c.resume.IssueToken(clientID)
	if err != nil {
		c.logger.Error("failed to issue resume token", "client_id", clientID, "error", err)
	}

	if !c.sendTo(cs, api.MsgSessionCreated, api.SessionCreated{
		ClientID:          clientID,
		ResumeToken:       token,
		HeartbeatInterval: int64(c.registry.HeartbeatInterval().Seconds()),
		Resumed:           restored != nil,
	}) {
		c.teardown(cs, "handshake_failed")
		return
	}

	if restored != nil {
		c.restoreSession(cs, restored)
	}

	c.logger.Info("client connected",
		"client_id", clientID,
		"resumed", restored != nil,
	)

	go c.writeLoop(cs, outbound)
	c.readLoop(cs)
}

// identify выбирает client id для нового соединения. Валидный
// resume-токен возвращает прежний id вместе с сохраненным состоянием;
// все остальное дает свежую сессию.
func (c *Coordinator) identify(token string) (string, *resume.State) {
	if token == "" {
		return uuid.NewString(), nil
	}

	clientID, err := c.resume.ValidateToken(token)
	if err != nil {
		c.logger.Warn("resume token rejected", "error", err)
		return uuid.NewString(), nil
	}

	// Повтор токена при живой исходной сессии не должен ее угнать
	if c.registry.Has(clientID) {
		c.logger.Warn("resume token replayed for live session", "client_id", clientID)
		return uuid.NewString(), nil
	}

	state, ok := c.resume.Restore(clientID)
	if !ok {
		return clientID, &resume.State{}
	}
	return clientID, state
}

// restoreSession возвращает восстановленной сессии ее подписки и
// проактивно досылает изменения с последней подтвержденной версии.
func (c *Coordinator) restoreSession(cs *connState, state *resume.State) {
	for _, topic := range state.Topics {
		if err := c.registry.Subscribe(cs.clientID, topic); err != nil {
			continue
		}
		cs.subscribe(topic)
	}

	if state.LastVersion > 0 {
		c.pushSyncResponse(cs, state.LastVersion)
	}
}

// writeLoop сливает исходящую очередь в соединение. Закрытие канала
// реестром завершает цикл; ошибка записи валит сессию целиком.
func (c *Coordinator) writeLoop(cs *connState, outbound <-chan []byte) {
	for data := range outbound {
		_ = cs.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cs.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.teardown(cs, "write_error")
			return
		}
	}

	// Реестр закрыл очередь: вежливо прощаемся с клиентом
	_ = cs.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = cs.conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = cs.conn.Close()
}

// onDetach вызывается реестром при принудительном отключении
// (переполнение очереди, пропуск heartbeat). Сам RemoveClient реестр
// уже сделал; остается погасить транспорт и сохранить resume-состояние.
func (c *Coordinator) onDetach(clientID, reason string) {
	c.mu.Lock()
	cs, ok := c.conns[clientID]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.teardown(cs, reason)
}

// teardown идемпотентно завершает сессию: параллельные триггеры
// (ошибка чтения, ошибка записи, detach реестра) сходятся здесь.
func (c *Coordinator) teardown(cs *connState, reason string) {
	cs.once.Do(func() {
		c.resume.Stash(cs.clientID, cs.topicList(), cs.syncedVersion())
		c.registry.RemoveClient(cs.clientID)

		c.mu.Lock()
		delete(c.conns, cs.clientID)
		c.mu.Unlock()

		_ = cs.conn.Close()

		c.logger.Info("client disconnected",
			"client_id", cs.clientID,
			"reason", reason,
		)
	})
}

// sendTo кодирует и ставит адресное сообщение в очередь сессии
func (c *Coordinator) sendTo(cs *connState, msgType string, payload any) bool {
	data, err := api.Encode(msgType, payload)
	if err != nil {
		c.logger.Error("failed to encode message",
			"type", msgType,
			"client_id", cs.clientID,
			"error", err,
		)
		return false
	}
	return c.registry.Send(cs.clientID, data)
}

// broadcast кодирует и рассылает событие подписчикам топика,
// исключая инициатора
func (c *Coordinator) broadcast(topic, msgType string, payload any, excludeID string) {
	data, err := api.Encode(msgType, payload)
	if err != nil {
		c.logger.Error("failed to encode broadcast",
			"type", msgType,
			"topic", topic,
			"error", err,
		)
		return
	}
	c.registry.Broadcast(topic, data, excludeID)
}
