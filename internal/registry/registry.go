// Package registry ведет живые клиентские сессии и подписки на топики
// и выполняет fan-out доставку событий. Политика backpressure: ограниченная
// очередь на клиента, неблокирующая постановка, переполнение отключает
// только виновного клиента. Реестр намеренно ничего не знает про стор:
// его блокировка никогда не пересекается с блокировкой ростера.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/shiftsync/internal/telemetry"
)

// ErrClientNotFound клиент с таким ID не зарегистрирован.
var ErrClientNotFound = errors.New("client not found")

// Причины принудительного отключения
const (
	ReasonQueueOverflow    = "queue_overflow"
	ReasonHeartbeatTimeout = "heartbeat_timeout"
)

// staleMultiplier клиент считается мертвым после 3 пропущенных интервалов
const staleMultiplier = 3

// session состояние одного подключения. Все поля защищены мьютексом реестра.
type session struct {
	lastSeen time.Time
	id       string
	outbound chan []byte
	topics   map[string]struct{}
}

// Registry представляет реестр сессий и подписок.
type Registry struct {
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	sessions  map[string]*session
	byTopic   map[string]map[string]*session
	onDetach  func(clientID, reason string)
	interval  time.Duration
	queueSize int
	mu        sync.Mutex
}

// New создает пустой реестр. queueSize — емкость исходящей очереди клиента,
// interval — период heartbeat; клиент без сигналов дольше трех интервалов
// отключается как предположительно мертвый.
func New(queueSize int, interval time.Duration, logger *slog.Logger, metrics *telemetry.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		metrics:   metrics,
		sessions:  make(map[string]*session),
		byTopic:   make(map[string]map[string]*session),
		interval:  interval,
		queueSize: queueSize,
	}
}

// OnDetach устанавливает хук принудительного отключения (переполнение очереди,
// heartbeat). Хук вызывается вне блокировки реестра. Устанавливается один раз
// до начала обслуживания.
func (r *Registry) OnDetach(fn func(clientID, reason string)) {
	r.onDetach = fn
}

// HeartbeatInterval возвращает настроенный период heartbeat.
func (r *Registry) HeartbeatInterval() time.Duration { return r.interval }

// AddClient регистрирует клиента и возвращает его исходящую очередь.
// Повторная регистрация того же ID идемпотентна.
func (r *Registry) AddClient(clientID string) <-chan []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[clientID]; ok {
		return existing.outbound
	}

	sess := &session{
		lastSeen: time.Now(),
		id:       clientID,
		outbound: make(chan []byte, r.queueSize),
		topics:   make(map[string]struct{}),
	}
	r.sessions[clientID] = sess
	r.metrics.ClientCount(len(r.sessions))

	return sess.outbound
}

// RemoveClient снимает клиента с учета: вычищает обе стороны индекса подписок
// и закрывает исходящую очередь. Повторные вызовы безопасны.
func (r *Registry) RemoveClient(clientID string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[clientID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	delete(r.sessions, clientID)
	for topic := range sess.topics {
		delete(r.byTopic[topic], clientID)
		if len(r.byTopic[topic]) == 0 {
			delete(r.byTopic, topic)
		}
	}
	// Очередь закрывается под блокировкой: все отправители держат ту же
	// блокировку, отправка в закрытый канал исключена.
	close(sess.outbound)
	r.metrics.ClientCount(len(r.sessions))
	r.mu.Unlock()

	return true
}

// Subscribe подписывает клиента на топик, обновляя обе стороны индекса вместе.
func (r *Registry) Subscribe(clientID, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[clientID]
	if !ok {
		return ErrClientNotFound
	}

	sess.topics[topic] = struct{}{}
	if r.byTopic[topic] == nil {
		r.byTopic[topic] = make(map[string]*session)
	}
	r.byTopic[topic][clientID] = sess
	return nil
}

// Unsubscribe снимает подписку с обеих сторон индекса.
func (r *Registry) Unsubscribe(clientID, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[clientID]
	if !ok {
		return ErrClientNotFound
	}

	delete(sess.topics, topic)
	delete(r.byTopic[topic], clientID)
	if len(r.byTopic[topic]) == 0 {
		delete(r.byTopic, topic)
	}
	return nil
}

// Topics возвращает отсортированный список подписок клиента.
func (r *Registry) Topics(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[clientID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sess.topics))
	for t := range sess.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ClientCount возвращает число подключенных клиентов.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Has сообщает, зарегистрирован ли клиент.
func (r *Registry) Has(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[clientID]
	return ok
}

// Broadcast раздает событие всем подписчикам топика, кроме excludeID
// (инициатор уже получил подтверждение напрямую). Постановка неблокирующая:
// переполненная очередь помечает клиента как медленного, его отключение
// выполняется асинхронно и никогда под блокировкой реестра.
func (r *Registry) Broadcast(topic string, data []byte, excludeID string) {
	r.mu.Lock()
	var overflowed []string
	for id, sess := range r.byTopic[topic] {
		if id == excludeID {
			continue
		}
		select {
		case sess.outbound <- data:
			r.metrics.BroadcastSent(topic)
		default:
			overflowed = append(overflowed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range overflowed {
		r.metrics.QueueDropped()
		r.logger.Warn("outbound queue overflow, disconnecting slow client",
			"client_id", id, "topic", topic)
		go r.detach(id, ReasonQueueOverflow)
	}
}

// Send доставляет событие одному клиенту с той же политикой backpressure.
// false означает, что клиент не зарегистрирован или будет отключен.
func (r *Registry) Send(clientID string, data []byte) bool {
	r.mu.Lock()
	sess, ok := r.sessions[clientID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	select {
	case sess.outbound <- data:
		r.mu.Unlock()
		return true
	default:
	}
	r.mu.Unlock()

	r.metrics.QueueDropped()
	r.logger.Warn("outbound queue overflow, disconnecting slow client", "client_id", clientID)
	go r.detach(clientID, ReasonQueueOverflow)
	return false
}

// Heartbeat отмечает клиента живым.
func (r *Registry) Heartbeat(clientID string) {
	r.mu.Lock()
	if sess, ok := r.sessions[clientID]; ok {
		sess.lastSeen = time.Now()
	}
	r.mu.Unlock()
}

// SweepStale отключает клиентов, молчавших дольше трех интервалов heartbeat.
// Возвращает ID отключенных.
func (r *Registry) SweepStale(now time.Time) []string {
	cutoff := staleMultiplier * r.interval

	r.mu.Lock()
	var stale []string
	for id, sess := range r.sessions {
		if now.Sub(sess.lastSeen) > cutoff {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.metrics.ClientEvicted()
		r.logger.Info("heartbeat timeout, disconnecting client", "client_id", id)
		r.detach(id, ReasonHeartbeatTimeout)
	}
	return stale
}

// RunHeartbeatMonitor запускает периодическую проверку живости до отмены
// контекста.
func (r *Registry) RunHeartbeatMonitor(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.SweepStale(now)
		}
	}
}

// detach снимает клиента с учета и уведомляет транспорт. Вызывается только
// вне блокировки реестра.
func (r *Registry) detach(clientID, reason string) {
	if !r.RemoveClient(clientID) {
		return
	}
	if r.onDetach != nil {
		r.onDetach(clientID, reason)
	}
}
