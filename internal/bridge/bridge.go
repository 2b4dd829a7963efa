// Package bridge периодически сверяет авторитетный in-memory стор
// с durable-хранилищем. Память — источник истины для горячего пути;
// мост работает на собственном таймере и никогда не блокирует
// клиентские мутации. Durable-копия трактуется как удаленная сторона
// конфликта и проходит через тот же резолвер, что и клиентские правки.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/storage"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/internal/telemetry"
	"github.com/iudanet/shiftsync/pkg/api"
)

//go:generate moq -out notifier_mock.go . Notifier

// Notifier рассылает системные уведомления подписчикам топиков
type Notifier interface {
	Broadcast(topic string, data []byte, excludeID string)
}

// mark фиксирует, как выглядела запись при последней успешной сверке.
// Сразу после Save обе стороны совпадают, поэтому одной отметки хватает,
// чтобы понять, какая из сторон менялась с тех пор.
type mark struct {
	updatedAt time.Time
	version   int64
}

// Status — срез состояния моста для поверхности /api/v1/status
type Status struct {
	LastRun          time.Time `json:"last_run"`
	LastError        string    `json:"last_error,omitempty"`
	PendingConflicts int       `json:"pending_conflicts"`
}

// Bridge сверяет снимки ростера с durable-хранилищем по расписанию
type Bridge struct {
	store     *store.Store
	durable   storage.RosterStorage
	resolver  *resolver.Resolver
	notifier  Notifier
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	syncNow   chan struct{}
	marks     map[string]map[string]mark // период → id записи → отметка последней сверки
	lastSync  map[string]time.Time       // период → время последней сверки
	lastRun   time.Time
	lastErr   string
	pending   int
	interval  time.Duration
	staleness time.Duration
	mu        sync.Mutex
}

// New создает мост. interval — период тиков, staleness — минимальный
// возраст последней сверки коллекции, после которого она сверяется снова.
func New(
	st *store.Store,
	durable storage.RosterStorage,
	res *resolver.Resolver,
	notifier Notifier,
	interval, staleness time.Duration,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		store:     st,
		durable:   durable,
		resolver:  res,
		notifier:  notifier,
		interval:  interval,
		staleness: staleness,
		logger:    logger,
		metrics:   metrics,
		syncNow:   make(chan struct{}, 1),
		marks:     make(map[string]map[string]mark),
		lastSync:  make(map[string]time.Time),
	}
}

// Run крутит цикл сверки до отмены контекста.
// Первая сверка выполняется сразу: durable-коллекции, накопленные
// прошлым запуском сервера, попадают в память до прихода клиентов.
func (b *Bridge) Run(ctx context.Context) {
	b.reconcileAll(ctx, true)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.reconcileAll(ctx, false)
		case <-b.syncNow:
			b.reconcileAll(ctx, true)
		}
	}
}

// SyncNow запрашивает внеочередную сверку, игнорирующую staleness.
// Вызов не блокируется и не ждет завершения сверки.
func (b *Bridge) SyncNow() {
	select {
	case b.syncNow <- struct{}{}:
	default:
	}
}

// Status возвращает срез состояния последнего прогона
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		LastRun:          b.lastRun,
		LastError:        b.lastErr,
		PendingConflicts: b.pending,
	}
}

// reconcileAll сверяет все известные коллекции: объединение периодов
// в памяти и в durable-хранилище. force пропускает порог staleness.
func (b *Bridge) reconcileAll(ctx context.Context, force bool) {
	started := time.Now()
	outcome := "ok"
	pending := 0

	periods, err := b.collectPeriods(ctx)
	if err != nil {
		b.logger.Error("failed to list durable collections", "error", err)
		b.finishRun(started, "error", err.Error(), b.pendingCount())
		return
	}

	var firstErr error
	for _, period := range periods {
		if !force && !b.isStale(period, started) {
			continue
		}

		applied, conflicted, err := b.syncPeriod(ctx, period)
		if err != nil {
			b.logger.Error("roster reconcile failed", "period", period, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		pending += conflicted
		if applied > 0 || conflicted > 0 {
			b.logger.Info("roster reconciled",
				"period", period,
				"applied", applied,
				"conflicts", conflicted,
			)
			b.alertReconciled(period, applied, conflicted)
		}
	}

	errText := ""
	if firstErr != nil {
		outcome = "error"
		errText = firstErr.Error()
	}
	b.finishRun(started, outcome, errText, pending)
}

func (b *Bridge) finishRun(started time.Time, outcome, errText string, pending int) {
	b.metrics.BridgeRun(outcome, time.Since(started).Seconds())

	b.mu.Lock()
	b.lastRun = started
	b.lastErr = errText
	b.pending = pending
	b.mu.Unlock()
}

func (b *Bridge) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// collectPeriods объединяет периоды из памяти и durable-хранилища
func (b *Bridge) collectPeriods(ctx context.Context) ([]string, error) {
	durables, err := b.durable.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	seen := make(map[string]bool, len(durables))
	periods := make([]string, 0, len(durables))
	for _, p := range durables {
		seen[p] = true
		periods = append(periods, p)
	}
	for _, p := range b.store.Periods() {
		if !seen[p] {
			periods = append(periods, p)
		}
	}
	return periods, nil
}

func (b *Bridge) isStale(period string, now time.Time) bool {
	b.mu.Lock()
	last := b.lastSync[period]
	b.mu.Unlock()
	return now.Sub(last) >= b.staleness
}

// syncPeriod сверяет одну коллекцию. Возвращает количество записей,
// по которым были применены изменения, и число конфликтов, ожидающих
// выбора пользователя.
func (b *Bridge) syncPeriod(ctx context.Context, period string) (applied, conflicted int, err error) {
	durableSnap, err := b.durable.Load(ctx, period)
	if err != nil {
		if !errors.Is(err, storage.ErrCollectionNotFound) {
			return 0, 0, fmt.Errorf("failed to load period %s: %w", period, err)
		}
		// Период еще не сохранялся: все записи в памяти — memory-only
		durableSnap = nil
		err = nil
	}

	durableByID := make(map[string]*models.Employee, len(durableSnap))
	for _, emp := range durableSnap {
		durableByID[emp.ID] = emp
	}

	b.mu.Lock()
	oldMarks := b.marks[period]
	divergedAt := b.lastSync[period]
	b.mu.Unlock()

	memory := b.store.ListByPeriod(period)
	memoryIDs := make(map[string]bool, len(memory))

	needSave := false
	// Durable-копии записей, чьи конфликты ждут выбора пользователя:
	// при записи снимка они подставляются вместо копий из памяти,
	// чтобы обе стороны остались нетронутыми
	keepDurable := make(map[string]*models.Employee)

	for _, mem := range memory {
		memoryIDs[mem.ID] = true

		dur, inDurable := durableByID[mem.ID]
		if !inDurable {
			// Запись есть только в памяти: просто сохраняется
			needSave = true
			applied++
			continue
		}

		if snapshotsEqual(mem, dur) {
			continue
		}

		memChanged, durChanged := sidesChanged(oldMarks, mem, dur)
		switch {
		case memChanged && !durChanged:
			needSave = true
			applied++
		case !memChanged && durChanged:
			// Durable-сторона изменилась за спиной: принимаем в память
			if _, err := b.store.Put(dur, "bridge"); err != nil {
				return applied, conflicted, fmt.Errorf("failed to adopt %s: %w", dur.ID, err)
			}
			applied++
		default:
			outcome, err := b.resolveEntity(mem, dur, divergedAt)
			if err != nil {
				return applied, conflicted, err
			}
			switch outcome {
			case resolvedApplied:
				needSave = true
				applied++
			case resolvedPending:
				keepDurable[mem.ID] = dur
				conflicted++
			}
		}
	}

	for _, dur := range durableSnap {
		if memoryIDs[dur.ID] {
			continue
		}

		old, marked := oldMarks[dur.ID]
		durUnchanged := marked && old.version == dur.Version && old.updatedAt.Equal(dur.UpdatedAt)
		if durUnchanged {
			// Запись удалена в памяти, durable не менялся: удаление
			// распространяется через запись снимка без нее
			needSave = true
			applied++
			continue
		}

		// Запись есть только в durable или изменилась там после
		// удаления в памяти: принимаем в память
		if _, err := b.store.Put(dur, "bridge"); err != nil {
			return applied, conflicted, fmt.Errorf("failed to adopt %s: %w", dur.ID, err)
		}
		applied++
	}

	// Снимок пишется после всех Put: в него входят и принятые записи
	snapshot := b.store.ListByPeriod(period)
	if needSave || len(snapshot) != len(durableSnap) {
		saved := make([]*models.Employee, 0, len(snapshot))
		for _, emp := range snapshot {
			if dur, pending := keepDurable[emp.ID]; pending {
				saved = append(saved, dur)
				continue
			}
			saved = append(saved, emp)
		}
		if err := b.durable.Save(ctx, period, saved); err != nil {
			return applied, conflicted, fmt.Errorf("failed to save period %s: %w", period, err)
		}
		snapshot = saved
	}

	b.rememberMarks(period, snapshot, keepDurable, oldMarks)
	return applied, conflicted, nil
}

type resolveOutcome int

const (
	resolvedApplied resolveOutcome = iota
	resolvedPending
)

// resolveEntity прогоняет разошедшуюся запись через резолвер.
// Происхождение пофилдовых изменений мосту неизвестно, поэтому
// changed-списки остаются nil и каждое расхождение трактуется как
// правка с обеих сторон.
func (b *Bridge) resolveEntity(mem, dur *models.Employee, divergedAt time.Time) (resolveOutcome, error) {
	if divergedAt.IsZero() {
		divergedAt = earlierTime(mem.UpdatedAt, dur.UpdatedAt)
	}

	record, err := b.resolver.Resolve(resolver.Conflict{
		Local:      mem,
		Remote:     dur,
		DivergedAt: divergedAt,
	})

	if errors.Is(err, resolver.ErrUserChoiceRequired) {
		b.logger.Warn("reconcile conflict needs user choice",
			"entity_id", mem.ID,
			"period", mem.Period,
		)
		b.alertConflict(mem.Period, record)
		return resolvedPending, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", mem.ID, err)
	}

	b.metrics.ConflictResolved(record.Strategy)
	if record.Confidence > 0 {
		b.metrics.ConfidenceObserved(record.Confidence)
	}

	if !snapshotsEqual(record.Resolved, mem) {
		if _, err := b.store.Put(record.Resolved, "bridge"); err != nil {
			return 0, fmt.Errorf("failed to install resolution for %s: %w", mem.ID, err)
		}
	}
	return resolvedApplied, nil
}

// rememberMarks перезаписывает отметки периода по сохраненному снимку.
// Для записей с отложенным конфликтом сохраняется старая отметка: обе
// стороны остались нетронутыми и должны сверяться снова.
func (b *Bridge) rememberMarks(period string, snapshot []*models.Employee, keepDurable map[string]*models.Employee, oldMarks map[string]mark) {
	fresh := make(map[string]mark, len(snapshot))
	for _, emp := range snapshot {
		if _, pending := keepDurable[emp.ID]; pending {
			if old, ok := oldMarks[emp.ID]; ok {
				fresh[emp.ID] = old
			}
			continue
		}
		fresh[emp.ID] = mark{version: emp.Version, updatedAt: emp.UpdatedAt}
	}

	b.mu.Lock()
	b.marks[period] = fresh
	b.lastSync[period] = time.Now()
	b.mu.Unlock()
}

// sidesChanged сравнивает обе стороны с отметкой последней сверки.
// Без отметки происхождение неизвестно: обе стороны считаются
// изменившимися и решение принимает резолвер.
func sidesChanged(marks map[string]mark, mem, dur *models.Employee) (memChanged, durChanged bool) {
	old, ok := marks[mem.ID]
	if !ok {
		return true, true
	}
	memChanged = mem.Version != old.version || !mem.UpdatedAt.Equal(old.updatedAt)
	durChanged = dur.Version != old.version || !dur.UpdatedAt.Equal(old.updatedAt)
	return memChanged, durChanged
}

// snapshotsEqual — критерий "нечего сверять": версии и UpdatedAt совпадают
func snapshotsEqual(x, y *models.Employee) bool {
	return x.Version == y.Version && x.UpdatedAt.Equal(y.UpdatedAt)
}

func earlierTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func (b *Bridge) alertReconciled(period string, applied, conflicted int) {
	b.broadcastAlert(api.SystemAlert{
		At:        time.Now(),
		Category:  api.AlertPersistence,
		Message:   "roster reconciled with durable storage",
		Period:    period,
		Applied:   applied,
		Conflicts: conflicted,
	})
}

func (b *Bridge) alertConflict(period string, record *models.ConflictRecord) {
	b.broadcastAlert(api.SystemAlert{
		At:       time.Now(),
		Category: api.AlertConflict,
		Message:  "reconcile conflict requires user choice",
		Period:   period,
		Conflict: toAPIConflict(record),
	})
}

func (b *Bridge) broadcastAlert(alert api.SystemAlert) {
	if b.notifier == nil {
		return
	}

	data, err := api.Encode(api.MsgSystemAlert, alert)
	if err != nil {
		b.logger.Error("failed to encode system alert", "error", err)
		return
	}

	b.notifier.Broadcast(api.TopicSystemAlerts, data, "")
}
