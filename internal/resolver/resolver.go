// Package resolver разрешает конфликты версий ростера.
// Резолвер вызывается только после того, как стор обнаружил несовпадение
// expectedVersion: сам факт обнаружения — ответственность optimistic lock,
// здесь решается исход. Стратегия фиксируется конфигурацией; слой auto
// выбирает стратегию эвристикой и применяет ее только при достаточной
// уверенности, иначе отдает конфликт пользователю.
package resolver

import (
	"time"

	"github.com/iudanet/shiftsync/internal/models"
)

// Conflict описывает один конфликт версий для разрешения.
// Local — снимок намерения клиента (авторитетная база + его патч),
// Remote — текущий авторитетный снимок. LocalChanged/RemoteChanged —
// имена полей, измененных каждой стороной с базовой версии клиента;
// nil означает "происхождение неизвестно", тогда каждое расходящееся
// значение трактуется как измененное обеими сторонами.
type Conflict struct {
	DivergedAt    time.Time
	Local         *models.Employee
	Remote        *models.Employee
	LocalChanged  []string
	RemoteChanged []string
}

func (c Conflict) localChangedSet() map[string]bool  { return changedSet(c.LocalChanged) }
func (c Conflict) remoteChangedSet() map[string]bool { return changedSet(c.RemoteChanged) }

func changedSet(fields []string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// Resolver применяет настроенную стратегию разрешения конфликтов.
// Безопасен для конкурентного использования.
type Resolver struct {
	scorer    Scorer
	history   *history
	strategy  Strategy
	threshold float64
}

// DefaultConfidenceThreshold порог уверенности авторезолвера по умолчанию
const DefaultConfidenceThreshold = 0.75

// New создает резолвер с фиксированной стратегией.
// Стратегия должна быть получена через ParseStrategy. StrategyAuto
// равносильна NewAuto со скорером и порогом по умолчанию.
func New(strategy Strategy) *Resolver {
	if strategy == StrategyAuto {
		return NewAuto(nil, DefaultConfidenceThreshold)
	}
	return &Resolver{strategy: strategy}
}

// NewAuto создает резолвер с эвристическим выбором стратегии.
// nil-скорер заменяется детерминированным по умолчанию. Конфликты,
// не добравшие threshold уверенности, уходят в UserChoice.
func NewAuto(scorer Scorer, threshold float64) *Resolver {
	if scorer == nil {
		scorer = defaultScorer{}
	}
	return &Resolver{
		strategy:  StrategyAuto,
		scorer:    scorer,
		threshold: threshold,
		history:   newHistory(),
	}
}

// Strategy возвращает настроенную стратегию.
func (r *Resolver) Strategy() Strategy { return r.strategy }

// Resolve разрешает конфликт версий. Возвращаемая запись всегда содержит
// оба снимка; Resolved равен nil только вместе с ErrUserChoiceRequired.
// Уверенность и обоснование присутствуют только на пути auto.
func (r *Resolver) Resolve(c Conflict) (*models.ConflictRecord, error) {
	strategy := r.strategy

	var decision Decision
	if strategy == StrategyAuto {
		decision = r.scorer.Score(buildFeatures(c, r.history.preference()))
		strategy = decision.Strategy
		if decision.Confidence < r.threshold {
			strategy = StrategyUserChoice
		}
	}

	record, err := r.apply(strategy, c)
	if record != nil {
		record.Confidence = decision.Confidence
		record.Rationale = decision.Rationale
	}
	if r.history != nil {
		r.history.record(strategy)
	}
	return record, err
}

func (r *Resolver) apply(strategy Strategy, c Conflict) (*models.ConflictRecord, error) {
	record := &models.ConflictRecord{
		ResolvedAt: time.Now(),
		Strategy:   string(strategy),
		Local:      c.Local.Clone(),
		Remote:     c.Remote.Clone(),
	}

	switch strategy {
	case StrategyFirstWriterWins:
		// Авторитетное состояние сохраняется нетронутым, версия не растет.
		record.Resolved = c.Remote.Clone()
		record.Conflicts = divergentFields(c, models.ResolutionRemoteWins)

	case StrategyLastWriterWins:
		resolved := c.Local.Clone()
		resolved.ID = c.Remote.ID
		resolved.CreatedAt = c.Remote.CreatedAt
		resolved.Version = maxVersion(c.Local, c.Remote) + 1
		resolved.UpdatedAt = laterTime(c.Local.UpdatedAt, c.Remote.UpdatedAt)
		record.Resolved = resolved
		record.Conflicts = divergentFields(c, models.ResolutionLocalWins)

	case StrategyMerge:
		resolved, conflicts := mergeEmployees(c)
		record.Resolved = resolved
		record.Conflicts = conflicts

	case StrategyUserChoice:
		record.Conflicts = divergentFields(c, models.ResolutionPending)
		return record, ErrUserChoiceRequired

	default:
		return nil, ErrUnknownStrategy
	}

	return record, nil
}

// divergentFields перечисляет расходящиеся поля с единым исходом.
// Используется стратегиями, решающими конфликт целиком, а не пофилдово.
func divergentFields(c Conflict, resolution string) []models.FieldConflict {
	var out []models.FieldConflict
	for _, field := range models.FieldNames() {
		lv := c.Local.Field(field)
		rv := c.Remote.Field(field)
		if lv == rv {
			continue
		}
		out = append(out, models.FieldConflict{
			Field:      field,
			Local:      lv,
			Remote:     rv,
			Resolution: resolution,
		})
	}
	return out
}
