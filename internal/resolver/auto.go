package resolver

import (
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/iudanet/shiftsync/internal/models"
)

//go:generate moq -out scorer_mock.go . Scorer

// Features вектор признаков конфликта для эвристического выбора стратегии.
type Features struct {
	// ConflictFields количество полей, тронутых обеими сторонами с разными значениями
	ConflictFields int
	// Similarity средняя текстовая схожесть конфликтующих значений, [0,1]
	Similarity float64
	// DivergenceAge сколько времени стороны расходились
	DivergenceAge time.Duration
	// Completeness перевес в заполненности полей: >0 локальная копия полнее, [-1,1]
	Completeness float64
	// Preference сглаженное историческое предпочтение слияния, [0,1]
	Preference float64
}

// Decision результат скоринга: какую стратегию применить и насколько уверенно.
type Decision struct {
	Strategy   Strategy
	Rationale  string
	Confidence float64
}

// Scorer отображает вектор признаков в решение. Реализация по умолчанию
// детерминирована; интерфейс позволяет подменить ее обученной моделью,
// не трогая управляющий поток резолвера.
type Scorer interface {
	Score(f Features) Decision
}

// defaultScorer детерминированная эвристика.
// Слияние выигрывает на свежих, малополевых, похожих конфликтах;
// заметный перевес заполненности склоняет к принятию целой копии.
type defaultScorer struct{}

func (defaultScorer) Score(f Features) Decision {
	if f.ConflictFields == 0 {
		return Decision{
			Strategy:   StrategyMerge,
			Confidence: 0.95,
			Rationale:  "disjoint field edits merge cleanly",
		}
	}

	few := 1 - math.Min(float64(f.ConflictFields), 4)/4
	fresh := 1 / (1 + f.DivergenceAge.Minutes()/5)

	mergeScore := 0.4*f.Similarity + 0.25*few + 0.2*fresh + 0.15*f.Preference
	lwwScore := 0.5 + 0.45*f.Completeness
	fwwScore := 0.5 - 0.45*f.Completeness

	best := Decision{
		Strategy:   StrategyMerge,
		Confidence: mergeScore,
		Rationale: fmt.Sprintf("field merge: similarity=%.2f, overlap=%d, age=%s",
			f.Similarity, f.ConflictFields, f.DivergenceAge.Round(time.Second)),
	}
	if lwwScore > best.Confidence {
		best = Decision{
			Strategy:   StrategyLastWriterWins,
			Confidence: lwwScore,
			Rationale:  fmt.Sprintf("local copy is fuller: completeness=%.2f", f.Completeness),
		}
	}
	if fwwScore > best.Confidence {
		best = Decision{
			Strategy:   StrategyFirstWriterWins,
			Confidence: fwwScore,
			Rationale:  fmt.Sprintf("authoritative copy is fuller: completeness=%.2f", f.Completeness),
		}
	}
	return best
}

// buildFeatures вычисляет вектор признаков конфликта.
func buildFeatures(c Conflict, preference float64) Features {
	localChanged := c.localChangedSet()
	remoteChanged := c.remoteChangedSet()

	var (
		conflictFields int
		simSum         float64
		localFilled    int
		remoteFilled   int
	)

	fields := models.FieldNames()
	for _, field := range fields {
		lv := c.Local.Field(field)
		rv := c.Remote.Field(field)

		if lv != "" {
			localFilled++
		}
		if rv != "" {
			remoteFilled++
		}
		if lv == rv {
			continue
		}
		// Происхождение неизвестно — считаем пересечением, как в слиянии.
		if len(localChanged) > 0 && len(remoteChanged) > 0 &&
			(!localChanged[field] || !remoteChanged[field]) {
			continue
		}
		conflictFields++
		simSum += similarity(lv, rv)
	}

	f := Features{
		ConflictFields: conflictFields,
		Completeness:   float64(localFilled-remoteFilled) / float64(len(fields)),
		Preference:     preference,
	}
	if conflictFields > 0 {
		f.Similarity = simSum / float64(conflictFields)
	}

	divergedAt := c.DivergedAt
	if divergedAt.IsZero() {
		divergedAt = laterTime(c.Local.UpdatedAt, c.Remote.UpdatedAt)
	}
	if !divergedAt.IsZero() {
		f.DivergenceAge = time.Since(divergedAt)
		if f.DivergenceAge < 0 {
			f.DivergenceAge = 0
		}
	}
	return f
}

// similarity нормализованная схожесть по Левенштейну, [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// history хранит сглаженное (EWMA) предпочтение слияния: единица за каждый
// конфликт, разрешенный слиянием, ноль за остальные исходы.
type history struct {
	mu   sync.Mutex
	pref float64
}

const historyAlpha = 0.2

func newHistory() *history {
	return &history{pref: 0.5}
}

func (h *history) preference() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pref
}

func (h *history) record(s Strategy) {
	var x float64
	if s == StrategyMerge {
		x = 1
	}
	h.mu.Lock()
	h.pref = historyAlpha*x + (1-historyAlpha)*h.pref
	h.mu.Unlock()
}
