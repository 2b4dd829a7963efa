package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/models"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "cashier", b: "cashier", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "cook", b: "", want: 0},
		{name: "partial overlap", a: "cashier", b: "cash", want: 0.57},
		{name: "single edit", a: "cook", b: "cooks", want: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity(tt.a, tt.b), 0.01)
		})
	}
}

func TestDefaultScorer_DisjointEditsMerge(t *testing.T) {
	d := defaultScorer{}.Score(Features{ConflictFields: 0})
	assert.Equal(t, StrategyMerge, d.Strategy)
	assert.GreaterOrEqual(t, d.Confidence, 0.9)
}

func TestDefaultScorer_SimilarFreshConflictMerges(t *testing.T) {
	d := defaultScorer{}.Score(Features{
		ConflictFields: 1,
		Similarity:     0.9,
		DivergenceAge:  10 * time.Second,
		Preference:     0.5,
	})
	assert.Equal(t, StrategyMerge, d.Strategy)
	assert.GreaterOrEqual(t, d.Confidence, 0.75)
}

func TestDefaultScorer_FullerLocalCopyWins(t *testing.T) {
	d := defaultScorer{}.Score(Features{
		ConflictFields: 2,
		Similarity:     0.1,
		DivergenceAge:  time.Hour,
		Completeness:   0.8,
	})
	assert.Equal(t, StrategyLastWriterWins, d.Strategy)
	assert.GreaterOrEqual(t, d.Confidence, 0.75)
}

func TestDefaultScorer_FullerRemoteCopyWins(t *testing.T) {
	d := defaultScorer{}.Score(Features{
		ConflictFields: 2,
		Similarity:     0.1,
		DivergenceAge:  time.Hour,
		Completeness:   -0.8,
	})
	assert.Equal(t, StrategyFirstWriterWins, d.Strategy)
	assert.GreaterOrEqual(t, d.Confidence, 0.75)
}

func TestDefaultScorer_MessyConflictLacksConfidence(t *testing.T) {
	// Много несхожих полей, старое расхождение, полнота равная:
	// ни одна стратегия не добирает порог
	d := defaultScorer{}.Score(Features{
		ConflictFields: 4,
		Similarity:     0.05,
		DivergenceAge:  24 * time.Hour,
		Completeness:   0,
		Preference:     0.3,
	})
	assert.Less(t, d.Confidence, 0.75)
}

func TestBuildFeatures(t *testing.T) {
	remote := baseEmployee()
	remote.Name = "Alicia"
	remote.Role = "cook"
	remote.Version = 2

	local := remote.Clone()
	local.Name = "Alice"         // пересечение: обе стороны меняли имя
	local.WeeklyHours = 32       // только локальная правка
	local.Notes = "night shifts" // только локальная правка

	f := buildFeatures(Conflict{
		Local:         local,
		Remote:        remote,
		LocalChanged:  []string{models.FieldName, models.FieldWeeklyHours, models.FieldNotes},
		RemoteChanged: []string{models.FieldName, models.FieldRole},
		DivergedAt:    time.Now().Add(-2 * time.Minute),
	}, 0.6)

	// Конфликтует только имя: остальные правки непересекающиеся
	assert.Equal(t, 1, f.ConflictFields)
	assert.Greater(t, f.Similarity, 0.5, "Alice и Alicia похожи")
	assert.InDelta(t, 2.0, f.DivergenceAge.Minutes(), 0.1)
	assert.InDelta(t, 0.6, f.Preference, 1e-9)
	// Локальная копия полнее: часы и заметки заполнены против пустых заметок
	assert.Greater(t, f.Completeness, 0.0)
}

func TestBuildFeatures_UnknownOriginCountsEveryDiff(t *testing.T) {
	remote := baseEmployee()
	local := remote.Clone()
	local.Name = "Other"
	local.Role = "cook"

	f := buildFeatures(Conflict{Local: local, Remote: remote}, 0.5)
	assert.Equal(t, 2, f.ConflictFields)
}

func TestHistory_EWMA(t *testing.T) {
	h := newHistory()
	require.InDelta(t, 0.5, h.preference(), 1e-9)

	h.record(StrategyMerge)
	assert.InDelta(t, 0.6, h.preference(), 1e-9)

	h.record(StrategyUserChoice)
	assert.InDelta(t, 0.48, h.preference(), 1e-9)

	for i := 0; i < 50; i++ {
		h.record(StrategyMerge)
	}
	assert.Greater(t, h.preference(), 0.95, "устойчивое предпочтение слияния")
}
