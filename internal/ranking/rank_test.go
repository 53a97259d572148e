package ranking

import (
	"context"
	"math"
	"runtime"
	"testing"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/jonathan/codemap/internal/proficiency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(titles []string, vectors [][]float32) *corpus.Snapshot {
	postings := make([]corpus.Posting, len(titles))
	for i, t := range titles {
		postings[i] = corpus.Posting{Index: i, Title: t, Description: "desc " + t}
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	return &corpus.Snapshot{Postings: postings, Vectors: vectors, Dimension: dim}
}

type staticEnricher struct{}

func (staticEnricher) Enrich(_ context.Context, p corpus.Posting) enrichment.Result {
	return enrichment.Result{
		Description:       "This career involves " + p.Title,
		RequiredSkills:    proficiency.FromStrings("SQL", "Basic"),
		RequiredKnowledge: proficiency.Map{},
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 100.0, Percentage(0.99999994))
	assert.Equal(t, 87.35, Percentage(0.873456))
	assert.Equal(t, 12.35, Percentage(0.12345))
	assert.Equal(t, 0.0, Percentage(0))
	assert.Equal(t, -50.0, Percentage(-0.5))
}

func TestRank_SelfSimilarityFirst(t *testing.T) {
	u := []float32{0.3, -0.2, 0.9, 0.1}
	snap := snapshot(
		[]string{"Backend Engineer", "Data Analyst", "Designer"},
		[][]float32{{0.9, 0.1, 0, 0}, u, {-0.3, 0.2, -0.9, -0.1}},
	)

	results, err := Rank(context.Background(), u, snap, 3, staticEnricher{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].JobIndex)
	assert.Equal(t, "Data Analyst", results[0].JobTitle)
	assert.InDelta(t, 100.00, results[0].SimilarityPercentage, 1e-6)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	assert.Equal(t, 2, results[2].JobIndex)
	assert.Equal(t, "This career involves Data Analyst", results[0].JobDescription)
	assert.False(t, results[0].Degraded())

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}
}

func TestRank_Deterministic(t *testing.T) {
	snap := snapshot(
		[]string{"A", "B", "C", "D", "E"},
		[][]float32{{1, 0}, {0.7, 0.7}, {0, 1}, {0.7, 0.7}, {-1, 0}},
	)
	u := []float32{0.6, 0.8}

	first, err := Rank(context.Background(), u, snap, 4, staticEnricher{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Rank(context.Background(), u, snap, 4, staticEnricher{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRank_TiesKeepCorpusOrder(t *testing.T) {
	snap := snapshot(
		[]string{"A", "B", "C"},
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
	)

	results, err := Rank(context.Background(), []float32{1, 0}, snap, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, results[0].JobIndex)
	assert.Equal(t, 1, results[1].JobIndex)
	assert.Equal(t, 2, results[2].JobIndex)
}

func TestRank_DedupByTitle(t *testing.T) {
	// Two "Data Analyst" postings rank 1st and 2nd; top_k=2 must skip
	// the second and take "Engineer" instead.
	snap := snapshot(
		[]string{"Engineer", "Data Analyst", "Data Analyst"},
		[][]float32{{0.5, 0.5}, {1, 0.05}, {1, 0.1}},
	)

	results, err := Rank(context.Background(), []float32{1, 0}, snap, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Data Analyst", results[0].JobTitle)
	assert.Equal(t, 1, results[0].JobIndex)
	assert.Equal(t, "Engineer", results[1].JobTitle)
}

func TestRank_DataAnalystScenario(t *testing.T) {
	snap := snapshot(
		[]string{"Data Analyst", "Data Analyst"},
		[][]float32{{1, 0.2}, {1, 0}},
	)

	results, err := Rank(context.Background(), []float32{1, 0}, snap, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].JobIndex)
}

func TestRank_TitlesDistinctAndBounded(t *testing.T) {
	titles := []string{"A", "B", "A", "C", "B", "D", "A"}
	vectors := make([][]float32, len(titles))
	for i := range vectors {
		vectors[i] = []float32{float32(i + 1), 1}
	}
	snap := snapshot(titles, vectors)

	for topK := 1; topK <= 6; topK++ {
		results, err := Rank(context.Background(), []float32{1, 1}, snap, topK, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), topK)
		assert.LessOrEqual(t, len(results), 4)

		seen := map[string]bool{}
		for _, r := range results {
			assert.False(t, seen[r.JobTitle], "duplicate title %q at top_k=%d", r.JobTitle, topK)
			seen[r.JobTitle] = true
		}
	}
}

func TestRank_DefaultTopK(t *testing.T) {
	snap := snapshot(
		[]string{"A", "B", "C", "D"},
		[][]float32{{1, 0}, {0.9, 0.1}, {0.8, 0.2}, {0.7, 0.3}},
	)

	for _, k := range []int{0, -5} {
		results, err := Rank(context.Background(), []float32{1, 0}, snap, k, nil)
		require.NoError(t, err)
		assert.Len(t, results, DefaultTopK)
	}
}

func TestRank_NeverPads(t *testing.T) {
	snap := snapshot([]string{"Only"}, [][]float32{{1}})

	results, err := Rank(context.Background(), []float32{1}, snap, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSelectDistinct_HugeTopKBoundedByCorpus(t *testing.T) {
	snap := snapshot([]string{"Analyst", "Analyst", "Designer"}, [][]float32{{1, 0}, {1, 0}, {0, 1}})
	scored, err := Score([]float32{1, 0}, snap)
	require.NoError(t, err)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	got := SelectDistinct(scored, snap, math.MaxInt32)
	runtime.ReadMemStats(&after)

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestRank_Errors(t *testing.T) {
	t.Run("empty corpus", func(t *testing.T) {
		_, err := Rank(context.Background(), []float32{1}, snapshot(nil, nil), 3, nil)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})

	t.Run("nil snapshot", func(t *testing.T) {
		_, err := Rank(context.Background(), []float32{1}, nil, 3, nil)
		assert.ErrorIs(t, err, apperr.ErrNoData)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		snap := snapshot([]string{"A"}, [][]float32{{1, 0, 0}})
		_, err := Rank(context.Background(), []float32{1, 0}, snap, 3, nil)
		assert.ErrorIs(t, err, apperr.ErrDimensionMismatch)
	})
}

func TestRank_DisabledEnrichmentMarksFields(t *testing.T) {
	snap := snapshot([]string{"A"}, [][]float32{{1, 0}})

	results, err := Rank(context.Background(), []float32{1, 0}, snap, 1, nil)
	require.NoError(t, err)

	r := results[0]
	assert.True(t, r.Degraded())
	assert.Equal(t, "desc A", r.JobDescription)
	assert.ElementsMatch(t,
		[]string{enrichment.FieldDescription, enrichment.FieldSkills, enrichment.FieldKnowledge},
		r.DegradedFields)
	assert.Equal(t, 0, r.RequiredSkills.Len())
}

func TestScore_ZeroProfile(t *testing.T) {
	snap := snapshot([]string{"A", "B"}, [][]float32{{1, 0}, {0, 1}})

	scored, err := Score([]float32{0, 0}, snap)
	require.NoError(t, err)
	for _, s := range scored {
		assert.False(t, math.IsNaN(s.Score))
		assert.Zero(t, s.Score)
	}
	assert.Equal(t, 0, scored[0].Index)
}
