package ranking

import (
	"context"
	"sort"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/jonathan/codemap/internal/proficiency"
	"golang.org/x/sync/errgroup"
)

// DefaultTopK is used when the caller asks for top_k <= 0.
const DefaultTopK = 3

// MaxTopK is the largest top_k accepted from callers.
const MaxTopK = 50

// enrichParallelism bounds concurrent enrichment of the selected postings.
const enrichParallelism = 3

// MatchResult is one ranked posting. SimilarityScore is unrounded.
type MatchResult struct {
	JobIndex             int             `json:"job_index"`
	SimilarityScore      float64         `json:"similarity_score"`
	SimilarityPercentage float64         `json:"similarity_percentage"`
	JobTitle             string          `json:"job_title"`
	JobDescription       string          `json:"job_description"`
	RequiredSkills       proficiency.Map `json:"required_skills"`
	RequiredKnowledge    proficiency.Map `json:"required_knowledge"`
	DegradedFields       []string        `json:"degraded_fields,omitempty"`
	EnrichmentErrors     []string        `json:"enrichment_errors,omitempty"`
}

// Degraded reports whether any field holds a fallback value.
func (m MatchResult) Degraded() bool {
	return len(m.DegradedFields) > 0
}

// Scored is a posting index with its similarity to the profile.
type Scored struct {
	Index int
	Score float64
}

// Score computes the similarity of profile to every posting, sorted by score
// descending. Ties keep corpus order.
func Score(profile []float32, snap *corpus.Snapshot) ([]Scored, error) {
	if snap == nil || snap.Len() == 0 || len(snap.Vectors) == 0 {
		return nil, apperr.NoData("rank", "job corpus is empty")
	}
	if len(profile) != snap.Dimension {
		return nil, apperr.DimensionMismatch("rank", snap.Dimension, len(profile))
	}

	scored := make([]Scored, len(snap.Vectors))
	for i, v := range snap.Vectors {
		scored[i] = Scored{Index: i, Score: Cosine(profile, v)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// SelectDistinct walks scored in order and keeps the first posting for each
// title, stopping at topK. It never pads.
func SelectDistinct(scored []Scored, snap *corpus.Snapshot, topK int) []Scored {
	if topK <= 0 {
		topK = DefaultTopK
	}
	topK = min(topK, len(scored))
	seen := make(map[string]struct{}, topK)
	out := make([]Scored, 0, topK)
	for _, s := range scored {
		if len(out) >= topK {
			break
		}
		title := snap.Postings[s.Index].Title
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Rank returns up to topK matches with distinct titles, best first. Each
// match is enriched; enrichment problems show up as degraded fields and
// never fail the call. A nil enricher behaves like enrichment.Disabled.
func Rank(ctx context.Context, profile []float32, snap *corpus.Snapshot, topK int, enricher enrichment.Enricher) ([]MatchResult, error) {
	scored, err := Score(profile, snap)
	if err != nil {
		return nil, err
	}
	selected := SelectDistinct(scored, snap, topK)
	if enricher == nil {
		enricher = enrichment.Disabled{}
	}

	results := make([]MatchResult, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichParallelism)
	for i, s := range selected {
		g.Go(func() error {
			p := snap.Postings[s.Index]
			e := enricher.Enrich(gctx, p)
			results[i] = MatchResult{
				JobIndex:             p.Index,
				SimilarityScore:      s.Score,
				SimilarityPercentage: Percentage(s.Score),
				JobTitle:             p.Title,
				JobDescription:       e.Description,
				RequiredSkills:       e.RequiredSkills,
				RequiredKnowledge:    e.RequiredKnowledge,
				DegradedFields:       e.Degraded,
				EnrichmentErrors:     e.Errors,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
