package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/llm"
	"github.com/jonathan/codemap/internal/logging"
	"github.com/jonathan/codemap/internal/proficiency"
	"github.com/jonathan/codemap/internal/prompts"
	"go.uber.org/zap"
)

// Field names used in degraded markers. They match the MatchResult JSON keys.
const (
	FieldDescription = "job_description"
	FieldSkills      = "required_skills"
	FieldKnowledge   = "required_knowledge"
)

const promptFile = "matching.json"

// Result is the enrichment of one posting. Degraded lists every field that
// holds a fallback value instead of collaborator output.
type Result struct {
	Description       string          `json:"description"`
	RequiredSkills    proficiency.Map `json:"required_skills"`
	RequiredKnowledge proficiency.Map `json:"required_knowledge"`
	Degraded          []string        `json:"degraded,omitempty"`
	Errors            []string        `json:"errors,omitempty"`
}

// Complete reports whether no field fell back.
func (r Result) Complete() bool {
	return len(r.Degraded) == 0
}

func (r *Result) degrade(field string, err error) {
	r.Degraded = append(r.Degraded, field)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", field, err))
	}
}

// Enricher produces a Result for a posting. It never fails; problems are
// reported through Result.Degraded.
type Enricher interface {
	Enrich(ctx context.Context, p corpus.Posting) Result
}

// fallback is the deterministic result when nothing could be produced.
func fallback(p corpus.Posting, reason error) Result {
	r := Result{
		Description:       p.Description,
		RequiredSkills:    p.RequiredSkills.Clone(),
		RequiredKnowledge: p.RequiredKnowledge.Clone(),
	}
	r.degrade(FieldDescription, reason)
	if r.RequiredSkills.Len() == 0 {
		r.degrade(FieldSkills, reason)
	}
	if r.RequiredKnowledge.Len() == 0 {
		r.degrade(FieldKnowledge, reason)
	}
	return r
}

// Disabled returns the raw description and whatever requirement columns the
// posting carries, marking the rest as degraded.
type Disabled struct{}

// Enrich implements Enricher.
func (Disabled) Enrich(_ context.Context, p corpus.Posting) Result {
	return fallback(p, fmt.Errorf("enrichment disabled"))
}

// LLMEnricher asks the text-generation collaborator for a summary and the
// skill/knowledge maps. Requirement columns present in the posting are used
// as-is and not re-extracted.
type LLMEnricher struct {
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMEnricher returns an enricher with a per-call timeout.
func NewLLMEnricher(client llm.Client, timeout time.Duration, logger *zap.Logger) *LLMEnricher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMEnricher{client: client, timeout: timeout, logger: logger.Named("enrichment")}
}

// Enrich implements Enricher.
func (e *LLMEnricher) Enrich(ctx context.Context, p corpus.Posting) Result {
	if strings.TrimSpace(p.Description) == "" || p.Description == corpus.Placeholder {
		return fallback(p, fmt.Errorf("posting has no description"))
	}
	data := map[string]string{"Description": p.Description}
	log := e.logger.With(zap.Int("job_index", p.Index))

	var r Result

	summary, err := e.call(ctx, "job_summary", data, llm.TierStandard, false)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err == nil {
			err = fmt.Errorf("empty summary")
		}
		log.Warn("summary failed, keeping raw description", zap.Error(err))
		r.Description = p.Description
		r.degrade(FieldDescription, err)
	} else {
		r.Description = strings.TrimSpace(summary)
	}

	r.RequiredSkills = e.levelMap(ctx, &r, p.RequiredSkills, "job_skills", FieldSkills, data, log)
	r.RequiredKnowledge = e.levelMap(ctx, &r, p.RequiredKnowledge, "job_knowledge", FieldKnowledge, data, log)
	return r
}

func (e *LLMEnricher) levelMap(ctx context.Context, r *Result, given proficiency.Map, key, field string, data map[string]string, log *zap.Logger) proficiency.Map {
	if given.Len() > 0 {
		return given.Clone()
	}
	raw, err := e.call(ctx, key, data, llm.TierLite, true)
	if err != nil {
		log.Warn("extraction call failed", zap.String("field", field), zap.Error(err))
		r.degrade(field, err)
		return proficiency.Map{}
	}
	m, err := ParseOrDefault(raw)
	if err != nil {
		log.Warn("extraction output unparsable",
			zap.String("field", field),
			zap.String("raw", logging.Truncate(raw, 200)))
		r.degrade(field, err)
	}
	return m
}

func (e *LLMEnricher) call(ctx context.Context, key string, data map[string]string, tier llm.ModelTier, jsonMode bool) (string, error) {
	prompt, err := prompts.Render(promptFile, key, data)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if jsonMode {
		return e.client.GenerateJSON(ctx, prompt, tier)
	}
	return e.client.GenerateContent(ctx, prompt, tier)
}
