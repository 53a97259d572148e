package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/embedding"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/jonathan/codemap/internal/gaps"
	"github.com/jonathan/codemap/internal/llm"
	"github.com/jonathan/codemap/internal/logging"
	"github.com/jonathan/codemap/internal/prompts"
	"go.uber.org/zap"
)

const promptFile = "profile.json"

// CombinedResponses is the responses block sent to the language model.
type CombinedResponses struct {
	EducationLevel       string   `json:"educationLevel"`
	CGPA                 *float64 `json:"cgpa"`
	Major                string   `json:"major"`
	ProgrammingLanguages []string `json:"programmingLanguages"`
	CourseworkExperience string   `json:"courseworkExperience"`
	SkillReflection      string   `json:"skillReflection"`
}

// CombinedData is the assessment summary fed to profile generation and skill
// extraction. Score is how far the self-reflection is confirmed by the
// follow-up answers.
type CombinedData struct {
	UserTestID      int64             `json:"user_test_id"`
	UserResponses   CombinedResponses `json:"user_responses"`
	FollowUpResults []QuestionResult  `json:"follow_up_results"`
	Score           float64           `json:"score"`
}

// UserEmbedding is a generated profile and its vector.
type UserEmbedding struct {
	UserTestID  int64         `json:"user_test_id"`
	ProfileText string        `json:"profile_text"`
	Vector      []float32     `json:"-"`
	Data        *CombinedData `json:"combined_data"`
}

// Builder produces profile texts and embeddings from stored assessments.
type Builder struct {
	store    Store
	client   llm.Client
	embedder embedding.Provider
	logger   *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(store Store, client llm.Client, embedder embedding.Provider, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, client: client, embedder: embedder, logger: logger.Named("profile")}
}

// CombinedData loads and grades the user's assessment.
func (b *Builder) CombinedData(ctx context.Context, userTestID int64) (*CombinedData, error) {
	a, err := b.store.GetAssessment(ctx, userTestID)
	if err != nil {
		return nil, fmt.Errorf("load assessment %d: %w", userTestID, err)
	}
	if a == nil {
		return nil, apperr.NoData("profile", "no user responses found for user_test_id %d", userTestID)
	}

	results := Grade(a)
	score := Score(results)
	return &CombinedData{
		UserTestID: userTestID,
		UserResponses: CombinedResponses{
			EducationLevel:       a.Responses.EducationLevel,
			CGPA:                 a.Responses.CGPA,
			Major:                a.Responses.Major,
			ProgrammingLanguages: a.Responses.Languages(),
			CourseworkExperience: a.Responses.CourseworkExperience,
			SkillReflection:      a.Responses.SkillReflection,
		},
		FollowUpResults: results,
		Score:           score.ScorePercentage,
	}, nil
}

// ProfileText asks the language model for a one-paragraph profile.
func (b *Builder) ProfileText(ctx context.Context, data *CombinedData) (string, error) {
	prompt, err := renderWithData("profile_text", data)
	if err != nil {
		return "", err
	}
	text, err := b.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", fmt.Errorf("generate profile text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate profile text: empty response")
	}
	return text, nil
}

// Embedding builds the profile text for the user and embeds it.
func (b *Builder) Embedding(ctx context.Context, userTestID int64) (*UserEmbedding, error) {
	data, err := b.CombinedData(ctx, userTestID)
	if err != nil {
		return nil, err
	}
	text, err := b.ProfileText(ctx, data)
	if err != nil {
		return nil, err
	}
	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed profile text: %w", err)
	}
	b.logger.Debug("profile embedded",
		zap.Int64("user_test_id", userTestID),
		zap.Int("dimension", len(vec)),
		zap.String("profile_text", logging.Truncate(text, 160)))
	return &UserEmbedding{UserTestID: userTestID, ProfileText: text, Vector: vec, Data: data}, nil
}

// Analyzer extracts and stores a user's skills and knowledge.
type Analyzer struct {
	builder *Builder
	logger  *zap.Logger
}

// NewAnalyzer creates an Analyzer that shares the builder's store and client.
func NewAnalyzer(builder *Builder) *Analyzer {
	return &Analyzer{builder: builder, logger: builder.logger}
}

// AnalyzeSkills extracts skills and knowledge from the user's assessment and
// replaces the stored record. Unparsable model output is returned as a
// CollaboratorParseError and leaves the stored record untouched.
func (a *Analyzer) AnalyzeSkills(ctx context.Context, userTestID int64) (*gaps.UserSkills, error) {
	data, err := a.builder.CombinedData(ctx, userTestID)
	if err != nil {
		return nil, err
	}
	prompt, err := renderWithData("user_skills_knowledge", data)
	if err != nil {
		return nil, err
	}
	raw, err := a.builder.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("extract skills and knowledge: %w", err)
	}
	parsed, err := enrichment.ParseSkillsKnowledge(raw)
	if err != nil {
		a.logger.Warn("skills extraction unparsable",
			zap.Int64("user_test_id", userTestID),
			zap.String("raw", logging.Truncate(raw, 200)))
		return nil, err
	}

	us := &gaps.UserSkills{UserTestID: userTestID, Skills: parsed.Skills, Knowledge: parsed.Knowledge}
	if err := a.builder.store.SaveUserSkills(ctx, us); err != nil {
		return nil, fmt.Errorf("save skills for user %d: %w", userTestID, err)
	}
	a.logger.Info("skills analyzed",
		zap.Int64("user_test_id", userTestID),
		zap.Int("skills", us.Skills.Len()),
		zap.Int("knowledge", us.Knowledge.Len()))
	return us, nil
}

func renderWithData(key string, data *CombinedData) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal combined data: %w", err)
	}
	return prompts.Render(promptFile, key, map[string]string{"UserData": string(b)})
}
