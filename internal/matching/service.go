// Package matching is the service handle behind every exposed operation:
// rank, classify one, classify all and readiness.
package matching

import (
	"context"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/jonathan/codemap/internal/gaps"
	"github.com/jonathan/codemap/internal/profile"
	"github.com/jonathan/codemap/internal/ranking"
	"go.uber.org/zap"
)

// Readiness statuses.
const (
	StatusStarting = "starting"
	StatusReady    = "ready"
)

// Corpus is the job corpus lifecycle as the service uses it.
type Corpus interface {
	Start(ctx context.Context)
	State() (corpus.State, error)
	Ready() bool
	Snapshot(op string) (*corpus.Snapshot, error)
}

// ProfileEmbedder builds a profile vector for a user.
type ProfileEmbedder interface {
	Embedding(ctx context.Context, userTestID int64) (*profile.UserEmbedding, error)
}

// SkillsAnalyzer extracts and stores a user's skills and knowledge.
type SkillsAnalyzer interface {
	AnalyzeSkills(ctx context.Context, userTestID int64) (*gaps.UserSkills, error)
}

// Store is the persistence the service writes to.
type Store interface {
	gaps.Store
	SaveJobRequirements(ctx context.Context, req *gaps.JobRequirements) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Corpus   Corpus
	Profiles ProfileEmbedder
	Analyzer SkillsAnalyzer
	Enricher enrichment.Enricher
	Store    Store
	TopK     int
	Logger   *zap.Logger
}

// Readiness is the load status reported to callers. Status is starting or
// ready; State distinguishes a load still running from one that failed.
type Readiness struct {
	Status   string       `json:"status"`
	State    corpus.State `json:"state"`
	Postings int          `json:"postings"`
	Message  string       `json:"message,omitempty"`
}

// RankResponse is the result of ranking a user.
type RankResponse struct {
	UserTestID  int64                 `json:"user_test_id,omitempty"`
	ProfileText string                `json:"profile_text,omitempty"`
	TopMatches  []ranking.MatchResult `json:"top_matches"`
}

// Service is constructed once at startup and shared by all callers.
type Service struct {
	corpus   Corpus
	profiles ProfileEmbedder
	analyzer SkillsAnalyzer
	enricher enrichment.Enricher
	store    Store
	gaps     *gaps.Service
	topK     int
	logger   *zap.Logger
}

// New creates a Service. Nothing is loaded until Start.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	enricher := d.Enricher
	if enricher == nil {
		enricher = enrichment.Disabled{}
	}
	topK := d.TopK
	if topK <= 0 {
		topK = ranking.DefaultTopK
	}
	return &Service{
		corpus:   d.Corpus,
		profiles: d.Profiles,
		analyzer: d.Analyzer,
		enricher: enricher,
		store:    d.Store,
		gaps:     gaps.NewService(d.Store, logger),
		topK:     topK,
		logger:   logger.Named("matching"),
	}
}

// Start begins loading the corpus in the background.
func (s *Service) Start(ctx context.Context) {
	s.corpus.Start(ctx)
}

// Readiness never blocks.
func (s *Service) Readiness() Readiness {
	state, err := s.corpus.State()
	r := Readiness{Status: StatusStarting, State: state}
	switch {
	case state == corpus.StateReady && s.corpus.Ready():
		r.Status = StatusReady
		if snap, err := s.corpus.Snapshot("readiness"); err == nil {
			r.Postings = snap.Len()
		}
	case state == corpus.StateFailed:
		r.Message = "corpus load failed"
		if err != nil {
			r.Message += ": " + err.Error()
		}
	default:
		r.Message = "loading embedding model and job corpus"
	}
	return r
}

// snapshot is the readiness gate shared by all corpus operations.
func (s *Service) snapshot(op string) (*corpus.Snapshot, error) {
	snap, err := s.corpus.Snapshot(op)
	if err != nil {
		return nil, err
	}
	if !s.corpus.Ready() {
		return nil, apperr.NotInitialized(op, "embedding provider not loaded")
	}
	return snap, nil
}

// Rank builds the user's profile vector and returns the top matches.
func (s *Service) Rank(ctx context.Context, userTestID int64, topK int) (*RankResponse, error) {
	snap, err := s.snapshot("rank")
	if err != nil {
		return nil, err
	}
	ue, err := s.profiles.Embedding(ctx, userTestID)
	if err != nil {
		return nil, err
	}
	matches, err := s.rank(ctx, snap, ue.Vector, topK)
	if err != nil {
		return nil, err
	}
	return &RankResponse{UserTestID: userTestID, ProfileText: ue.ProfileText, TopMatches: matches}, nil
}

// RankVector ranks a caller-supplied profile vector.
func (s *Service) RankVector(ctx context.Context, vector []float32, topK int) (*RankResponse, error) {
	snap, err := s.snapshot("rank")
	if err != nil {
		return nil, err
	}
	matches, err := s.rank(ctx, snap, vector, topK)
	if err != nil {
		return nil, err
	}
	return &RankResponse{TopMatches: matches}, nil
}

func (s *Service) rank(ctx context.Context, snap *corpus.Snapshot, vector []float32, topK int) ([]ranking.MatchResult, error) {
	if topK <= 0 {
		topK = s.topK
	}
	matches, err := ranking.Rank(ctx, vector, snap, topK, s.enricher)
	if err != nil {
		return nil, err
	}
	s.saveRequirements(ctx, snap, matches)
	return matches, nil
}

// saveRequirements stores requirement maps that were extracted cleanly so
// later gap runs can use them. Failures are logged only.
func (s *Service) saveRequirements(ctx context.Context, snap *corpus.Snapshot, matches []ranking.MatchResult) {
	for _, m := range matches {
		if !requirementsClean(m) {
			continue
		}
		p, ok := snap.Posting(m.JobIndex)
		if !ok {
			continue
		}
		req := &gaps.JobRequirements{
			JobIndex:          m.JobIndex,
			JobTitle:          m.JobTitle,
			ContentHash:       p.ContentHash(),
			RequiredSkills:    m.RequiredSkills,
			RequiredKnowledge: m.RequiredKnowledge,
		}
		if err := s.store.SaveJobRequirements(ctx, req); err != nil {
			s.logger.Warn("failed to save job requirements",
				zap.Int("job_index", m.JobIndex),
				zap.Error(err))
		}
	}
}

func requirementsClean(m ranking.MatchResult) bool {
	for _, f := range m.DegradedFields {
		if f == enrichment.FieldSkills || f == enrichment.FieldKnowledge {
			return false
		}
	}
	return m.RequiredSkills.Len() > 0 || m.RequiredKnowledge.Len() > 0
}

// ClassifyOne classifies the user against one posting and stores the record.
func (s *Service) ClassifyOne(ctx context.Context, userTestID int64, jobIndex int) (*gaps.Record, error) {
	snap, err := s.snapshot("classify_one")
	if err != nil {
		return nil, err
	}
	return s.gaps.ClassifyOne(ctx, snap, userTestID, jobIndex)
}

// ClassifyAll classifies the user against the whole corpus.
func (s *Service) ClassifyAll(ctx context.Context, userTestID int64) ([]gaps.JobGap, error) {
	snap, err := s.snapshot("classify_all")
	if err != nil {
		return nil, err
	}
	return s.gaps.ClassifyAll(ctx, snap, userTestID)
}

// GapRecord returns the stored record for (user, job).
func (s *Service) GapRecord(ctx context.Context, userTestID int64, jobIndex int) (*gaps.Record, error) {
	return s.gaps.Record(ctx, userTestID, jobIndex)
}

// AnalyzeSkills refreshes the user's stored skills and knowledge.
func (s *Service) AnalyzeSkills(ctx context.Context, userTestID int64) (*gaps.UserSkills, error) {
	return s.analyzer.AnalyzeSkills(ctx, userTestID)
}
