package gaps

import (
	"context"
	"fmt"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/proficiency"
	"go.uber.org/zap"
)

// JobGap is one entry of a batch run. Failed entries carry an empty
// analysis and the reason.
type JobGap struct {
	JobIndex    int      `json:"job_index"`
	JobTitle    string   `json:"job_title"`
	GapAnalysis Analysis `json:"gap_analysis"`
	Failed      bool     `json:"failed,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Service classifies users against corpus postings and persists the result.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a gap service backed by store.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("gaps")}
}

// ClassifyOne classifies one user against one posting and overwrites the
// stored record for the pair.
func (s *Service) ClassifyOne(ctx context.Context, snap *corpus.Snapshot, userTestID int64, jobIndex int) (*Record, error) {
	user, err := s.userSkills(ctx, "classify_one", userTestID)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Len() == 0 {
		return nil, apperr.NoData("classify_one", "job corpus is empty")
	}
	return s.classify(ctx, snap, user, jobIndex)
}

// ClassifyAll classifies the user against every posting. The result has
// exactly one entry per posting, in corpus order. A job that cannot be
// classified yields a failed entry; the batch continues.
func (s *Service) ClassifyAll(ctx context.Context, snap *corpus.Snapshot, userTestID int64) ([]JobGap, error) {
	if snap == nil || snap.Len() == 0 {
		return nil, apperr.NoData("classify_all", "job corpus is empty")
	}
	user, err := s.userSkills(ctx, "classify_all", userTestID)
	if err != nil {
		return nil, err
	}

	out := make([]JobGap, 0, snap.Len())
	failed := 0
	for _, p := range snap.Postings {
		entry := JobGap{JobIndex: p.Index, JobTitle: p.Title}
		rec, err := s.classify(ctx, snap, user, p.Index)
		if err != nil {
			failed++
			entry.Failed = true
			entry.Error = err.Error()
			entry.GapAnalysis = Analysis{Skills: StatusMap{}, Knowledge: StatusMap{}}
			s.logger.Warn("gap classification failed",
				zap.Int64("user_test_id", userTestID),
				zap.Int("job_index", p.Index),
				zap.Error(err))
		} else {
			entry.JobTitle = rec.JobTitle
			entry.GapAnalysis = rec.Analysis()
		}
		out = append(out, entry)
	}

	s.logger.Info("gap batch complete",
		zap.Int64("user_test_id", userTestID),
		zap.Int("jobs", len(out)),
		zap.Int("failed", failed))
	return out, nil
}

// Record returns the stored record for the pair.
func (s *Service) Record(ctx context.Context, userTestID int64, jobIndex int) (*Record, error) {
	rec, err := s.store.GetGapRecord(ctx, userTestID, jobIndex)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NoData("gap_record", "no gap record for user %d and job %d", userTestID, jobIndex)
	}
	return rec, nil
}

func (s *Service) userSkills(ctx context.Context, op string, userTestID int64) (*UserSkills, error) {
	user, err := s.store.GetUserSkills(ctx, userTestID)
	if err != nil {
		return nil, fmt.Errorf("%s: load user skills: %w", op, err)
	}
	if user.Empty() {
		return nil, apperr.NoData(op, "no skills or knowledge stored for user %d", userTestID)
	}
	u := *user
	u.UserTestID = userTestID
	return &u, nil
}

func (s *Service) classify(ctx context.Context, snap *corpus.Snapshot, user *UserSkills, jobIndex int) (*Record, error) {
	p, ok := snap.Posting(jobIndex)
	if !ok {
		return nil, apperr.NoData("classify", "job %d not in corpus of %d postings", jobIndex, snap.Len())
	}
	skills, knowledge, err := s.requirements(ctx, p)
	if err != nil {
		return nil, err
	}

	a := Classify(user.Skills, user.Knowledge, skills, knowledge)
	rec := &Record{
		UserTestID:      user.UserTestID,
		JobIndex:        p.Index,
		JobTitle:        p.Title,
		SkillStatus:     a.Skills,
		KnowledgeStatus: a.Knowledge,
	}
	if err := s.store.SaveGapRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("save gap record for job %d: %w", p.Index, err)
	}
	return rec, nil
}

// requirements prefers stored extracted requirements over the posting's own
// columns.
func (s *Service) requirements(ctx context.Context, p corpus.Posting) (proficiency.Map, proficiency.Map, error) {
	stored, err := s.store.GetJobRequirements(ctx, p.Index)
	if err != nil {
		return proficiency.Map{}, proficiency.Map{}, fmt.Errorf("load requirements for job %d: %w", p.Index, err)
	}
	if stored != nil && stored.ContentHash != p.ContentHash() {
		s.logger.Debug("ignoring stored requirements for a different posting",
			zap.Int("job_index", p.Index),
			zap.String("stored_title", stored.JobTitle),
			zap.String("title", p.Title))
		stored = nil
	}
	if stored != nil && (stored.RequiredSkills.Len() > 0 || stored.RequiredKnowledge.Len() > 0) {
		return stored.RequiredSkills, stored.RequiredKnowledge, nil
	}
	if p.HasRequirements() {
		return p.RequiredSkills, p.RequiredKnowledge, nil
	}
	return proficiency.Map{}, proficiency.Map{}, apperr.NoData("classify", "no requirements recorded for job %d (%s)", p.Index, p.Title)
}
