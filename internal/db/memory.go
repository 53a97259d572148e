package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jonathan/codemap/internal/gaps"
	"github.com/jonathan/codemap/internal/profile"
	"github.com/jonathan/codemap/internal/proficiency"
)

type recordKey struct {
	user int64
	job  int
}

// Memory is an in-process Store. Gap records are kept encoded, the same way
// they are stored in PostgreSQL.
type Memory struct {
	mu           sync.RWMutex
	assessments  map[int64]*profile.Assessment
	skills       map[int64]*gaps.UserSkills
	requirements map[int]*gaps.JobRequirements
	records      map[recordKey][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		assessments:  make(map[int64]*profile.Assessment),
		skills:       make(map[int64]*gaps.UserSkills),
		requirements: make(map[int]*gaps.JobRequirements),
		records:      make(map[recordKey][]byte),
	}
}

// SaveAssessment stores a copy of a.
func (m *Memory) SaveAssessment(_ context.Context, a *profile.Assessment) error {
	cp := *a
	cp.FollowUps = append([]profile.FollowUp(nil), a.FollowUps...)
	cp.Questions = make(map[int64]profile.Question, len(a.Questions))
	for k, v := range a.Questions {
		cp.Questions[k] = v
	}
	m.mu.Lock()
	m.assessments[a.UserTestID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetAssessment(_ context.Context, userTestID int64) (*profile.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assessments[userTestID], nil
}

func (m *Memory) GetUserSkills(_ context.Context, userTestID int64) (*gaps.UserSkills, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	us, ok := m.skills[userTestID]
	if !ok {
		return nil, nil
	}
	return &gaps.UserSkills{UserTestID: us.UserTestID, Skills: us.Skills.Clone(), Knowledge: us.Knowledge.Clone()}, nil
}

func (m *Memory) SaveUserSkills(_ context.Context, us *gaps.UserSkills) error {
	cp := &gaps.UserSkills{UserTestID: us.UserTestID, Skills: us.Skills.Clone(), Knowledge: us.Knowledge.Clone()}
	m.mu.Lock()
	m.skills[us.UserTestID] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetJobRequirements(_ context.Context, jobIndex int) (*gaps.JobRequirements, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requirements[jobIndex]
	if !ok {
		return nil, nil
	}
	cp := *req
	cp.RequiredSkills = req.RequiredSkills.Clone()
	cp.RequiredKnowledge = req.RequiredKnowledge.Clone()
	return &cp, nil
}

func (m *Memory) SaveJobRequirements(_ context.Context, req *gaps.JobRequirements) error {
	cp := *req
	cp.RequiredSkills = req.RequiredSkills.Clone()
	cp.RequiredKnowledge = req.RequiredKnowledge.Clone()
	m.mu.Lock()
	m.requirements[req.JobIndex] = &cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveGapRecord(_ context.Context, rec *gaps.Record) error {
	b, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode gap record: %w", err)
	}
	m.mu.Lock()
	m.records[recordKey{rec.UserTestID, rec.JobIndex}] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetGapRecord(_ context.Context, userTestID int64, jobIndex int) (*gaps.Record, error) {
	m.mu.RLock()
	b, ok := m.records[recordKey{userTestID, jobIndex}]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var rec gaps.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode gap record: %w", err)
	}
	return &rec, nil
}

// RawGapRecord returns the stored bytes for (user, job).
func (m *Memory) RawGapRecord(userTestID int64, jobIndex int) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.records[recordKey{userTestID, jobIndex}]
	return b, ok
}

// Fixtures seeds a store from a JSON document.
type Fixtures struct {
	Assessments []AssessmentFixture `json:"assessments"`
	UserSkills  []struct {
		UserTestID int64           `json:"user_test_id"`
		Skills     proficiency.Map `json:"skills"`
		Knowledge  proficiency.Map `json:"knowledge"`
	} `json:"user_skills"`
}

// AssessmentFixture is the JSON form of a profile.Assessment.
type AssessmentFixture struct {
	UserTestID int64              `json:"user_test_id"`
	Responses  profile.Responses  `json:"responses"`
	FollowUps  []profile.FollowUp `json:"follow_ups"`
	Questions  []profile.Question `json:"questions"`
}

// Assessment converts the fixture.
func (f AssessmentFixture) Assessment() *profile.Assessment {
	a := &profile.Assessment{
		UserTestID: f.UserTestID,
		Responses:  f.Responses,
		FollowUps:  f.FollowUps,
		Questions:  make(map[int64]profile.Question, len(f.Questions)),
	}
	for _, q := range f.Questions {
		a.Questions[q.ID] = q
	}
	return a
}

// LoadFixtures reads a fixtures file into the store.
func (m *Memory) LoadFixtures(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	for _, a := range fx.Assessments {
		if err := m.SaveAssessment(ctx, a.Assessment()); err != nil {
			return err
		}
	}
	for _, us := range fx.UserSkills {
		if err := m.SaveUserSkills(ctx, &gaps.UserSkills{UserTestID: us.UserTestID, Skills: us.Skills, Knowledge: us.Knowledge}); err != nil {
			return err
		}
	}
	return nil
}
