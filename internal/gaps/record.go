package gaps

import (
	"context"
	"encoding/json"

	"github.com/jonathan/codemap/internal/proficiency"
)

// Record is the stored gap analysis for one (user, job) pair. It carries no
// timestamps, so equal inputs encode to equal bytes.
type Record struct {
	UserTestID      int64     `json:"user_test_id"`
	JobIndex        int       `json:"job_index"`
	JobTitle        string    `json:"job_title"`
	SkillStatus     StatusMap `json:"skill_status"`
	KnowledgeStatus StatusMap `json:"knowledge_status"`
}

// Analysis returns the record's status maps as an Analysis.
func (r *Record) Analysis() Analysis {
	return Analysis{Skills: r.SkillStatus, Knowledge: r.KnowledgeStatus}
}

// Encode returns the canonical JSON form of the record.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// UserSkills is the live skills/knowledge record for a user.
type UserSkills struct {
	UserTestID int64           `json:"user_test_id"`
	Skills     proficiency.Map `json:"skills"`
	Knowledge  proficiency.Map `json:"knowledge"`
}

// Empty reports whether the user has neither skills nor knowledge.
func (u *UserSkills) Empty() bool {
	return u == nil || (u.Skills.Len() == 0 && u.Knowledge.Len() == 0)
}

// JobRequirements are the extracted requirement maps for a posting.
// ContentHash is the posting's corpus.Posting.ContentHash at extraction time.
type JobRequirements struct {
	JobIndex          int             `json:"job_index"`
	JobTitle          string          `json:"job_title"`
	ContentHash       string          `json:"content_hash"`
	RequiredSkills    proficiency.Map `json:"required_skills"`
	RequiredKnowledge proficiency.Map `json:"required_knowledge"`
}

// Store is the persistence the gap service needs. Getters return nil, nil
// when the row does not exist.
type Store interface {
	GetUserSkills(ctx context.Context, userTestID int64) (*UserSkills, error)
	GetJobRequirements(ctx context.Context, jobIndex int) (*JobRequirements, error)
	SaveGapRecord(ctx context.Context, rec *Record) error
	GetGapRecord(ctx context.Context, userTestID int64, jobIndex int) (*Record, error)
}
