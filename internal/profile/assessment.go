package profile

import (
	"context"
	"strings"

	"github.com/jonathan/codemap/internal/gaps"
)

// Responses are the free-form answers of an assessment session.
type Responses struct {
	EducationLevel       string   `json:"educationLevel"`
	CGPA                 *float64 `json:"cgpa"`
	Major                string   `json:"major"`
	ProgrammingLanguages string   `json:"programmingLanguages"`
	CourseworkExperience string   `json:"courseworkExperience"`
	SkillReflection      string   `json:"skillReflection"`
	CareerGoals          string   `json:"careerGoals"`
}

// Languages splits the comma-separated programming languages field.
func (r Responses) Languages() []string {
	out := []string{}
	for _, p := range strings.Split(r.ProgrammingLanguages, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FollowUp is one answered follow-up question.
type FollowUp struct {
	QuestionID     int64  `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

// Question is a generated follow-up question with its answer key.
type Question struct {
	ID     int64  `json:"id"`
	Text   string `json:"question_text"`
	Answer string `json:"answer"`
}

// Assessment is everything stored for one assessment session.
type Assessment struct {
	UserTestID int64
	Responses  Responses
	FollowUps  []FollowUp
	Questions  map[int64]Question
}

// Store is the persistence the profile package needs. GetAssessment returns
// nil, nil when the session does not exist.
type Store interface {
	GetAssessment(ctx context.Context, userTestID int64) (*Assessment, error)
	SaveUserSkills(ctx context.Context, us *gaps.UserSkills) error
}
