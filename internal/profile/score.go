// Package profile turns a stored assessment into a profile text, a profile
// embedding and an extracted skills/knowledge record.
package profile

import (
	"math"
	"strings"
)

// NormalizeOption reduces an answer option such as "b. Linked list" to its
// leading letter. Options that do not start with a letter are returned
// trimmed and upper-cased.
func NormalizeOption(opt string) string {
	s := strings.ToUpper(strings.TrimSpace(opt))
	if s == "" {
		return ""
	}
	if c := s[0]; c >= 'A' && c <= 'Z' {
		return string(c)
	}
	return s
}

// QuestionResult is one graded follow-up answer.
type QuestionResult struct {
	QuestionID     int64   `json:"question_id"`
	QuestionText   *string `json:"question_text"`
	SelectedOption string  `json:"selected_option"`
	CorrectAnswer  *string `json:"correct_answer"`
	IsCorrect      bool    `json:"is_correct"`
}

// ScoreResult summarizes graded answers.
type ScoreResult struct {
	Correct         int     `json:"correct"`
	Total           int     `json:"total"`
	ScorePercentage float64 `json:"score_percentage"`
}

// Score returns the share of correct answers as a percentage rounded to two
// decimals. No answers scores 0.
func Score(results []QuestionResult) ScoreResult {
	out := ScoreResult{Total: len(results)}
	for _, r := range results {
		if r.IsCorrect {
			out.Correct++
		}
	}
	if out.Total > 0 {
		pct := float64(out.Correct) / float64(out.Total) * 100
		out.ScorePercentage = math.Round(pct*100) / 100
	}
	return out
}

// Grade marks each follow-up against the answer key. A follow-up whose
// question is unknown is incorrect.
func Grade(a *Assessment) []QuestionResult {
	results := make([]QuestionResult, 0, len(a.FollowUps))
	for _, f := range a.FollowUps {
		r := QuestionResult{QuestionID: f.QuestionID, SelectedOption: f.SelectedOption}
		if q, ok := a.Questions[f.QuestionID]; ok {
			text, answer := q.Text, q.Answer
			r.QuestionText = &text
			r.CorrectAnswer = &answer
			r.IsCorrect = NormalizeOption(q.Answer) == NormalizeOption(f.SelectedOption)
		}
		results = append(results, r)
	}
	return results
}
