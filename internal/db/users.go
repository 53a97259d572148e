package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/codemap/internal/gaps"
	"github.com/jonathan/codemap/internal/profile"
)

// GetAssessment loads the responses, follow-up answers and answer key of an
// assessment session. Returns nil, nil if the session does not exist.
func (db *DB) GetAssessment(ctx context.Context, userTestID int64) (*profile.Assessment, error) {
	a := &profile.Assessment{UserTestID: userTestID, Questions: map[int64]profile.Question{}}
	r := &a.Responses
	err := db.pool.QueryRow(ctx,
		`SELECT education_level, cgpa, major, programming_languages,
		        coursework_experience, skill_reflection, career_goals
		 FROM user_tests WHERE id = $1`,
		userTestID,
	).Scan(&r.EducationLevel, &r.CGPA, &r.Major, &r.ProgrammingLanguages,
		&r.CourseworkExperience, &r.SkillReflection, &r.CareerGoals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user test %d: %w", userTestID, err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT question_id, selected_option FROM follow_up_answers
		 WHERE user_test_id = $1 ORDER BY id`,
		userTestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up answers: %w", err)
	}
	a.FollowUps, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (profile.FollowUp, error) {
		var f profile.FollowUp
		err := row.Scan(&f.QuestionID, &f.SelectedOption)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan follow-up answers: %w", err)
	}

	qrows, err := db.pool.Query(ctx,
		`SELECT id, question_text, answer FROM generated_questions WHERE user_test_id = $1`,
		userTestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var q profile.Question
		if err := qrows.Scan(&q.ID, &q.Text, &q.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		a.Questions[q.ID] = q
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return a, nil
}

// SaveAssessment inserts or replaces an assessment session with its
// questions and follow-up answers.
func (db *DB) SaveAssessment(ctx context.Context, a *profile.Assessment) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r := a.Responses
	_, err = tx.Exec(ctx,
		`INSERT INTO user_tests (id, education_level, cgpa, major, programming_languages,
		                         coursework_experience, skill_reflection, career_goals)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			education_level = EXCLUDED.education_level,
			cgpa = EXCLUDED.cgpa,
			major = EXCLUDED.major,
			programming_languages = EXCLUDED.programming_languages,
			coursework_experience = EXCLUDED.coursework_experience,
			skill_reflection = EXCLUDED.skill_reflection,
			career_goals = EXCLUDED.career_goals`,
		a.UserTestID, r.EducationLevel, r.CGPA, r.Major, r.ProgrammingLanguages,
		r.CourseworkExperience, r.SkillReflection, r.CareerGoals,
	)
	if err != nil {
		return fmt.Errorf("failed to save user test %d: %w", a.UserTestID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM follow_up_answers WHERE user_test_id = $1`, a.UserTestID); err != nil {
		return fmt.Errorf("failed to clear follow-up answers: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM generated_questions WHERE user_test_id = $1`, a.UserTestID); err != nil {
		return fmt.Errorf("failed to clear questions: %w", err)
	}
	for _, q := range a.Questions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO generated_questions (id, user_test_id, question_text, answer) VALUES ($1, $2, $3, $4)`,
			q.ID, a.UserTestID, q.Text, q.Answer,
		); err != nil {
			return fmt.Errorf("failed to save question %d: %w", q.ID, err)
		}
	}
	for _, f := range a.FollowUps {
		if _, err := tx.Exec(ctx,
			`INSERT INTO follow_up_answers (user_test_id, question_id, selected_option) VALUES ($1, $2, $3)`,
			a.UserTestID, f.QuestionID, f.SelectedOption,
		); err != nil {
			return fmt.Errorf("failed to save follow-up answer: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetUserSkills returns the live skills/knowledge record, or nil, nil.
func (db *DB) GetUserSkills(ctx context.Context, userTestID int64) (*gaps.UserSkills, error) {
	var skills, knowledge []byte
	err := db.pool.QueryRow(ctx,
		`SELECT skills, knowledge FROM user_skills_knowledge WHERE user_test_id = $1`,
		userTestID,
	).Scan(&skills, &knowledge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user skills %d: %w", userTestID, err)
	}

	us := &gaps.UserSkills{UserTestID: userTestID}
	if err := json.Unmarshal(skills, &us.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills for %d: %w", userTestID, err)
	}
	if err := json.Unmarshal(knowledge, &us.Knowledge); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge for %d: %w", userTestID, err)
	}
	return us, nil
}

// SaveUserSkills replaces the user's skills/knowledge record.
func (db *DB) SaveUserSkills(ctx context.Context, us *gaps.UserSkills) error {
	skills, err := json.Marshal(us.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	knowledge, err := json.Marshal(us.Knowledge)
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO user_skills_knowledge (user_test_id, skills, knowledge)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_test_id) DO UPDATE SET
			skills = EXCLUDED.skills,
			knowledge = EXCLUDED.knowledge,
			updated_at = NOW()`,
		us.UserTestID, string(skills), string(knowledge),
	)
	if err != nil {
		return fmt.Errorf("failed to save user skills %d: %w", us.UserTestID, err)
	}
	return nil
}
