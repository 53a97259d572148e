package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/codemap/internal/gaps"
)

// GetJobRequirements returns extracted requirements for a posting, or nil, nil.
func (db *DB) GetJobRequirements(ctx context.Context, jobIndex int) (*gaps.JobRequirements, error) {
	req := &gaps.JobRequirements{JobIndex: jobIndex}
	var skills, knowledge []byte
	err := db.pool.QueryRow(ctx,
		`SELECT job_title, content_hash, required_skills, required_knowledge
		 FROM job_requirements WHERE job_index = $1`,
		jobIndex,
	).Scan(&req.JobTitle, &req.ContentHash, &skills, &knowledge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job requirements %d: %w", jobIndex, err)
	}
	if err := json.Unmarshal(skills, &req.RequiredSkills); err != nil {
		return nil, fmt.Errorf("failed to decode required skills for %d: %w", jobIndex, err)
	}
	if err := json.Unmarshal(knowledge, &req.RequiredKnowledge); err != nil {
		return nil, fmt.Errorf("failed to decode required knowledge for %d: %w", jobIndex, err)
	}
	return req, nil
}

// SaveJobRequirements upserts extracted requirements for a posting.
func (db *DB) SaveJobRequirements(ctx context.Context, req *gaps.JobRequirements) error {
	skills, err := json.Marshal(req.RequiredSkills)
	if err != nil {
		return fmt.Errorf("failed to marshal required skills: %w", err)
	}
	knowledge, err := json.Marshal(req.RequiredKnowledge)
	if err != nil {
		return fmt.Errorf("failed to marshal required knowledge: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO job_requirements (job_index, job_title, content_hash, required_skills, required_knowledge)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_index) DO UPDATE SET
			job_title = EXCLUDED.job_title,
			content_hash = EXCLUDED.content_hash,
			required_skills = EXCLUDED.required_skills,
			required_knowledge = EXCLUDED.required_knowledge,
			updated_at = NOW()`,
		req.JobIndex, req.JobTitle, req.ContentHash, string(skills), string(knowledge),
	)
	if err != nil {
		return fmt.Errorf("failed to save job requirements %d: %w", req.JobIndex, err)
	}
	return nil
}

// SaveGapRecord overwrites the record for (user, job). The row holds only
// the record itself, so repeated saves of one record leave it unchanged.
func (db *DB) SaveGapRecord(ctx context.Context, rec *gaps.Record) error {
	skills, err := json.Marshal(rec.SkillStatus)
	if err != nil {
		return fmt.Errorf("failed to marshal skill status: %w", err)
	}
	knowledge, err := json.Marshal(rec.KnowledgeStatus)
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge status: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO skill_gap_records (user_test_id, job_index, job_title, skill_status, knowledge_status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_test_id, job_index) DO UPDATE SET
			job_title = EXCLUDED.job_title,
			skill_status = EXCLUDED.skill_status,
			knowledge_status = EXCLUDED.knowledge_status`,
		rec.UserTestID, rec.JobIndex, rec.JobTitle, string(skills), string(knowledge),
	)
	if err != nil {
		return fmt.Errorf("failed to save gap record (%d, %d): %w", rec.UserTestID, rec.JobIndex, err)
	}
	return nil
}

// GetGapRecord returns the record for (user, job), or nil, nil.
func (db *DB) GetGapRecord(ctx context.Context, userTestID int64, jobIndex int) (*gaps.Record, error) {
	rec := &gaps.Record{UserTestID: userTestID, JobIndex: jobIndex}
	var skills, knowledge []byte
	err := db.pool.QueryRow(ctx,
		`SELECT job_title, skill_status, knowledge_status
		 FROM skill_gap_records WHERE user_test_id = $1 AND job_index = $2`,
		userTestID, jobIndex,
	).Scan(&rec.JobTitle, &skills, &knowledge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gap record (%d, %d): %w", userTestID, jobIndex, err)
	}
	if err := json.Unmarshal(skills, &rec.SkillStatus); err != nil {
		return nil, fmt.Errorf("failed to decode skill status: %w", err)
	}
	if err := json.Unmarshal(knowledge, &rec.KnowledgeStatus); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge status: %w", err)
	}
	return rec, nil
}
