package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jonathan/codemap/internal/gaps"
)

// RankVectorRequest is the body of POST /matches. A zero TopK selects the
// default.
type RankVectorRequest struct {
	Vector []float32 `json:"vector" validate:"required,min=1"`
	TopK   int       `json:"top_k,omitempty" validate:"min=0,max=50"`
}

// Validate checks the request against its validate tags.
func (r *RankVectorRequest) Validate() error {
	return validateRequest(r)
}

// rankQuery holds the query parameters of GET /users/{id}/matches.
type rankQuery struct {
	TopK int `json:"top_k" validate:"min=0,max=50"`
}

// ClassifyAllResponse is the body returned by POST /users/{id}/gaps.
type ClassifyAllResponse struct {
	UserTestID int64         `json:"user_test_id"`
	Results    []gaps.JobGap `json:"results"`
	Failed     int           `json:"failed"`
}

// handleHealth reports readiness. It never blocks on the corpus load.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.svc.Readiness())
}

// handleRank ranks the corpus against a user's profile
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	userTestID, err := userTestIDParam(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	topK, err := topKParam(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	resp, err := s.svc.Rank(r.Context(), userTestID, topK)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleRankVector ranks the corpus against a supplied vector
func (s *Server) handleRankVector(w http.ResponseWriter, r *http.Request) {
	var req RankVectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	resp, err := s.svc.RankVector(r.Context(), req.Vector, req.TopK)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAnalyzeSkills refreshes the user's stored skills and knowledge
func (s *Server) handleAnalyzeSkills(w http.ResponseWriter, r *http.Request) {
	userTestID, err := userTestIDParam(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	us, err := s.svc.AnalyzeSkills(r.Context(), userTestID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, us)
}

// handleClassifyAll classifies the user against every posting
func (s *Server) handleClassifyAll(w http.ResponseWriter, r *http.Request) {
	userTestID, err := userTestIDParam(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	results, err := s.svc.ClassifyAll(r.Context(), userTestID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	resp := ClassifyAllResponse{UserTestID: userTestID, Results: results}
	for _, g := range results {
		if g.Failed {
			resp.Failed++
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleClassifyOne classifies the user against one posting and stores it
func (s *Server) handleClassifyOne(w http.ResponseWriter, r *http.Request) {
	userTestID, jobIndex, err := gapParams(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	rec, err := s.svc.ClassifyOne(r.Context(), userTestID, jobIndex)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleGetGapRecord returns a stored gap record
func (s *Server) handleGetGapRecord(w http.ResponseWriter, r *http.Request) {
	userTestID, jobIndex, err := gapParams(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	rec, err := s.svc.GapRecord(r.Context(), userTestID, jobIndex)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func userTestIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("user_test_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ErrValidation{Field: "user_test_id", Message: "must be a positive integer"}
	}
	return id, nil
}

func gapParams(r *http.Request) (int64, int, error) {
	userTestID, err := userTestIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	jobIndex, err := strconv.Atoi(r.PathValue("job_index"))
	if err != nil || jobIndex < 0 {
		return 0, 0, &ErrValidation{Field: "job_index", Message: "must be a non-negative integer"}
	}
	return userTestID, jobIndex, nil
}

// topKParam reads ?top_k. Absent or zero selects the default; values outside
// 0..50 are rejected.
func topKParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top_k")
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrValidation{Field: "top_k", Message: "must be an integer"}
	}
	q := rankQuery{TopK: k}
	if err := validateRequest(&q); err != nil {
		return 0, err
	}
	return q.TopK, nil
}
