// Package enrichment turns raw job descriptions into a cleaned summary and
// required skill/knowledge maps using the text-generation collaborator.
package enrichment

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/llm"
	"github.com/jonathan/codemap/internal/logging"
	"github.com/jonathan/codemap/internal/proficiency"
)

var errEmptyOutput = errors.New("empty output")

// ParseLevelMap extracts a name → level object from model output. It strips
// code fences, then tries the whole text, then the outermost {...} span.
// Failure is a CollaboratorParseError.
func ParseLevelMap(raw string) (proficiency.Map, error) {
	m, err := decodeObject[proficiency.Map](raw)
	if err != nil {
		return proficiency.Map{}, parseError("parse level map", raw, err)
	}
	return m, nil
}

// ParseOrDefault is ParseLevelMap with an empty map on failure. The error is
// still returned so callers can mark the field as degraded.
func ParseOrDefault(raw string) (proficiency.Map, error) {
	m, err := ParseLevelMap(raw)
	if err != nil {
		return proficiency.Map{}, err
	}
	return m, nil
}

// SkillsKnowledge is the two-map object returned by user profile extraction.
type SkillsKnowledge struct {
	Skills    proficiency.Map `json:"skills"`
	Knowledge proficiency.Map `json:"knowledge"`
}

// ParseSkillsKnowledge extracts a {"skills": {...}, "knowledge": {...}} object.
// A missing key yields an empty map; a present but malformed one fails.
func ParseSkillsKnowledge(raw string) (SkillsKnowledge, error) {
	out, err := decodeObject[SkillsKnowledge](raw)
	if err != nil {
		return SkillsKnowledge{}, parseError("parse skills and knowledge", raw, err)
	}
	return out, nil
}

func decodeObject[T any](raw string) (T, error) {
	var zero T
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return zero, errEmptyOutput
	}
	var out T
	err := decodeStrict(cleaned, &out)
	if err == nil {
		return out, nil
	}
	if span := llm.ExtractJSONObject(raw); span != "" && span != cleaned {
		var retry T
		if decodeStrict(span, &retry) == nil {
			return retry, nil
		}
	}
	return zero, err
}

// decodeStrict requires s to be exactly one JSON object.
func decodeStrict(s string, out any) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return errors.New("not a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

func parseError(op, raw string, cause error) error {
	return apperr.Wrap(apperr.KindCollaboratorParse, op, cause, "unparsable output %q", logging.Truncate(raw, 120))
}
