// Package corpus loads job postings and their embeddings once at startup and
// serves a read-only snapshot to the ranker and gap classifier.
package corpus

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/codemap/internal/proficiency"
	"go.uber.org/zap"
)

// Source column names.
const (
	ColumnTitle             = "Title"
	ColumnDescription       = "Full Job Description"
	ColumnRequiredSkills    = "Required Skills"
	ColumnRequiredKnowledge = "Required Knowledge"
)

// Placeholder is used for a blank title or description.
const Placeholder = "N/A"

// Posting is one job in the corpus. Index is stable for the process lifetime.
type Posting struct {
	Index             int             `json:"job_index"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	RequiredSkills    proficiency.Map `json:"required_skills"`
	RequiredKnowledge proficiency.Map `json:"required_knowledge"`
	Source            string          `json:"source"`
}

// ContentHash identifies the posting's title and description. It changes
// whenever either does, independent of Index.
func (p Posting) ContentHash() string {
	sum := sha256.Sum256([]byte(p.Title + "\x00" + p.Description))
	return hex.EncodeToString(sum[:16])
}

// HasRequirements reports whether the posting carries its own requirement maps.
func (p Posting) HasRequirements() bool {
	return p.RequiredSkills.Len() > 0 || p.RequiredKnowledge.Len() > 0
}

// SourceError describes a source file that was excluded.
type SourceError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("source %s: %s", e.Path, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// errEmptySource marks a source with a header and no rows, or no content at all.
var errEmptySource = errors.New("empty source")

// LoadSources reads every *.csv under dir in lexical order and concatenates
// their postings. Empty, unreadable and unparsable files are logged and skipped.
func LoadSources(dir string, logger *zap.Logger) ([]Posting, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sources in %s: %w", dir, err)
	}
	sort.Strings(paths)

	var postings []Posting
	for _, path := range paths {
		rows, err := readSource(path, logger)
		if err != nil {
			if errors.Is(err, errEmptySource) {
				logger.Info("skipping empty source", zap.String("path", path))
			} else {
				logger.Warn("skipping source", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		for _, p := range rows {
			p.Index = len(postings)
			postings = append(postings, p)
		}
		logger.Info("loaded source", zap.String("path", path), zap.Int("postings", len(rows)))
	}
	return postings, nil
}

func readSource(path string, logger *zap.Logger) ([]Posting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Message: "unreadable", Cause: err}
	}
	defer f.Close()

	return parseSource(f, path, logger)
}

func parseSource(r io.Reader, name string, logger *zap.Logger) ([]Posting, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errEmptySource
	}
	if err != nil {
		return nil, &SourceError{Path: name, Message: "bad header", Cause: err}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	titleCol, ok := cols[ColumnTitle]
	if !ok {
		return nil, &SourceError{Path: name, Message: "missing column " + ColumnTitle}
	}
	descCol, ok := cols[ColumnDescription]
	if !ok {
		return nil, &SourceError{Path: name, Message: "missing column " + ColumnDescription}
	}
	skillsCol, hasSkills := cols[ColumnRequiredSkills]
	knowledgeCol, hasKnowledge := cols[ColumnRequiredKnowledge]

	var out []Posting
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SourceError{Path: name, Message: fmt.Sprintf("parse error near line %d", line), Cause: err}
		}

		p := Posting{
			Title:       orPlaceholder(field(rec, titleCol)),
			Description: orPlaceholder(field(rec, descCol)),
			Source:      filepath.Base(name),
		}
		if hasSkills {
			p.RequiredSkills = levelColumn(field(rec, skillsCol), name, line, ColumnRequiredSkills, logger)
		}
		if hasKnowledge {
			p.RequiredKnowledge = levelColumn(field(rec, knowledgeCol), name, line, ColumnRequiredKnowledge, logger)
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, errEmptySource
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// levelColumn decodes a JSON object cell. A bad cell yields an empty map.
func levelColumn(raw, source string, line int, column string, logger *zap.Logger) proficiency.Map {
	var m proficiency.Map
	if raw == "" {
		return m
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		logger.Warn("ignoring malformed requirement cell",
			zap.String("source", source),
			zap.Int("line", line),
			zap.String("column", column),
			zap.Error(err))
		return proficiency.Map{}
	}
	return m
}
