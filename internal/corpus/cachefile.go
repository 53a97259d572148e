package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/codemap/internal/schemas"
)

// cacheFile is the persisted embedding artifact. Row i belongs to posting i.
type cacheFile struct {
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
	CreatedAt  string      `json:"created_at,omitempty"`
	Embeddings [][]float32 `json:"embeddings"`
}

// CacheError means the artifact exists but cannot be used.
type CacheError struct {
	Path    string
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding cache %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding cache %s: %s", e.Path, e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// readCache loads vectors for want postings. The model recorded in the file
// is returned but not compared with the configured one.
func readCache(path string, want int) (vectors [][]float32, model string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if err := schemas.Validate(schemas.EmbeddingCache, data); err != nil {
		return nil, "", &CacheError{Path: path, Message: "schema", Cause: err}
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, "", &CacheError{Path: path, Message: "decode", Cause: err}
	}
	if cf.Count != len(cf.Embeddings) || cf.Count != want {
		return nil, "", &CacheError{
			Path:    path,
			Message: fmt.Sprintf("holds %d vectors (count %d), corpus has %d postings", len(cf.Embeddings), cf.Count, want),
		}
	}
	for i, v := range cf.Embeddings {
		if len(v) != cf.Dimension {
			return nil, "", &CacheError{
				Path:    path,
				Message: fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), cf.Dimension),
			}
		}
	}
	return cf.Embeddings, cf.Model, nil
}

// writeCache persists vectors through a temp file and rename so a crash
// never leaves a truncated artifact behind.
func writeCache(path, model string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	cf := cacheFile{
		Model:      model,
		Dimension:  len(vectors[0]),
		Count:      len(vectors),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Embeddings: vectors,
	}
	data, err := json.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding cache: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close embedding cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move embedding cache into place: %w", err)
	}
	return nil
}
