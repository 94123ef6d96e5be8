package storage

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"flip-analyzer/models"
)

// JSONWriter writes the full scored results, including breakdowns and
// profit figures, as a pretty-printed JSON document.
type JSONWriter struct {
	path string
}

// NewJSONWriter prepares a writer for the given path. Intermediate
// directories are created automatically.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{path: path}, nil
}

// Write replaces the output file with the given scores.
func (j *JSONWriter) Write(scores []models.AddressScore) error {
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode scores: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", j.path, err)
	}
	return nil
}

func (j *JSONWriter) Close() error { return nil }
