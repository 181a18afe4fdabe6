package document

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML interchange form: a document plus its optional analysis.
type File struct {
	Document Document          `yaml:"document"`
	Analysis *SemanticAnalysis `yaml:"analysis,omitempty"`
}

// Load reads and validates a document file from disk.
func Load(path string) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, data, nil
}

// Parse decodes and validates a document file. Unknown fields are rejected so
// misspelled block keys do not silently drop declarations.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if err := f.Document.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if f.Analysis != nil {
		if err := f.Analysis.Validate(); err != nil {
			return nil, fmt.Errorf("invalid analysis: %w", err)
		}
	}
	return &f, nil
}

// Marshal renders a document file back to YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
