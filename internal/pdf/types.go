package pdf

import (
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

// FileInfo represents information about an input PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// ImportRequest represents a request to import every PDF of a directory
type ImportRequest struct {
	Directory string `json:"directory"`
	Output    string `json:"output"`
	Query     string `json:"query"`
	Append    bool   `json:"append"`
}

// ExtractFileRequest represents a request to extract a single document
type ExtractFileRequest struct {
	Path string `json:"path"`
}

// AddFieldRequest represents a request to add a field to the rule set.
// Empty optional values are filled in the same way as a new field created
// from its name and type alone.
type AddFieldRequest struct {
	Name           string     `json:"name"`
	Type           rules.Kind `json:"type"`
	Pattern        string     `json:"pattern,omitempty"`
	StructuredKey  string     `json:"structured_key,omitempty"`
	CheckedValue   string     `json:"checked_value,omitempty"`
	UncheckedValue string     `json:"unchecked_value,omitempty"`
}

// Response Types

// ImportResult represents the result of a directory import
type ImportResult struct {
	Directory string               `json:"directory"`
	Output    string               `json:"output,omitempty"`
	Columns   []string             `json:"columns"`
	Records   []*extraction.Record `json:"records"`
	Documents int                  `json:"documents"`
	Imported  int                  `json:"imported"`
	Failed    int                  `json:"failed"`
	Failures  []Failure            `json:"failures,omitempty"`
	Summary   string               `json:"summary"`
}

// Failure describes a skipped document
type Failure struct {
	File    string `json:"file"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// FieldsResult lists the active rule set
type FieldsResult struct {
	Fields  []rules.Definition `json:"fields"`
	Columns []string           `json:"columns"`
}
