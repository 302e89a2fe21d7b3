package pdf

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
	"github.com/a3tai/pdf-form-importer/internal/pdf/export"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/pdf/security"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

// Extractor turns documents into records with a given rule-set snapshot
type Extractor interface {
	Extract(ctx context.Context, path string, set rules.Set) (*extraction.Record, error)
	ExtractAll(ctx context.Context, paths []string, set rules.Set, workers int) (*extraction.BatchResult, error)
}

// DocumentValidator rejects inputs that cannot be imported
type DocumentValidator interface {
	ValidateFile(path string) error
}

// ServiceConfig wires the import service. Validator defaults to a
// Validator limited to MaxFileSize.
type ServiceConfig struct {
	Store       *rules.Store
	Engine      Extractor
	Validator   DocumentValidator
	MaxFileSize int64
	Directory   string
	RulesPath   string
	Output      string
	Workers     int
	Logger      *log.Logger
}

// Service handles form imports by orchestrating the rule store, input
// discovery, validation, extraction and CSV export
type Service struct {
	store         *rules.Store
	engine        Extractor
	validator     DocumentValidator
	search        *Search
	pathValidator *security.PathValidator
	rulesMu       sync.Mutex // serializes rule edits with their rule-file writes
	rulesPath     string
	output        string
	workers       int
	logger        *log.Logger
}

// NewService creates a new import service with all components
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("extraction engine is required")
	}

	pathValidator, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	validator := cfg.Validator
	if validator == nil {
		validator = NewValidator(cfg.MaxFileSize)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		store:         cfg.Store,
		engine:        cfg.Engine,
		validator:     validator,
		search:        NewSearch(),
		pathValidator: pathValidator,
		rulesPath:     cfg.RulesPath,
		output:        cfg.Output,
		workers:       cfg.Workers,
		logger:        logger,
	}, nil
}

// ImportDirectory extracts every PDF of a directory with the current rule
// set and writes the records to the output CSV. Invalid and failing documents
// are reported in the result and skipped. A malformed rule set aborts the
// import before any document is listed or opened. On cancellation the
// records completed so far are still written and returned alongside the error.
func (s *Service) ImportDirectory(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	directory, err := s.pathValidator.ResolveDirectory(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	set := s.store.CurrentRules()
	if _, err := extraction.NewParser(set); err != nil {
		return nil, err
	}

	files, err := s.search.FindPDFs(directory, req.Query)
	if err != nil {
		return nil, err
	}

	failures := pdferrors.NewErrorCollection()
	paths := make([]string, 0, len(files))
	for _, file := range files {
		if err := s.validator.ValidateFile(file.Path); err != nil {
			failed := failures.Add(file.Path, err)
			s.logger.Printf("Skipping %s: %v", file.Name, failed)
			continue
		}
		paths = append(paths, file.Path)
	}

	batch, batchErr := s.engine.ExtractAll(ctx, paths, set, s.workers)
	if batch == nil {
		return nil, batchErr
	}
	for _, failed := range batch.Failures.Errors {
		failures.Add(failed.FilePath, failed)
	}

	result := &ImportResult{
		Directory: directory,
		Columns:   batch.Columns,
		Records:   batch.Records,
		Documents: len(files),
		Imported:  len(batch.Records),
		Failed:    failures.Count(),
		Failures:  describeFailures(failures),
		Summary:   failures.Summary(),
	}

	output := req.Output
	if output == "" {
		output = s.output
	}
	if output != "" {
		if !filepath.IsAbs(output) {
			output = filepath.Join(directory, output)
		}
		if err := export.WriteFile(output, batch.Columns, batch.Records, req.Append); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", output, err)
		}
		result.Output = output
		s.logger.Printf("Wrote %d record(s) to %s", len(batch.Records), output)
	}

	return result, batchErr
}

// ExtractFile extracts a single document with the current rule set
func (s *Service) ExtractFile(ctx context.Context, req ExtractFileRequest) (*extraction.Record, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.ValidateFile(path); err != nil {
		return nil, err
	}
	return s.engine.Extract(ctx, path, s.store.CurrentRules())
}

// ListFields returns the active rule set
func (s *Service) ListFields() *FieldsResult {
	set := s.store.CurrentRules()
	return &FieldsResult{
		Fields:  set.Definitions(),
		Columns: append(set.Names(), extraction.SourceColumn),
	}
}

// AddField appends a field to the rule set and saves the rule file. If the
// file cannot be written the rule set is left unchanged.
func (s *Service) AddField(req AddFieldRequest) (*FieldsResult, error) {
	def, err := definitionFor(req)
	if err != nil {
		return nil, err
	}

	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	previous := s.store.CurrentRules()
	set, err := s.store.AddField(def)
	if err != nil {
		return nil, err
	}
	if err := s.persist(previous, set); err != nil {
		return nil, err
	}
	s.logger.Printf("Added field %s (%s)", def.Name, def.Type)
	return s.ListFields(), nil
}

// RemoveField drops a field from the rule set and saves the rule file. If
// the file cannot be written the rule set is left unchanged.
func (s *Service) RemoveField(name string) (*FieldsResult, error) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	previous := s.store.CurrentRules()
	set, err := s.store.RemoveField(name)
	if err != nil {
		return nil, err
	}
	if err := s.persist(previous, set); err != nil {
		return nil, err
	}
	s.logger.Printf("Removed field %s", name)
	return s.ListFields(), nil
}

// Directory returns the configured input directory
func (s *Service) Directory() string {
	return s.pathValidator.Root()
}

// persist saves set to the rule file, restoring previous in the store when
// the write fails
func (s *Service) persist(previous, set rules.Set) error {
	if s.rulesPath == "" {
		return nil
	}
	if err := rules.SaveFile(s.rulesPath, set.Definitions()); err != nil {
		if restoreErr := s.store.SetRules(previous.Definitions()); restoreErr != nil {
			return fmt.Errorf("failed to save rules: %w (restore failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("failed to save rules, change discarded: %w", err)
	}
	return nil
}

func definitionFor(req AddFieldRequest) (rules.Definition, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return rules.Definition{}, fmt.Errorf("field name cannot be empty")
	}
	kind := rules.Kind(strings.ToLower(strings.TrimSpace(string(req.Type))))
	switch kind {
	case rules.KindText, rules.KindNumber, rules.KindCheckbox:
	default:
		return rules.Definition{}, fmt.Errorf("unknown field type %q (expected text, number or checkbox)", req.Type)
	}

	def := rules.NewFieldDefinition(name, kind)
	if req.Pattern != "" {
		def.Pattern = req.Pattern
	}
	if req.StructuredKey != "" {
		def.StructuredKey = strings.ToLower(req.StructuredKey)
	}
	if kind == rules.KindCheckbox {
		if req.CheckedValue != "" {
			checked := req.CheckedValue
			def.CheckedValue = &checked
		}
		if req.UncheckedValue != "" {
			unchecked := req.UncheckedValue
			def.UncheckedValue = &unchecked
		}
	}
	return def, nil
}

func describeFailures(failures *pdferrors.ErrorCollection) []Failure {
	out := make([]Failure, 0, len(failures.Errors))
	for _, failed := range failures.Errors {
		msg := failed.Message
		if failed.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, failed.Err)
		}
		out = append(out, Failure{
			File:    filepath.Base(failed.FilePath),
			Type:    failed.Type.String(),
			Message: msg,
		})
	}
	return out
}
