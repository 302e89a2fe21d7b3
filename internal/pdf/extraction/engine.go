package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

// FormReader reads a document's embedded form-field dictionary. A nil or
// empty map means the document has no structured data.
type FormReader interface {
	FormFields(path string) map[string]string
}

// TextRecognizer produces the OCR text of every page of a document, pages
// joined by newlines in page order.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, path string) (string, error)
}

// Engine extracts records from documents. It holds no rule state: each call
// receives the rule-set snapshot it must use.
type Engine struct {
	forms     FormReader
	ocr       TextRecognizer
	logger    *log.Logger
	debugMode bool
}

// NewEngine creates an extraction engine. A nil logger uses the standard logger.
func NewEngine(forms FormReader, ocr TextRecognizer, logger *log.Logger, debugMode bool) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		forms:     forms,
		ocr:       ocr,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Extract produces the record of one document using set. Rule errors are
// returned before the document is opened.
func (e *Engine) Extract(ctx context.Context, path string, set rules.Set) (*Record, error) {
	parser, err := NewParser(set)
	if err != nil {
		return nil, err
	}
	return e.extract(ctx, path, parser)
}

func (e *Engine) extract(ctx context.Context, path string, parser *Parser) (*Record, error) {
	record := &Record{Source: filepath.Base(path)}

	if values := e.forms.FormFields(path); len(values) > 0 {
		e.debugf("Using structured form fields for %s (%d entries)", record.Source, len(values))
		record.Fields = parser.FromStructured(values)
		record.Method = MethodStructured
		return record, nil
	}

	e.debugf("No structured form fields in %s, running OCR", record.Source)
	text, err := e.ocr.RecognizeText(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeCancelled,
				"text recognition interrupted", ctxErr).WithFile(path)
		}
		var pdfErr *pdferrors.PDFError
		if errors.As(err, &pdfErr) && pdfErr.Type == pdferrors.ErrorTypeOCRAcquisition {
			return nil, pdfErr.WithFile(path)
		}
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeOCRAcquisition,
			"text recognition failed", err).WithFile(path)
	}

	record.Fields = parser.Parse(Normalize(text))
	record.Method = MethodOCR
	return record, nil
}

// BatchResult is the outcome of ExtractAll. Records keep input order and
// exclude failed documents, which are listed in Failures.
type BatchResult struct {
	Columns  []string
	Records  []*Record
	Failures *pdferrors.ErrorCollection
}

// ExtractAll extracts every document with one rule-set snapshot, running up
// to workers documents at a time (NumCPU when workers < 1). A malformed rule
// set is reported before any document is read. A per-document failure is
// logged and skipped. If ctx is cancelled no further documents are started
// and a document interrupted mid-recognition is dropped without being counted
// as failed; the partial result is returned together with the context error.
func (e *Engine) ExtractAll(ctx context.Context, paths []string, set rules.Set, workers int) (*BatchResult, error) {
	parser, err := NewParser(set)
	if err != nil {
		return nil, err
	}

	if workers < 1 {
		workers = runtime.NumCPU()
	}

	results := make([]*Record, len(paths))
	failures := pdferrors.NewErrorCollection()

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Printf("Processing %s", filepath.Base(path))
			record, err := e.extract(ctx, path, parser)
			if err != nil {
				if !pdferrors.TypeOf(err).IsDocumentScoped() {
					e.debugf("Stopped %s: %v", filepath.Base(path), err)
					return nil
				}
				failed := failures.Add(path, err)
				e.logger.Printf("Skipping %s: %v", filepath.Base(path), failed)
				return nil
			}
			results[i] = record
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{
		Columns:  append(parser.Names(), SourceColumn),
		Records:  make([]*Record, 0, len(paths)),
		Failures: failures,
	}
	for _, record := range results {
		if record != nil {
			batch.Records = append(batch.Records, record)
		}
	}

	if err := ctx.Err(); err != nil {
		return batch, pdferrors.WrapError(pdferrors.ErrorTypeCancelled,
			fmt.Sprintf("batch stopped after %d of %d document(s)", len(batch.Records)+failures.Count(), len(paths)),
			err)
	}
	return batch, nil
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if e.debugMode {
		e.logger.Printf(format, args...)
	}
}
