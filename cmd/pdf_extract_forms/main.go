package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/pdf-form-importer/internal/pdf"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/pdf/ocr"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

// options holds the command line settings
type options struct {
	diagnostic bool
	format     string
	rulesPath  string
	useOCR     bool
	language   string
	dpi        int
}

// FormExtractionResult is the inspection report of one document
type FormExtractionResult struct {
	FilePath         string             `json:"file_path"`
	Pages            int                `json:"pages"`
	StructuredFields map[string]string  `json:"structured_fields"`
	Record           *extraction.Record `json:"record,omitempty"`
	Error            string             `json:"error,omitempty"`
	ExtractionTime   string             `json:"extraction_time,omitempty"`
}

// errOCRDisabled is returned for scanned documents unless --ocr is given
var errOCRDisabled = errors.New("document has no form fields and OCR is disabled (use --ocr)")

type disabledOCR struct{}

func (disabledOCR) RecognizeText(context.Context, string) (string, error) {
	return "", errOCRDisabled
}

func parseFlags(args []string) (*options, []string, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("pdf_extract_forms", pflag.ContinueOnError)
	fs.BoolVar(&opts.diagnostic, "diagnostic", false, "Log every step of form-field detection")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.StringVar(&opts.rulesPath, "rules", "", "Field rule file (built-in rules when empty or missing)")
	fs.BoolVar(&opts.useOCR, "ocr", false, "Run OCR on documents without form fields")
	fs.StringVar(&opts.language, "lang", ocr.DefaultLanguage, "Tesseract language")
	fs.IntVar(&opts.dpi, "dpi", ocr.DefaultDPI, "OCR rendering resolution")
	fs.Usage = func() {
		printHelp(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, nil, fmt.Errorf("unsupported output format: %s", opts.format)
	}
	if fs.NArg() == 0 {
		return nil, nil, fmt.Errorf("PDF file path required")
	}
	return opts, fs.Args(), nil
}

func main() {
	opts, paths, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printHelp(os.Stderr)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !opts.diagnostic {
		logger.SetOutput(io.Discard)
	}

	defs, err := rules.LoadOrDefault(opts.rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
		os.Exit(1)
	}
	set, err := rules.NewSet(defs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in rules: %v\n", err)
		os.Exit(1)
	}

	forms := extraction.NewPDFCPUFormReader(opts.diagnostic, logger)
	var recognizer extraction.TextRecognizer = disabledOCR{}
	if opts.useOCR {
		recognizer = ocr.NewTesseractRecognizer(ocr.Options{
			Language: opts.language,
			DPI:      opts.dpi,
		}, logger, opts.diagnostic)
	}
	engine := extraction.NewEngine(forms, recognizer, logger, opts.diagnostic)
	validator := pdf.NewValidator(0)

	results := make([]*FormExtractionResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, inspect(context.Background(), path, forms, engine, validator, set))
	}

	if err := outputResults(os.Stdout, opts.format, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "PDF Extract Forms - inspect how membership forms are read")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Shows, for each PDF, its page count, the raw form-field dictionary")
	fmt.Fprintln(w, "and the record the importer would produce with the given rules.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_extract_forms [OPTIONS] <pdf_file>...")
	fmt.Fprintln(w)
}

// inspect reads one document; failures are reported in the result
func inspect(ctx context.Context, path string, forms *extraction.PDFCPUFormReader,
	engine *extraction.Engine, validator *pdf.Validator, set rules.Set,
) *FormExtractionResult {
	start := time.Now()

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	result := &FormExtractionResult{FilePath: absPath}

	if err := validator.ValidateFile(absPath); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Pages, _ = validator.PageCount(absPath)

	fields, err := forms.ReadFile(absPath)
	if err != nil {
		result.Error = err.Error()
	}
	result.StructuredFields = fields

	record, err := engine.Extract(ctx, absPath, set)
	if err != nil {
		result.Error = err.Error()
	}
	result.Record = record
	result.ExtractionTime = time.Since(start).Round(time.Millisecond).String()
	return result
}

func outputResults(w io.Writer, format string, results []*FormExtractionResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(results)
	case "text":
		for _, result := range results {
			outputText(w, result)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *FormExtractionResult) {
	fmt.Fprintf(w, "== %s\n", result.FilePath)
	if result.Pages > 0 {
		fmt.Fprintf(w, "Pages: %d\n", result.Pages)
	}

	if len(result.StructuredFields) == 0 {
		fmt.Fprintln(w, "Form fields: none")
	} else {
		fmt.Fprintf(w, "Form fields (%d):\n", len(result.StructuredFields))
		keys := make([]string, 0, len(result.StructuredFields))
		for key := range result.StructuredFields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "  %s = %q\n", key, result.StructuredFields[key])
		}
	}

	if result.Record != nil {
		fmt.Fprintf(w, "Record (%s):\n", result.Record.Method)
		for _, field := range result.Record.Fields {
			fmt.Fprintf(w, "  %s: %s\n", field.Name, field.Value)
		}
	}

	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	if result.ExtractionTime != "" {
		fmt.Fprintf(w, "Time: %s\n", result.ExtractionTime)
	}
	fmt.Fprintln(w)
}
