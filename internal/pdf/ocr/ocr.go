// Package ocr turns scanned PDF documents into text: Ghostscript renders
// each page and tesseract recognizes it.
package ocr

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"

	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
)

const (
	DefaultLanguage    = "fra"
	DefaultDPI         = 300
	DefaultGhostscript = "gs"
)

// Options configures text acquisition
type Options struct {
	Language        string
	DPI             int
	GhostscriptPath string
	TempDir         string
}

// DefaultOptions returns French recognition at 300 DPI
func DefaultOptions() Options {
	return Options{
		Language:        DefaultLanguage,
		DPI:             DefaultDPI,
		GhostscriptPath: DefaultGhostscript,
	}
}

// TesseractRecognizer produces the text of a whole document, one
// recognition pass per rendered page. It is safe for concurrent use; each
// call owns its own tesseract client.
type TesseractRecognizer struct {
	raster    *Rasterizer
	language  string
	tempDir   string
	logger    *log.Logger
	debugMode bool
}

// NewTesseractRecognizer creates a recognizer from opts
func NewTesseractRecognizer(opts Options, logger *log.Logger, debugMode bool) *TesseractRecognizer {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TesseractRecognizer{
		raster:    NewRasterizer(opts.GhostscriptPath, opts.DPI),
		language:  opts.Language,
		tempDir:   opts.TempDir,
		logger:    logger,
		debugMode: debugMode,
	}
}

// RecognizeText renders every page of path and returns the recognized texts
// joined by newlines in page order. Any failure fails the whole document.
func (t *TesseractRecognizer) RecognizeText(ctx context.Context, path string) (string, error) {
	workDir, err := os.MkdirTemp(t.tempDir, "form-ocr-*")
	if err != nil {
		return "", t.fail(path, "cannot create work directory", err)
	}
	defer os.RemoveAll(workDir)

	pages, err := t.raster.RenderPages(ctx, path, workDir)
	if err != nil {
		return "", t.fail(path, "page rendering failed", err)
	}
	if t.debugMode {
		t.logger.Printf("Rendered %d page(s) of %s", len(pages), filepath.Base(path))
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", t.fail(path, "cannot select OCR language", err)
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		if err := client.SetImage(page); err != nil {
			return "", t.fail(path, fmt.Sprintf("cannot load page %d", i+1), err)
		}
		text, err := client.Text()
		if err != nil {
			return "", t.fail(path, fmt.Sprintf("text recognition failed on page %d", i+1), err)
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, "\n"), nil
}

func (t *TesseractRecognizer) fail(path, message string, err error) error {
	return pdferrors.WrapError(pdferrors.ErrorTypeOCRAcquisition, message, err).WithFile(path)
}
