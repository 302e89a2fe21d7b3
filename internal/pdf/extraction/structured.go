package extraction

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth bounds recursion through the Kids hierarchy
const maxFieldDepth = 32

// PDFCPUFormReader reads the AcroForm field dictionary of a PDF using pdfcpu
type PDFCPUFormReader struct {
	debugMode bool
	logger    *log.Logger
}

// NewPDFCPUFormReader creates a new form reader. A nil logger uses the
// standard logger.
func NewPDFCPUFormReader(debugMode bool, logger *log.Logger) *PDFCPUFormReader {
	if logger == nil {
		logger = log.Default()
	}
	return &PDFCPUFormReader{
		debugMode: debugMode,
		logger:    logger,
	}
}

// FormFields returns the document's field values keyed by lower-cased fully
// qualified field name. It returns nil when the document has no form fields
// or the dictionary cannot be read; callers fall back to OCR in that case.
func (fr *PDFCPUFormReader) FormFields(path string) (fields map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			fr.debugf("Structured read panicked on %s: %v", path, r)
			fields = nil
		}
	}()

	fields, err := fr.ReadFile(path)
	if err != nil {
		fr.debugf("Structured read failed on %s: %v", path, err)
		return nil
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ReadFile reads the form fields of the PDF at path
func (fr *PDFCPUFormReader) ReadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	return fr.ReadFrom(file)
}

// ReadFrom reads the form fields of the PDF in rs
func (fr *PDFCPUFormReader) ReadFrom(rs io.ReadSeeker) (map[string]string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	return fr.fieldsFromContext(ctx)
}

func (fr *PDFCPUFormReader) fieldsFromContext(ctx *model.Context) (map[string]string, error) {
	out := make(map[string]string)

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		fr.debugf("No AcroForm dictionary found in document")
		return out, nil
	}

	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return out, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		fr.debugf("No Fields array found in AcroForm")
		return out, nil
	}

	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	w := &fieldWalker{ctx: ctx, out: out, seen: make(map[int]bool)}
	for i, fieldRef := range fieldsArray {
		if err := w.walk(fieldRef, "", nil, 0); err != nil {
			fr.debugf("Error processing field %d: %v", i, err)
		}
	}

	fr.debugf("Read %d structured field(s)", len(out))
	return out, nil
}

func (fr *PDFCPUFormReader) debugf(format string, args ...interface{}) {
	if fr.debugMode {
		fr.logger.Printf(format, args...)
	}
}

type fieldWalker struct {
	ctx  *model.Context
	out  map[string]string
	seen map[int]bool
}

// walk records terminal fields below obj. Partial names (T) are joined with
// dots and values (V) are inherited from ancestors.
func (w *fieldWalker) walk(obj types.Object, parentName string, inherited types.Object, depth int) error {
	if depth > maxFieldDepth {
		return fmt.Errorf("field hierarchy deeper than %d", maxFieldDepth)
	}
	if ref, ok := obj.(types.IndirectRef); ok {
		nr := int(ref.ObjectNumber)
		if w.seen[nr] {
			return fmt.Errorf("field object %d visited twice", nr)
		}
		w.seen[nr] = true
	}

	fieldDict, err := w.ctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil
	}

	name := parentName
	if nameObj, found := fieldDict.Find("T"); found {
		if partial, err := w.ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && partial != "" {
			name = joinFieldName(parentName, partial)
		}
	}

	value := inherited
	if valueObj, found := fieldDict.Find("V"); found {
		value = valueObj
	}

	var childFields []types.Object
	if kidsObj, found := fieldDict.Find("Kids"); found {
		kids, err := w.ctx.DereferenceArray(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to dereference Kids of %q: %w", name, err)
		}
		for _, kid := range kids {
			kidDict, err := w.ctx.DereferenceDict(kid)
			if err != nil || kidDict == nil {
				continue
			}
			// Kids without a partial name are widget annotations of this field.
			if _, isField := kidDict.Find("T"); isField {
				childFields = append(childFields, kid)
			}
		}
	}

	if len(childFields) == 0 {
		if name != "" {
			w.out[strings.ToLower(name)] = w.valueString(value)
		}
		return nil
	}

	for _, kid := range childFields {
		if err := w.walk(kid, name, value, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// valueString renders a field value the way it is written to a record
func (w *fieldWalker) valueString(obj types.Object) string {
	if obj == nil {
		return ""
	}

	o, err := w.ctx.Dereference(obj)
	if err != nil || o == nil {
		return ""
	}

	switch v := o.(type) {
	case types.StringLiteral, types.HexLiteral:
		if s, err := w.ctx.DereferenceStringOrHexLiteral(v, model.V10, nil); err == nil {
			return s
		}
	case types.Name:
		return string(v)
	case types.Integer:
		return strconv.Itoa(int(v))
	case types.Float:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case types.Boolean:
		return strconv.FormatBool(bool(v))
	case types.Array:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, w.valueString(item))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func joinFieldName(parent, partial string) string {
	if parent == "" {
		return partial
	}
	return parent + "." + partial
}
