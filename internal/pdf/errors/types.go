package errors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// PDFError is a document-level failure with enough context to report it and
// decide whether the rest of a batch can continue.
type PDFError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	FilePath  string    `json:"file_path,omitempty"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// ErrorType categorizes failures raised while importing form documents
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeOCRAcquisition
	ErrorTypeMalformedRule
	ErrorTypeInvalidDocument
	ErrorTypeCancelled
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.FilePath != "" {
		msg += fmt.Sprintf(": %s", e.FilePath)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *PDFError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeOCRAcquisition:
		return "OCR_ACQUISITION"
	case ErrorTypeMalformedRule:
		return "MALFORMED_RULE"
	case ErrorTypeInvalidDocument:
		return "INVALID_DOCUMENT"
	case ErrorTypeCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsDocumentScoped reports whether errors of this type only affect the
// document they were raised for and belong in a batch's failure list. Rule
// errors and cancellation stop the whole run instead.
func (et ErrorType) IsDocumentScoped() bool {
	switch et {
	case ErrorTypeMalformedRule, ErrorTypeCancelled:
		return false
	default:
		return true
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps err as a PDFError of the given type
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	e := NewPDFError(errorType, message)
	e.Err = err
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// WithField names the field definition involved
func (e *PDFError) WithField(field string) *PDFError {
	e.Field = field
	return e
}

// IsType reports whether err is a PDFError of type et
func IsType(err error, et ErrorType) bool {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Type == et
	}
	return false
}

// TypeOf returns the type of the PDFError in err's chain, or
// ErrorTypeUnknown for any other error
func TypeOf(err error) ErrorType {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Type
	}
	return ErrorTypeUnknown
}

// ErrorCollection gathers per-document failures of a batch. It is safe for
// concurrent use.
type ErrorCollection struct {
	mu     sync.Mutex
	Errors []*PDFError `json:"errors"`
}

// NewErrorCollection creates an empty collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{Errors: make([]*PDFError, 0)}
}

// Add records err, converting plain errors to ErrorTypeUnknown
func (ec *ErrorCollection) Add(filePath string, err error) *PDFError {
	var pdfErr *PDFError
	if !errors.As(err, &pdfErr) {
		pdfErr = WrapError(ErrorTypeUnknown, "document failed", err)
	}
	if pdfErr.FilePath == "" {
		pdfErr.FilePath = filePath
	}

	ec.mu.Lock()
	ec.Errors = append(ec.Errors, pdfErr)
	ec.mu.Unlock()
	return pdfErr
}

// Count returns the number of recorded failures
func (ec *ErrorCollection) Count() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.Errors)
}

// Summary returns a text summary of the collected failures
func (ec *ErrorCollection) Summary() string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if len(ec.Errors) == 0 {
		return "No errors"
	}

	byType := make(map[ErrorType]int)
	for _, err := range ec.Errors {
		byType[err.Type]++
	}

	summary := fmt.Sprintf("%d document(s) failed", len(ec.Errors))
	for _, et := range []ErrorType{
		ErrorTypeInvalidDocument, ErrorTypeOCRAcquisition, ErrorTypeCancelled, ErrorTypeUnknown,
	} {
		if n := byType[et]; n > 0 {
			summary += fmt.Sprintf(", %s: %d", et, n)
		}
	}
	return summary
}
