package errors

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFError_Error(t *testing.T) {
	cause := errors.New("tesseract exited 1")
	err := WrapError(ErrorTypeOCRAcquisition, "text recognition failed", cause).WithFile("scan.pdf")

	assert.Equal(t, "[OCR_ACQUISITION] text recognition failed: scan.pdf: tesseract exited 1", err.Error())
	assert.ErrorIs(t, err, cause)

	ruleErr := NewPDFError(ErrorTypeMalformedRule, "invalid pattern").WithField("Telephone")
	assert.Equal(t, "[MALFORMED_RULE] invalid pattern (field Telephone)", ruleErr.Error())
}

func TestErrorType_IsDocumentScoped(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want bool
	}{
		{ErrorTypeOCRAcquisition, true},
		{ErrorTypeInvalidDocument, true},
		{ErrorTypeUnknown, true},
		{ErrorTypeMalformedRule, false},
		{ErrorTypeCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.et.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.et.IsDocumentScoped())
		})
	}
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("import: %w", NewPDFError(ErrorTypeOCRAcquisition, "failed"))
	assert.Equal(t, ErrorTypeOCRAcquisition, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("batch: %w", NewPDFError(ErrorTypeCancelled, "stopped"))
	assert.True(t, IsType(err, ErrorTypeCancelled))
	assert.False(t, IsType(err, ErrorTypeOCRAcquisition))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeUnknown))
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection()
	assert.Equal(t, "No errors", ec.Summary())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				ec.Add(fmt.Sprintf("doc%d.pdf", i), NewPDFError(ErrorTypeOCRAcquisition, "failed"))
			} else {
				ec.Add(fmt.Sprintf("doc%d.pdf", i), errors.New("boom"))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, ec.Count())
	assert.Equal(t, "10 document(s) failed, OCR_ACQUISITION: 5, UNKNOWN: 5", ec.Summary())
	for _, err := range ec.Errors {
		assert.NotEmpty(t, err.FilePath)
	}
}
