package descriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		t.Run(name, func(t *testing.T) {
			desc := GetToolDescription(name)
			assert.NotEmpty(t, desc)
			assert.Contains(t, desc, "**When to use:**")
		})
	}

	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}

func TestGetAllToolNames(t *testing.T) {
	assert.Equal(t, []string{
		"forms_add_field",
		"forms_extract_file",
		"forms_import_directory",
		"forms_list_fields",
		"forms_remove_field",
	}, GetAllToolNames())
}
