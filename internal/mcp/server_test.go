package mcp

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-form-importer/internal/config"
	"github.com/a3tai/pdf-form-importer/internal/pdf"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

type stubForms map[string]map[string]string

func (s stubForms) FormFields(path string) map[string]string {
	return s[filepath.Base(path)]
}

type stubOCR map[string]string

func (s stubOCR) RecognizeText(_ context.Context, path string) (string, error) {
	return s[filepath.Base(path)], nil
}

type acceptAll struct{}

func (acceptAll) ValidateFile(string) error { return nil }

type testServer struct {
	*Server
	dir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"dupont.pdf", "scan.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}

	store, err := rules.NewStore([]rules.Definition{
		{Name: "Nom", Type: rules.KindText, Pattern: `Nom\s*:\s*([^\n]+)`},
		rules.NewFieldDefinition("Badge", rules.KindCheckbox),
	})
	require.NoError(t, err)

	quiet := log.New(io.Discard, "", 0)
	engine := extraction.NewEngine(
		stubForms{"dupont.pdf": {"nom": "Dupont", "badge": "Oui"}},
		stubOCR{"scan.pdf": "Nom : Martin\n☑ Badge"},
		quiet, false)

	service, err := pdf.NewService(pdf.ServiceConfig{
		Store:     store,
		Engine:    engine,
		Validator: acceptAll{},
		Directory: dir,
		RulesPath: filepath.Join(t.TempDir(), "rules.json"),
		Workers:   1,
		Logger:    quiet,
	})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.InputDirectory = dir

	server, err := NewServer(cfg, service)
	require.NoError(t, err)
	return &testServer{Server: server, dir: dir}
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := NewServer(cfg, nil)
	assert.ErrorContains(t, err, "pdfService cannot be nil")

	_, err = NewServer(nil, &pdf.Service{})
	assert.ErrorContains(t, err, "config cannot be nil")

	server := newTestServer(t)
	assert.NotNil(t, server.mcpServer)
}

func TestServer_HandleListFields(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleListFields(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Field rules (2):")
	assert.Contains(t, text, "1. Nom (text)")
	assert.Contains(t, text, "2. BADGE (checkbox)")
	assert.Contains(t, text, "Form key: badge")
	assert.Contains(t, text, "Values: 1 / 0")
	assert.Contains(t, text, "CSV columns: Nom, BADGE, SourcePDF")
}

func TestServer_HandleAddAndRemoveField(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleAddField(context.Background(), callRequest(map[string]interface{}{
		"name":          "Ville",
		"type":          "text",
		"pattern":       `Ville\s*:\s*([^\n]+)`,
		"checked_value": "ignored for text",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "3. VILLE (text)")

	result, err = server.handleRemoveField(context.Background(), callRequest(map[string]interface{}{"name": "Nom"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Field Nom removed")
	assert.Contains(t, text, "CSV columns: BADGE, VILLE, SourcePDF")
}

func TestServer_InvalidArguments(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		wantMsg string
	}{
		{name: "add_without_name", handler: server.handleAddField, args: map[string]interface{}{"type": "text"}, wantMsg: "name"},
		{name: "add_without_type", handler: server.handleAddField, args: map[string]interface{}{"name": "Age"}, wantMsg: "type"},
		{name: "add_unknown_type", handler: server.handleAddField, args: map[string]interface{}{"name": "Age", "type": "date"}, wantMsg: "unknown field type"},
		{name: "remove_missing", handler: server.handleRemoveField, args: map[string]interface{}{"name": "Age"}, wantMsg: "field not found"},
		{name: "extract_without_path", handler: server.handleExtractFile, args: map[string]interface{}{}, wantMsg: "path"},
		{name: "extract_outside_directory", handler: server.handleExtractFile, args: map[string]interface{}{"path": "../x.pdf"}, wantMsg: "security validation failed"},
		{name: "import_outside_directory", handler: server.handleImportDirectory, args: map[string]interface{}{"directory": "/"}, wantMsg: "security validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantMsg)
		})
	}
}

func TestServer_HandleExtractFile(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		path       string
		wantMethod string
		wantLines  []string
	}{
		{path: "dupont.pdf", wantMethod: "structured", wantLines: []string{"Nom: Dupont", "BADGE: Oui"}},
		{path: "scan.pdf", wantMethod: "ocr", wantLines: []string{"Nom: Martin", "BADGE: 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result, err := server.handleExtractFile(context.Background(), callRequest(map[string]interface{}{"path": tt.path}))
			require.NoError(t, err)
			require.False(t, result.IsError, extractTextFromResult(result))

			text := extractTextFromResult(result)
			assert.Contains(t, text, "Extracted form: "+tt.path)
			assert.Contains(t, text, "Method: "+tt.wantMethod)
			for _, line := range tt.wantLines {
				assert.Contains(t, text, line)
			}
		})
	}
}

func TestServer_HandleImportDirectory(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleImportDirectory(context.Background(), callRequest(map[string]interface{}{
		"output": "members.csv",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Documents: 2")
	assert.Contains(t, text, "Imported: 2")
	assert.Contains(t, text, "Summary: No errors")

	data, err := os.ReadFile(filepath.Join(server.pdfService.Directory(), "members.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Nom,BADGE,SourcePDF\nDupont,Oui,dupont.pdf\nMartin,1,scan.pdf\n", string(data))
}

func TestServer_HandleImportDirectoryWithoutOutput(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleImportDirectory(context.Background(), callRequest(map[string]interface{}{
		"query": "scan",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.NotContains(t, text, "Output:")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Equal(t, "Martin;1;scan.pdf", lines[len(lines)-1])
}
