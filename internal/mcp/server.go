package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-form-importer/internal/config"
	"github.com/a3tai/pdf-form-importer/internal/descriptions"
	"github.com/a3tai/pdf-form-importer/internal/pdf"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"forms_list_fields",
		mcp.WithDescription(descriptions.FormsListFieldsDescription),
	), s.handleListFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"forms_add_field",
		mcp.WithDescription(descriptions.FormsAddFieldDescription),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Field name, used as the CSV column header"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Field type"),
			mcp.Enum(string(rules.KindText), string(rules.KindNumber), string(rules.KindCheckbox)),
		),
		mcp.WithString("pattern",
			mcp.Description("Optional regular expression applied to OCR text"),
		),
		mcp.WithString("structured_key",
			mcp.Description("Optional fillable-form field name (defaults to the lower-cased name)"),
		),
		mcp.WithString("checked_value",
			mcp.Description("Checkbox value when ticked (default 1)"),
		),
		mcp.WithString("unchecked_value",
			mcp.Description("Checkbox value when not ticked (default 0)"),
		),
	), s.handleAddField)

	s.mcpServer.AddTool(mcp.NewTool(
		"forms_remove_field",
		mcp.WithDescription(descriptions.FormsRemoveFieldDescription),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the field to remove"),
		),
	), s.handleRemoveField)

	s.mcpServer.AddTool(mcp.NewTool(
		"forms_extract_file",
		mcp.WithDescription(descriptions.FormsExtractFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF file path, absolute or relative to the input directory"),
		),
	), s.handleExtractFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"forms_import_directory",
		mcp.WithDescription(descriptions.FormsImportDirectoryDescription),
		mcp.WithString("directory",
			mcp.Description("Directory to import (uses the input directory if empty)"),
		),
		mcp.WithString("output",
			mcp.Description("CSV file to write (uses the configured output if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file-name filter"),
		),
		mcp.WithBoolean("append",
			mcp.Description("Append to an existing CSV instead of replacing it"),
		),
	), s.handleImportDirectory)
}

// Handler functions
func (s *Server) handleListFields(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatFieldsResult(s.pdfService.ListFields())), nil
}

func (s *Server) handleAddField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.AddField(pdf.AddFieldRequest{
		Name:           name,
		Type:           rules.Kind(kind),
		Pattern:        request.GetString("pattern", ""),
		StructuredKey:  request.GetString("structured_key", ""),
		CheckedValue:   request.GetString("checked_value", ""),
		UncheckedValue: request.GetString("unchecked_value", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Field added\n\n" + s.formatFieldsResult(result)), nil
}

func (s *Server) handleRemoveField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.RemoveField(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Field %s removed\n\n", name) + s.formatFieldsResult(result)), nil
}

func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.pdfService.ExtractFile(ctx, pdf.ExtractFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatRecord(record)), nil
}

func (s *Server) handleImportDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.ImportRequest{
		Directory: request.GetString("directory", ""),
		Output:    request.GetString("output", ""),
		Query:     request.GetString("query", ""),
		Append:    request.GetBool("append", false),
	}

	result, err := s.pdfService.ImportDirectory(ctx, req)
	if err != nil {
		if result == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error() + "\n\n" + s.formatImportResult(result)), nil
	}

	return mcp.NewToolResultText(s.formatImportResult(result)), nil
}

func (s *Server) formatFieldsResult(result *pdf.FieldsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field rules (%d):\n", len(result.Fields))
	for i, def := range result.Fields {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, def.Name, def.Type)
		fmt.Fprintf(&b, "   Form key: %s\n", def.Key())
		fmt.Fprintf(&b, "   Pattern: %s\n", def.EffectivePattern())
		if def.Type == rules.KindCheckbox {
			checked, unchecked := rules.DefaultCheckedValue, rules.DefaultUncheckedValue
			if def.CheckedValue != nil {
				checked = *def.CheckedValue
			}
			if def.UncheckedValue != nil {
				unchecked = *def.UncheckedValue
			}
			fmt.Fprintf(&b, "   Values: %s / %s\n", checked, unchecked)
		}
	}
	fmt.Fprintf(&b, "\nCSV columns: %s\n", strings.Join(result.Columns, ", "))
	return b.String()
}

func (s *Server) formatRecord(record *extraction.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extracted form: %s\n", record.Source)
	fmt.Fprintf(&b, "Method: %s\n\n", record.Method)
	for _, field := range record.Fields {
		fmt.Fprintf(&b, "%s: %s\n", field.Name, field.Value)
	}
	return b.String()
}

func (s *Server) formatImportResult(result *pdf.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import of %s\n", result.Directory)
	fmt.Fprintf(&b, "Documents: %d\n", result.Documents)
	fmt.Fprintf(&b, "Imported: %d\n", result.Imported)
	fmt.Fprintf(&b, "Failed: %d\n", result.Failed)
	if result.Output != "" {
		fmt.Fprintf(&b, "Output: %s\n", result.Output)
	}
	fmt.Fprintf(&b, "Summary: %s\n", result.Summary)

	if len(result.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, failure := range result.Failures {
			fmt.Fprintf(&b, "- %s [%s] %s\n", failure.File, failure.Type, failure.Message)
		}
	}

	if result.Output == "" && len(result.Records) > 0 {
		fmt.Fprintf(&b, "\n%s\n", strings.Join(result.Columns, ";"))
		for _, record := range result.Records {
			fmt.Fprintf(&b, "%s\n", strings.Join(record.Values(), ";"))
		}
	}

	return b.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form importer MCP server in stdio mode")
		log.Printf("Input directory: %s", s.pdfService.Directory())
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the tools over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving MCP over SSE on %s", addr)
		errCh <- sseServer.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil
	}
}
