package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/pdf-form-importer/internal/config"
	"github.com/a3tai/pdf-form-importer/internal/mcp"
	"github.com/a3tai/pdf-form-importer/internal/pdf"
	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/pdf/ocr"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
		return
	}
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// newService wires the rule store, extraction engine and import service
func newService(cfg *config.Config, forms extraction.FormReader, recognizer extraction.TextRecognizer) (*pdf.Service, error) {
	defs, err := rules.LoadOrDefault(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load field rules: %w", err)
	}
	store, err := rules.NewStore(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid field rules in %s: %w", cfg.RulesPath, err)
	}

	logger := log.Default()
	engine := extraction.NewEngine(forms, recognizer, logger, cfg.IsDebug())

	return pdf.NewService(pdf.ServiceConfig{
		Store:       store,
		Engine:      engine,
		MaxFileSize: cfg.MaxFileSize,
		Directory:   cfg.InputDirectory,
		RulesPath:   cfg.RulesPath,
		Output:      cfg.Output,
		Workers:     cfg.Workers,
		Logger:      logger,
	})
}

// runBatchMode imports the input directory once and prints a summary to out
func runBatchMode(ctx context.Context, cfg *config.Config, service *pdf.Service, out io.Writer) error {
	result, err := service.ImportDirectory(ctx, pdf.ImportRequest{
		Output: cfg.Output,
		Append: cfg.Append,
	})
	if result != nil {
		fmt.Fprintf(out, "Imported %d of %d document(s) from %s\n", result.Imported, result.Documents, result.Directory)
		if result.Output != "" {
			fmt.Fprintf(out, "Output: %s\n", result.Output)
		}
		for _, failure := range result.Failures {
			fmt.Fprintf(out, "Skipped %s [%s]: %s\n", failure.File, failure.Type, failure.Message)
		}
	}
	return err
}

// runServerMode serves MCP tools until a signal cancels ctx
func runServerMode(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx); err != nil {
		return err
	}
	log.Println("Server stopped successfully")
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	forms := extraction.NewPDFCPUFormReader(cfg.IsDebug(), log.Default())
	recognizer := ocr.NewTesseractRecognizer(ocr.Options{
		Language:        cfg.Language,
		DPI:             cfg.DPI,
		GhostscriptPath: cfg.Ghostscript,
	}, log.Default(), cfg.IsDebug())

	service, err := newService(cfg, forms, recognizer)
	if err != nil {
		log.Fatalf("Failed to create import service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsBatchMode() {
		if err := runBatchMode(ctx, cfg, service, os.Stdout); err != nil {
			stop()
			if pdferrors.IsType(err, pdferrors.ErrorTypeCancelled) || errors.Is(err, context.Canceled) {
				log.Printf("Import interrupted: %v", err)
				os.Exit(130)
			}
			log.Fatalf("Import failed: %v", err)
		}
		return
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if err := runServerMode(ctx, server); err != nil {
		stop()
		log.Fatalf("Server error: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Form Importer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
