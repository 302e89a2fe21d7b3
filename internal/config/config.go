package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeBatch  = "batch"
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultRulesFile   = "field_rules.json"
	DefaultOutputFile  = "members.csv"
	DefaultLanguage    = "fra"
	DefaultDPI         = 300
	DefaultGhostscript = "gs"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "FORM_IMPORT"
)

// Config holds all configuration for the form importer
type Config struct {
	// Run mode and MCP transport
	Mode string // "batch", "stdio" or "server"
	Host string
	Port int

	// Import configuration
	InputDirectory string
	RulesPath      string
	Output         string
	Append         bool
	Workers        int // 0 means one per CPU

	// OCR configuration
	Language    string
	DPI         int
	Ghostscript string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:           ModeBatch,
		Host:           DefaultHost,
		Port:           DefaultPort,
		InputDirectory: currentDir,
		RulesPath:      DefaultRulesFile,
		Output:         DefaultOutputFile,
		Language:       DefaultLanguage,
		DPI:            DefaultDPI,
		Ghostscript:    DefaultGhostscript,
		Version:        "1.0.0",
		ServerName:     "pdf-form-importer",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.InputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.InputDirectory); err == nil {
			cfg.InputDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.InputDirectory)
	viper.SetDefault("rules", cfg.RulesPath)
	viper.SetDefault("output", cfg.Output)
	viper.SetDefault("append", cfg.Append)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("lang", cfg.Language)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("ghostscript", cfg.Ghostscript)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' imports the directory once, 'stdio' or 'server' serve MCP tools")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.InputDirectory, "Directory containing the PDF forms")
	pflag.String("rules", cfg.RulesPath, "Field rule file (JSON); built-in rules are used when it does not exist")
	pflag.String("output", cfg.Output, "CSV output file, relative to the input directory unless absolute")
	pflag.Bool("append", cfg.Append, "Append rows to an existing CSV instead of replacing it")
	pflag.Int("workers", cfg.Workers, "Documents processed in parallel (0 = one per CPU)")
	pflag.String("lang", cfg.Language, "Tesseract language for scanned forms")
	pflag.Int("dpi", cfg.DPI, "Rendering resolution for OCR")
	pflag.String("ghostscript", cfg.Ghostscript, "Ghostscript executable used to render pages")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "rules", "output", "append", "workers",
		"lang", "dpi", "ghostscript", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Form Importer - extracts membership forms from PDF files into CSV\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                        "+
			"# import every PDF into members.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms --output=/tmp/out.csv  "+
			"# custom output file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/to/forms           # MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                   # MCP tools over SSE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE, %s_DIR, %s_RULES, %s_OUTPUT, %s_WORKERS,\n",
			envPrefix, envPrefix, envPrefix, envPrefix, envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LANG, %s_DPI, %s_GHOSTSCRIPT, %s_LOGLEVEL, %s_MAXFILESIZE\n",
			envPrefix, envPrefix, envPrefix, envPrefix, envPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.InputDirectory = viper.GetString("dir")
	cfg.RulesPath = viper.GetString("rules")
	cfg.Output = viper.GetString("output")
	cfg.Append = viper.GetBool("append")
	cfg.Workers = viper.GetInt("workers")
	cfg.Language = viper.GetString("lang")
	cfg.DPI = viper.GetInt("dpi")
	cfg.Ghostscript = viper.GetString("ghostscript")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBatch, ModeStdio, ModeServer:
	default:
		return errors.New("mode must be one of 'batch', 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.InputDirectory == "" {
		return errors.New("input directory cannot be empty")
	}

	if _, err := os.Stat(c.InputDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.InputDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create input directory %s: %w", c.InputDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDirectory, err)
	}

	if c.Mode == ModeBatch && c.Output == "" {
		return errors.New("output file cannot be empty in batch mode")
	}

	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	if c.Language == "" {
		return errors.New("OCR language cannot be empty")
	}

	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 72 and 1200, got %d", c.DPI)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, InputDirectory: %s, RulesPath: %s, Output: %s, Workers: %d, "+
		"Language: %s, DPI: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.InputDirectory, c.RulesPath, c.Output, c.Workers,
		c.Language, c.DPI, c.LogLevel, c.MaxFileSize)
}

// IsBatchMode returns true if the importer runs once over the input directory
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

// IsServerMode returns true if MCP tools are served over HTTP
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if MCP tools are served over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
