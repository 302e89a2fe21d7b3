package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultFilePerm is used when writing the rule file
	DefaultFilePerm = 0o644
)

// LoadFile reads a JSON array of definitions. A missing file is reported
// with an error wrapping os.ErrNotExist so callers can fall back to defaults.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return []Definition{}, nil
	}

	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}
	return defs, nil
}

// LoadOrDefault loads path, or returns Default() when the file does not exist
func LoadOrDefault(path string) ([]Definition, error) {
	if path == "" {
		return Default(), nil
	}
	defs, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return defs, err
}

// SaveFile writes defs as indented JSON, replacing the file atomically
func SaveFile(path string, defs []Definition) error {
	if defs == nil {
		defs = []Definition{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(defs); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rules-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp rule file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rule file: %w", err)
	}
	if err := tmp.Chmod(DefaultFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set rule file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close rule file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace rule file: %w", err)
	}
	return nil
}
