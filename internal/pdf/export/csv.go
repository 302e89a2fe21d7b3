// Package export writes extracted records as CSV tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
)

const outputFilePerm = 0o644

// WriteCSV writes records to w, one row per record with cells aligned to
// columns. The header row is written first when header is true.
func WriteCSV(w io.Writer, columns []string, records []*extraction.Record, header bool) error {
	cw := csv.NewWriter(w)

	if header {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, col := range columns {
			row[i], _ = record.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", record.Source, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteFile writes records to the CSV file at path. In append mode rows are
// added to an existing file and the header is written only when the file is
// new or empty; otherwise the file is replaced.
func WriteFile(path string, columns []string, records []*extraction.Record, appendMode bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, outputFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}

	header := true
	if appendMode {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to stat output file: %w", err)
		}
		header = info.Size() == 0
	}

	if err := WriteCSV(f, columns, records, header); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
