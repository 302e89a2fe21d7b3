package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Search discovers input documents
type Search struct{}

// NewSearch creates a new PDF search handler
func NewSearch() *Search {
	return &Search{}
}

// FindPDFs lists the *.pdf files directly inside directory in name order.
// A non-empty query keeps only the files whose name matches it. Files are
// not validated here so that bad inputs surface as import failures.
func (s *Search) FindPDFs(directory, query string) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory does not exist: %s", directory)
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isPDFFile(entry.Name()) {
			continue
		}
		if query != "" && !s.matchesQuery(entry.Name(), query) {
			continue
		}

		file := FileInfo{
			Path: filepath.Join(directory, entry.Name()),
			Name: entry.Name(),
		}
		if info, err := entry.Info(); err == nil {
			file.Size = info.Size()
			file.ModifiedTime = info.ModTime().Format("2006-01-02 15:04:05")
		}
		files = append(files, file)
	}

	return files, nil
}

// matchesQuery reports whether every word of query occurs in the file name
func (s *Search) matchesQuery(filename, query string) bool {
	name := strings.TrimSuffix(strings.ToLower(filename), ".pdf")
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(name)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// splitIntoWords splits a string into words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(" _-.()[]", r)
	})
}
