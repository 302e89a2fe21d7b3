package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	pagePrefix  = "page-"
	pageSuffix  = ".png"
	pagePattern = pagePrefix + "%04d" + pageSuffix
)

// Rasterizer renders PDF pages to PNG images with Ghostscript
type Rasterizer struct {
	gsPath string
	dpi    int
}

// NewRasterizer creates a rasterizer using the Ghostscript binary at gsPath
func NewRasterizer(gsPath string, dpi int) *Rasterizer {
	if gsPath == "" {
		gsPath = DefaultGhostscript
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{gsPath: gsPath, dpi: dpi}
}

// RenderPages writes one image per page of pdfPath into outDir and returns
// the image paths in page order.
func (r *Rasterizer) RenderPages(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	gsPath, err := exec.LookPath(r.gsPath)
	if err != nil {
		return nil, fmt.Errorf("ghostscript not found (%s): %w", r.gsPath, err)
	}

	cmd := exec.CommandContext(ctx, gsPath,
		"-sDEVICE=png16m",
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		"-dQUIET",
		fmt.Sprintf("-r%d", r.dpi),
		fmt.Sprintf("-sOutputFile=%s", filepath.Join(outDir, pagePattern)),
		pdfPath)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w: %s",
			filepath.Base(pdfPath), err, strings.TrimSpace(string(output)))
	}

	pages, err := listPages(outDir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", filepath.Base(pdfPath))
	}
	return pages, nil
}

// listPages returns the rendered page images of dir ordered by page number
func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	type page struct {
		path string
		nr   int
	}
	var pages []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if nr, ok := pageNumber(entry.Name()); ok {
			pages = append(pages, page{path: filepath.Join(dir, entry.Name()), nr: nr})
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].nr < pages[j].nr })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

func pageNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, pagePrefix) || !strings.HasSuffix(name, pageSuffix) {
		return 0, false
	}
	nr, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pagePrefix), pageSuffix))
	if err != nil || nr < 1 {
		return 0, false
	}
	return nr, true
}
