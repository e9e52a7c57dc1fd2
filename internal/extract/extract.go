// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls plain text out of uploaded supporting documents:
// PDFs, DOCX files, CSV exports, and scanned images (via OCR). Extracted
// text is written to per-document artifacts consumed by the report and
// session stages.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	rawDir  = "raw"
	textDir = "text"
)

// KindForPath classifies a document by its file extension. ok is false for
// unsupported extensions.
func KindForPath(path string) (types.DocumentKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return types.DocPDF, true
	case ".docx":
		return types.DocDOCX, true
	case ".csv":
		return types.DocCSV, true
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return types.DocImage, true
	default:
		return "", false
	}
}

// File extracts the text of a single document, dispatching on extension.
func File(path string, cfg types.ExtractionConfig) (string, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return "", fmt.Errorf("unsupported document format %q", filepath.Ext(path))
	}

	switch kind {
	case types.DocPDF:
		return extractPDF(path)
	case types.DocDOCX:
		return extractDOCX(path)
	case types.DocCSV:
		return extractCSV(path)
	case types.DocImage:
		return extractImage(path, cfg)
	}
	return "", fmt.Errorf("unsupported document format %q", filepath.Ext(path))
}

// BatchResult holds the outcome of a batch extraction run.
type BatchResult struct {
	Extracted int
	Skipped   int
	Failed    int

	// Documents records the per-document outcome, in directory order.
	Documents []types.Document
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Extracted + r.Skipped + r.Failed
}

// HasFailures reports whether any documents failed extraction.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ExtractFile extracts one document and writes the text artifact to
// documentsDir/text/[name].txt. If the artifact exists it skips the work.
func ExtractFile(path string, cfg types.ExtractionConfig, w io.Writer) (skipped bool, err error) {
	name := filepath.Base(path)
	outDir := filepath.Join(cfg.DocumentsDir, textDir)
	outPath := filepath.Join(outDir, name+".txt")

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", name)
		return true, nil
	}

	text, err := File(path, cfg)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return false, fmt.Errorf("creating text directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(addFrontmatter(name, path, text)), 0o644); err != nil {
		return false, fmt.Errorf("writing text artifact: %w", err)
	}

	fmt.Fprintf(w, "extracted: %s (%d chars)\n", name, len(text))
	return false, nil
}

// ExtractBatch processes every document under cfg.DocumentsDir/raw/,
// printing per-file status to w and returning a summary. Unsupported files
// are counted as failures but do not abort the batch.
func ExtractBatch(cfg types.ExtractionConfig, w io.Writer) (BatchResult, error) {
	raw := filepath.Join(cfg.DocumentsDir, rawDir)
	entries, err := os.ReadDir(raw)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading documents directory %s: %w", raw, err)
	}

	var result BatchResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(raw, entry.Name())
		doc := types.Document{
			Name:       entry.Name(),
			SourcePath: path,
			Status:     types.ExtractionNone,
		}
		if kind, ok := KindForPath(path); ok {
			doc.Kind = kind
		}

		skipped, err := ExtractFile(path, cfg, w)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", entry.Name(), err)
			doc.Status = types.ExtractionFailed
			result.Failed++
		case skipped:
			doc.Status = types.ExtractionDone
			doc.TextPath = filepath.Join(cfg.DocumentsDir, textDir, entry.Name()+".txt")
			result.Skipped++
		default:
			doc.Status = types.ExtractionDone
			doc.TextPath = filepath.Join(cfg.DocumentsDir, textDir, entry.Name()+".txt")
			result.Extracted++
		}
		result.Documents = append(result.Documents, doc)
	}

	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		result.Extracted, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// addFrontmatter prepends YAML frontmatter to an extracted text artifact.
func addFrontmatter(name, source, body string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "document: %q\n", name)
	fmt.Fprintf(&b, "source: %q\n", source)
	fmt.Fprintf(&b, "extracted_at: %q\n", ts)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}

// StripFrontmatter returns the body of a text artifact without its YAML
// frontmatter. Content without frontmatter is returned unchanged.
func StripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "---\n")
	if end < 0 {
		return content
	}
	return strings.TrimLeft(rest[end+len("---\n"):], "\n")
}
