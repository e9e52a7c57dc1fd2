// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF extracts the text of every page of a PDF. pdfcpu writes raw
// content streams to a temp directory; the text is then scraped from the
// text-show operators in each stream.
func extractPDF(path string) (string, error) {
	conf := model.NewDefaultConfiguration()

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("reading PDF page count: %w", err)
	}
	if pageCount == 0 {
		return "", nil
	}

	tempDir, err := os.MkdirTemp("", "qeeg_pdf_*")
	if err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractContentFile(path, tempDir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting PDF content: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var pages []string
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		contentFile := filepath.Join(tempDir, fmt.Sprintf("%s_Content_page_%d.txt", baseName, pageNum))
		raw, err := os.ReadFile(contentFile)
		if err != nil {
			// Blank pages produce no content file.
			continue
		}
		if text := scrapeContentStream(string(raw)); text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// scrapeContentStream pulls the literal strings out of the text-show
// operators (Tj, TJ, ', ") of a raw PDF content stream.
func scrapeContentStream(content string) string {
	var texts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, " Tj") && !strings.Contains(line, " TJ") &&
			!strings.Contains(line, "' ") && !strings.Contains(line, "\" ") {
			continue
		}
		texts = append(texts, literalStrings(line)...)
	}
	return cleanPDFText(strings.Join(texts, " "))
}

// literalStrings returns the unescaped ( ... ) literals in an operator line.
func literalStrings(line string) []string {
	var texts []string
	inText := false
	start := -1

	for i, char := range line {
		switch {
		case char == '(' && (i == 0 || line[i-1] != '\\'):
			inText = true
			start = i + 1
		case char == ')' && inText && (i == 0 || line[i-1] != '\\'):
			if start != -1 && start < i {
				text := line[start:i]
				text = strings.ReplaceAll(text, "\\(", "(")
				text = strings.ReplaceAll(text, "\\)", ")")
				text = strings.ReplaceAll(text, "\\\\", "\\")
				text = strings.ReplaceAll(text, "\\n", "\n")
				text = strings.ReplaceAll(text, "\\r", "\r")
				text = strings.ReplaceAll(text, "\\t", "\t")
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
			}
			inText = false
			start = -1
		}
	}
	return texts
}

var octalReplacements = map[string]string{
	"\\037": "",
	"\\260": "°",
	"\\256": "®",
	"\\251": "©",
	"\\231": "'",
	"\\221": "'",
	"\\223": "\"",
	"\\224": "\"",
	"\\226": "–",
	"\\227": "—",
	"\\240": " ",
	"\\012": "\n",
	"\\015": "\r",
	"\\011": "\t",
}

// cleanPDFText normalizes scraped text: known octal escapes are mapped to
// their characters, unknown ones dropped, control characters replaced.
func cleanPDFText(text string) string {
	text = strings.TrimSpace(text)
	for octal, replacement := range octalReplacements {
		text = strings.ReplaceAll(text, octal, replacement)
	}
	text = dropUnknownOctals(text)
	text = stripControlChars(text)

	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	text = strings.ReplaceAll(text, " .", ".")
	text = strings.ReplaceAll(text, " ,", ",")
	return text
}

func dropUnknownOctals(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		if i+3 < len(text) && text[i] == '\\' && isOctalDigit(text[i+1]) &&
			isOctalDigit(text[i+2]) && isOctalDigit(text[i+3]) {
			i += 4
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

func stripControlChars(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch {
		case char == '\n' || char == '\r' || char == '\t':
			b.WriteRune(char)
		case char < 32:
			b.WriteRune(' ')
		case strconv.IsPrint(char):
			b.WriteRune(char)
		}
	}
	return b.String()
}
