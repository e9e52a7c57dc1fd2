// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX extracts the paragraph text of a .docx file. A docx is a zip
// archive whose word/document.xml holds the body; text lives in <w:t>
// elements and paragraphs end at </w:p>.
func extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx archive: %w", err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	return docxText(rc)
}

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}

	if text := strings.TrimSpace(current.String()); text != "" {
		paragraphs = append(paragraphs, text)
	}
	return strings.Join(paragraphs, "\n"), nil
}
