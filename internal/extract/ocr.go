//go:build ocr

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// recognizeImage runs Tesseract over PNG or JPEG image data and returns the
// recognized text. Requires the tesseract-ocr system package.
func recognizeImage(imageData []byte, lang string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if lang != "" {
		if err := client.SetLanguage(lang); err != nil {
			return "", fmt.Errorf("setting OCR language %q: %w", lang, err)
		}
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("setting OCR image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running OCR: %w", err)
	}
	return strings.TrimSpace(text), nil
}
