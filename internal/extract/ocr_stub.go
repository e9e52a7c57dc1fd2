//go:build !ocr

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "errors"

// ErrOCRNotEnabled is returned when a scanned image needs OCR but OCR
// support was not compiled in. Rebuild with -tags ocr (requires the
// tesseract-ocr system package) to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

func recognizeImage(imageData []byte, lang string) (string, error) {
	return "", ErrOCRNotEnabled
}
