// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/neurova/qeeg-engine/pkg/types"
)

// extractImage OCRs a scanned page image. TIFF scans are transcoded to PNG
// first; Tesseract's TIFF support varies across builds.
func extractImage(path string, cfg types.ExtractionConfig) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		data, err = tiffToPNG(data)
		if err != nil {
			return "", err
		}
	}

	return recognizeImage(data, cfg.OCRLanguage)
}

func tiffToPNG(data []byte) ([]byte, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding tiff: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
