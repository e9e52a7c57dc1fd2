//go:build !ocr

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurova/qeeg-engine/pkg/types"
)

func TestExtractImageWithoutOCR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := extractImage(path, types.ExtractionConfig{})
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("err = %v, want ErrOCRNotEnabled", err)
	}
}
