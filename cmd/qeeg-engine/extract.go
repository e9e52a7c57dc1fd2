// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/extract"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [documents...]",
	Short: "Extract text from uploaded supporting documents",
	Long: `Extract pulls plain text out of clinic documents: PDFs, DOCX files, CSV
exports, and scanned images. Image extraction uses Tesseract OCR and
requires a build with -tags ocr. Text artifacts are written to
documents/text/; documents with existing artifacts are skipped.

With no arguments, every document under documents/raw/ is processed.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("documents-dir", "documents", "base directory for documents (contains raw/, text/)")
	extractCmd.Flags().String("ocr-language", "", "Tesseract language string for image OCR (default eng)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	documentsDir, _ := cmd.Flags().GetString("documents-dir")
	ocrLanguage, _ := cmd.Flags().GetString("ocr-language")

	cfg := types.ExtractionConfig{
		DocumentsDir: documentsDir,
		OCRLanguage:  ocrLanguage,
	}

	if len(args) == 0 {
		result, err := extract.ExtractBatch(cfg, os.Stdout)
		if err != nil {
			return err
		}
		if result.HasFailures() {
			return fmt.Errorf("%d document(s) failed extraction", result.Failed)
		}
		return nil
	}

	failed := 0
	for _, path := range args {
		if _, err := extract.ExtractFile(path, cfg, os.Stdout); err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed extraction", failed)
	}
	return nil
}
