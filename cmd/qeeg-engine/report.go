// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/report"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate clinical and patient PDF reports",
	Long: `Report renders a Clinical_Report.pdf and Patient_Report.pdf for every
analyzed recording, embedding findings, document excerpts, recommendation
lists, and per-band distribution charts. Reports land in reports/[id]/;
recordings with existing reports are skipped.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("recordings-dir", "recordings", "base directory for recordings (contains metrics/)")
	reportCmd.Flags().String("analysis-dir", "analysis", "base directory for analysis output (contains findings/)")
	reportCmd.Flags().String("documents-dir", "documents", "base directory for documents (contains text/)")
	reportCmd.Flags().String("reports-dir", "reports", "output directory for PDFs and charts")
	reportCmd.Flags().Int("excerpt-length", 0, "characters of each document included (default 500)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	recordingsDir, _ := cmd.Flags().GetString("recordings-dir")
	analysisDir, _ := cmd.Flags().GetString("analysis-dir")
	documentsDir, _ := cmd.Flags().GetString("documents-dir")
	reportsDir, _ := cmd.Flags().GetString("reports-dir")
	excerptLength, _ := cmd.Flags().GetInt("excerpt-length")

	cfg := types.ReportConfig{
		RecordingsDir: recordingsDir,
		AnalysisDir:   analysisDir,
		DocumentsDir:  documentsDir,
		ReportsDir:    reportsDir,
		ExcerptLength: excerptLength,
	}

	result, err := report.GenerateBatch(cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d report(s) failed generation", result.Failed)
	}
	return nil
}
