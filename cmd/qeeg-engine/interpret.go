// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/qeeg"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var interpretCmd = &cobra.Command{
	Use:   "interpret",
	Short: "Derive clinical findings from computed metrics",
	Long: `Interpret compares each channel's relative band powers against a
normative table and emits findings for cells whose Z-score magnitude
crosses the threshold. Cells without normative coverage fall back to a
relative-power threshold. Findings carry Brodmann-area localization and
both clinician-facing and plain-language narratives.

Findings are written to analysis/findings/ as YAML artifacts; metrics with
existing artifacts are skipped.`,
	RunE: runInterpret,
}

func init() {
	interpretCmd.Flags().String("recordings-dir", "recordings", "base directory for recordings (contains metrics/)")
	interpretCmd.Flags().String("analysis-dir", "analysis", "base directory for analysis output (contains findings/)")
	interpretCmd.Flags().String("norms-dir", "norms", "directory holding normative datasets")
	interpretCmd.Flags().Float64("z-threshold", 0, "|z| at which a deviation becomes a finding (default 1.96)")
	interpretCmd.Flags().Float64("relative-threshold", 0, "relative power threshold for cells without norms (default 0.3)")

	rootCmd.AddCommand(interpretCmd)
}

func runInterpret(cmd *cobra.Command, args []string) error {
	recordingsDir, _ := cmd.Flags().GetString("recordings-dir")
	analysisDir, _ := cmd.Flags().GetString("analysis-dir")
	normsDir, _ := cmd.Flags().GetString("norms-dir")
	zThreshold, _ := cmd.Flags().GetFloat64("z-threshold")
	relativeThreshold, _ := cmd.Flags().GetFloat64("relative-threshold")

	cfg := types.InterpretConfig{
		RecordingsDir:     recordingsDir,
		AnalysisDir:       analysisDir,
		NormsDir:          normsDir,
		ZThreshold:        zThreshold,
		RelativeThreshold: relativeThreshold,
	}

	result, err := qeeg.InterpretBatch(cfg, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d recording(s) failed interpretation", result.Failed)
	}
	return nil
}
