// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/qeeg"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [recordings...]",
	Short: "Compute QEEG metrics for EEG recordings",
	Long: `Analyze reads EEG recordings (.edf or .csv), bandpass-filters each
channel, and computes relative band powers plus coherence and phase lag for
channel pairs. Metrics are written to recordings/metrics/ as YAML artifacts;
recordings with existing artifacts are skipped.

With no arguments, every recording under recordings/raw/ is processed.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("recordings-dir", "recordings", "base directory for recordings (contains raw/, metrics/)")
	analyzeCmd.Flags().Float64("sample-rate", 0, "sample rate in Hz for CSV recordings (default 256)")
	analyzeCmd.Flags().Float64("window", 0, "Welch segment length in seconds (default 2)")
	analyzeCmd.Flags().Float64("low-cut", 0, "bandpass low cutoff in Hz (default 1)")
	analyzeCmd.Flags().Float64("high-cut", 0, "bandpass high cutoff in Hz (default 45)")
	analyzeCmd.Flags().StringSlice("pair", nil, "channel pair for coherence, as A-B (default: homologous pairs)")

	rootCmd.AddCommand(analyzeCmd)
}

func analysisConfig(cmd *cobra.Command) types.AnalysisConfig {
	recordingsDir, _ := cmd.Flags().GetString("recordings-dir")
	sampleRate, _ := cmd.Flags().GetFloat64("sample-rate")
	window, _ := cmd.Flags().GetFloat64("window")
	lowCut, _ := cmd.Flags().GetFloat64("low-cut")
	highCut, _ := cmd.Flags().GetFloat64("high-cut")
	pairs, _ := cmd.Flags().GetStringSlice("pair")

	return types.AnalysisConfig{
		RecordingsDir: recordingsDir,
		SampleRate:    sampleRate,
		WindowSec:     window,
		LowCut:        lowCut,
		HighCut:       highCut,
		Pairs:         pairs,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := analysisConfig(cmd)

	if len(args) == 0 {
		result, err := qeeg.AnalyzeBatch(cfg, os.Stdout)
		if err != nil {
			return err
		}
		if result.HasFailures() {
			return fmt.Errorf("%d recording(s) failed analysis", result.Failed)
		}
		return nil
	}

	failed := 0
	for _, path := range args {
		if _, err := qeeg.AnalyzeFile(path, cfg, os.Stdout); err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d recording(s) failed analysis", failed)
	}
	return nil
}
