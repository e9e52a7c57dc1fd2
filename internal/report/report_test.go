// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/pkg/types"
)

func testMetrics() types.MetricsFile {
	return types.MetricsFile{
		Recording: types.Recording{
			ID:          "rec-1",
			Format:      "edf",
			DurationSec: 120,
			Channels:    []string{"O1", "O2"},
		},
		AnalyzedAt: time.Now().UTC(),
		Channels: []types.ChannelMetrics{
			{
				Channel:    "O1",
				SampleRate: 256,
				TotalPower: 1.5,
				RelativePower: map[types.Band]float64{
					types.BandDelta: 0.10, types.BandTheta: 0.15, types.BandAlpha: 0.50,
					types.BandBeta: 0.20, types.BandHighBeta: 0.05,
				},
			},
			{
				Channel:    "O2",
				SampleRate: 256,
				TotalPower: 1.2,
				RelativePower: map[types.Band]float64{
					types.BandDelta: 0.12, types.BandTheta: 0.18, types.BandAlpha: 0.45,
					types.BandBeta: 0.19, types.BandHighBeta: 0.06,
				},
			},
		},
		Pairs: []types.PairMetrics{
			{ChannelA: "O1", ChannelB: "O2", Band: types.BandAlpha, Coherence: 0.82, PhaseLagDeg: 12.4},
		},
	}
}

func testFindings() types.FindingsFile {
	return types.FindingsFile{
		RecordingID: "rec-1",
		NormSource:  "builtin",
		Findings: []types.Finding{
			{
				Channel:       "O1",
				Band:          types.BandAlpha,
				RelativePower: 0.50,
				ZScore:        2.0,
				Direction:     types.DirectionElevated,
				BrodmannAreas: []string{"BA17", "BA18"},
				Clinical:      "Elevated Alpha at O1 (z = +2.00): possible dysfunction in BA17, BA18.",
				Patient:       "We found higher Alpha activity in O1, linked to BA17, BA18.",
			},
		},
	}
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", filepath.Base(path), err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("%s does not start with a PDF header", filepath.Base(path))
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	input := Input{
		Metrics:  testMetrics(),
		Findings: testFindings(),
		Excerpts: []Excerpt{{Name: "intake.pdf", Text: "Patient reports poor sleep."}},
	}

	if err := Generate(input, dir, 0); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	assertPDF(t, filepath.Join(dir, ClinicalReportName))
	assertPDF(t, filepath.Join(dir, PatientReportName))

	for _, name := range []string{"Delta", "Theta", "Alpha", "Beta", "High Beta"} {
		if _, err := os.Stat(filepath.Join(dir, name+"_map.png")); err != nil {
			t.Errorf("missing chart %s_map.png: %v", name, err)
		}
	}
}

func TestGenerateWithoutFindings(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(Input{Metrics: testMetrics()}, dir, 0); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assertPDF(t, filepath.Join(dir, PatientReportName))
}

func TestRenderBandChartLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	if err := RenderBandChart([]string{"O1", "O2"}, []float64{0.5}, "Alpha", path); err == nil {
		t.Error("expected error for mismatched channels and values")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate = %q, want %q", got, "abcd")
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate = %q, want %q", got, "abc")
	}
}

func TestGenerateBatch(t *testing.T) {
	base := t.TempDir()
	recordings := filepath.Join(base, "recordings")
	metricsDir := filepath.Join(recordings, "metrics")
	if err := os.MkdirAll(metricsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	data, err := yaml.Marshal(testMetrics())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(metricsDir, "rec-1-metrics.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(metricsDir, "broken-metrics.yaml"), []byte("{:"), 0o644); err != nil {
		t.Fatal(err)
	}

	analysisDir := filepath.Join(base, "analysis")
	findingsDir := filepath.Join(analysisDir, "findings")
	if err := os.MkdirAll(findingsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err = yaml.Marshal(testFindings())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(findingsDir, "rec-1-findings.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := types.ReportConfig{
		RecordingsDir: recordings,
		AnalysisDir:   analysisDir,
		DocumentsDir:  filepath.Join(base, "documents"),
		ReportsDir:    filepath.Join(base, "reports"),
	}

	var out bytes.Buffer
	result, err := GenerateBatch(cfg, &out)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if result.Generated != 1 || result.Skipped != 0 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 generated, 0 skipped, 1 failed", result)
	}

	assertPDF(t, filepath.Join(cfg.ReportsDir, "rec-1", ClinicalReportName))
	assertPDF(t, filepath.Join(cfg.ReportsDir, "rec-1", PatientReportName))

	// Re-running skips the existing report pair.
	result, err = GenerateBatch(cfg, &out)
	if err != nil {
		t.Fatalf("GenerateBatch rerun: %v", err)
	}
	if result.Generated != 0 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("rerun result = %+v, want 0 generated, 1 skipped, 1 failed", result)
	}
}

func TestGenerateBatchMissingMetricsDir(t *testing.T) {
	cfg := types.ReportConfig{RecordingsDir: filepath.Join(t.TempDir(), "absent")}
	if _, err := GenerateBatch(cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing metrics directory")
	}
}
