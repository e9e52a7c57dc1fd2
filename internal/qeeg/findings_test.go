// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/internal/norms"
	"github.com/neurova/qeeg-engine/pkg/types"
)

// metricsFixture builds a metrics artifact with the given relative alpha
// power at O1 and neutral values elsewhere.
func metricsFixture(alphaO1 float64) *types.MetricsFile {
	neutral := map[types.Band]float64{
		types.BandDelta:    0.25,
		types.BandTheta:    0.18,
		types.BandAlpha:    0.30,
		types.BandBeta:     0.20,
		types.BandHighBeta: 0.07,
	}

	mk := func(label string, alpha float64) types.ChannelMetrics {
		rel := make(map[types.Band]float64, len(neutral))
		for k, v := range neutral {
			rel[k] = v
		}
		rel[types.BandAlpha] = alpha
		return types.ChannelMetrics{
			Channel:       label,
			SampleRate:    256,
			TotalPower:    1,
			RelativePower: rel,
			AbsolutePower: rel,
		}
	}

	return &types.MetricsFile{
		Recording: types.Recording{ID: "rec-1", Format: "edf", Channels: []string{"O1", "F3"}},
		Channels:  []types.ChannelMetrics{mk("O1", alphaO1), mk("F3", 0.30)},
	}
}

func TestInterpretFlagsDeviations(t *testing.T) {
	table := norms.Builtin()
	cfg := types.InterpretConfig{}

	t.Run("elevated alpha", func(t *testing.T) {
		// Alpha 0.55 vs builtin norm mean 0.30, sd 0.10: z = +2.5.
		ff := Interpret(metricsFixture(0.55), table, cfg)
		if len(ff.Findings) != 1 {
			t.Fatalf("findings = %d, want 1: %+v", len(ff.Findings), ff.Findings)
		}
		f := ff.Findings[0]
		if f.Channel != "O1" || f.Band != types.BandAlpha {
			t.Errorf("finding cell = %s/%s", f.Channel, f.Band)
		}
		if f.Direction != types.DirectionElevated {
			t.Errorf("direction = %s, want elevated", f.Direction)
		}
		if f.ZScore < 2.4 || f.ZScore > 2.6 {
			t.Errorf("z = %v, want ~2.5", f.ZScore)
		}
		if len(f.BrodmannAreas) != 2 || f.BrodmannAreas[0] != "BA17" {
			t.Errorf("areas = %v, want [BA17 BA18]", f.BrodmannAreas)
		}
		if !strings.Contains(f.Clinical, "Elevated Alpha at O1") ||
			!strings.Contains(f.Clinical, "BA17, BA18") {
			t.Errorf("clinical narrative = %q", f.Clinical)
		}
		if !strings.Contains(f.Patient, "higher Alpha activity in O1") {
			t.Errorf("patient narrative = %q", f.Patient)
		}
	})

	t.Run("reduced alpha", func(t *testing.T) {
		ff := Interpret(metricsFixture(0.05), table, cfg)
		if len(ff.Findings) != 1 {
			t.Fatalf("findings = %d, want 1", len(ff.Findings))
		}
		f := ff.Findings[0]
		if f.Direction != types.DirectionReduced {
			t.Errorf("direction = %s, want reduced", f.Direction)
		}
		if !strings.Contains(f.Clinical, "Reduced Alpha") {
			t.Errorf("clinical narrative = %q", f.Clinical)
		}
		if !strings.Contains(f.Patient, "lower Alpha") {
			t.Errorf("patient narrative = %q", f.Patient)
		}
	})

	t.Run("within norms", func(t *testing.T) {
		ff := Interpret(metricsFixture(0.32), table, cfg)
		if len(ff.Findings) != 0 {
			t.Errorf("findings = %+v, want none", ff.Findings)
		}
	})
}

func TestInterpretRelativeFallback(t *testing.T) {
	// A table that covers none of the recording's cells leaves the
	// relative-power rule in charge.
	mf := metricsFixture(0.55)

	tmp := t.TempDir()
	data := "channel,band,mean,sd\nCz,Theta,0.18,0.06\n"
	if err := os.WriteFile(filepath.Join(tmp, norms.DatasetFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	narrow, err := norms.Load(tmp)
	if err != nil {
		t.Fatal(err)
	}

	ff := Interpret(mf, narrow, types.InterpretConfig{})

	// No cell is covered by the Cz-only table; every band over 0.30
	// relative power trips the fallback threshold.
	for _, f := range ff.Findings {
		if f.ZScore != 0 {
			t.Errorf("uncovered cell carries z = %v, want 0", f.ZScore)
		}
		if f.RelativePower <= 0.3 {
			t.Errorf("fallback finding below threshold: %+v", f)
		}
		if !strings.Contains(f.Clinical, "relative power") {
			t.Errorf("clinical narrative should quote relative power: %q", f.Clinical)
		}
	}
	if len(ff.Findings) != 1 {
		t.Errorf("findings = %+v, want the elevated alpha cell only", ff.Findings)
	}
}

func TestInterpretBatch(t *testing.T) {
	base := t.TempDir()
	recordings := filepath.Join(base, "recordings")
	analysis := filepath.Join(base, "analysis")
	metrics := filepath.Join(recordings, "metrics")
	if err := os.MkdirAll(metrics, 0o755); err != nil {
		t.Fatal(err)
	}

	data, err := yaml.Marshal(metricsFixture(0.55))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(metrics, "rec-1-metrics.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(metrics, "broken-metrics.yaml"), []byte("{:"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := types.InterpretConfig{
		RecordingsDir: recordings,
		AnalysisDir:   analysis,
		NormsDir:      filepath.Join(base, "norms"),
	}

	var out bytes.Buffer
	result, err := InterpretBatch(cfg, &out)
	if err != nil {
		t.Fatalf("InterpretBatch: %v", err)
	}
	if result.Analyzed != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 interpreted, 1 failed", result)
	}

	ffPath := filepath.Join(analysis, "findings", "rec-1-findings.yaml")
	raw, err := os.ReadFile(ffPath)
	if err != nil {
		t.Fatalf("findings artifact missing: %v", err)
	}
	var ff types.FindingsFile
	if err := yaml.Unmarshal(raw, &ff); err != nil {
		t.Fatalf("parsing findings artifact: %v", err)
	}
	if ff.RecordingID != "rec-1" || ff.NormSource != "builtin" || len(ff.Findings) != 1 {
		t.Errorf("findings file = %+v", ff)
	}

	// Rerun skips.
	out.Reset()
	result, err = InterpretBatch(cfg, &out)
	if err != nil {
		t.Fatalf("InterpretBatch rerun: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("rerun skipped = %d, want 1", result.Skipped)
	}
}
