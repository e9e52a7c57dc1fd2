// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/internal/norms"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const findingsDir = "findings"

const (
	defaultZThreshold        = 1.96
	defaultRelativeThreshold = 0.3
)

// Interpret evaluates a metrics artifact against a normative table and
// returns the findings. A channel/band cell becomes a finding when its
// relative power deviates from the norm by at least cfg.ZThreshold standard
// deviations, or, for cells without normative coverage, when relative power
// exceeds cfg.RelativeThreshold.
func Interpret(mf *types.MetricsFile, table *norms.Table, cfg types.InterpretConfig) *types.FindingsFile {
	zThresh := cfg.ZThreshold
	if zThresh <= 0 {
		zThresh = defaultZThreshold
	}
	relThresh := cfg.RelativeThreshold
	if relThresh <= 0 {
		relThresh = defaultRelativeThreshold
	}

	ff := &types.FindingsFile{
		RecordingID:   mf.Recording.ID,
		InterpretedAt: time.Now().UTC(),
		NormSource:    table.Source,
	}

	for _, ch := range mf.Channels {
		site := CanonicalSite(ch.Channel)
		for _, band := range Bands {
			rel := ch.RelativePower[band.Name]

			z, covered := table.ZScore(site, band.Name, rel)
			var flag bool
			var direction types.Direction
			switch {
			case covered && math.Abs(z) >= zThresh:
				flag = true
				direction = types.DirectionElevated
				if z < 0 {
					direction = types.DirectionReduced
				}
			case !covered && rel > relThresh:
				flag = true
				direction = types.DirectionElevated
			}
			if !flag {
				continue
			}

			f := types.Finding{
				Channel:       ch.Channel,
				Band:          band.Name,
				RelativePower: rel,
				Direction:     direction,
				BrodmannAreas: BrodmannAreas(ch.Channel),
			}
			if covered {
				f.ZScore = z
			}
			f.Clinical = clinicalNarrative(f)
			f.Patient = patientNarrative(f)
			ff.Findings = append(ff.Findings, f)
		}
	}

	return ff
}

// clinicalNarrative builds the clinician-facing sentence for a finding.
func clinicalNarrative(f types.Finding) string {
	site := CanonicalSite(f.Channel)
	var b strings.Builder

	if f.Direction == types.DirectionReduced {
		b.WriteString("Reduced ")
	} else {
		b.WriteString("Elevated ")
	}
	fmt.Fprintf(&b, "%s at %s", f.Band, site)

	if f.ZScore != 0 {
		fmt.Fprintf(&b, " (z = %+.2f)", f.ZScore)
	} else {
		fmt.Fprintf(&b, " (relative power %.2f)", f.RelativePower)
	}

	if len(f.BrodmannAreas) > 0 {
		fmt.Fprintf(&b, ": possible dysfunction in %s", strings.Join(f.BrodmannAreas, ", "))
	} else {
		b.WriteString(": outside the normative range")
	}
	b.WriteString(".")
	return b.String()
}

// patientNarrative builds the plain-language sentence for a finding.
func patientNarrative(f types.Finding) string {
	site := CanonicalSite(f.Channel)

	level := "higher"
	if f.Direction == types.DirectionReduced {
		level = "lower"
	}

	if len(f.BrodmannAreas) > 0 {
		return fmt.Sprintf("We found %s %s activity in %s, linked to %s.",
			level, f.Band, site, strings.Join(f.BrodmannAreas, ", "))
	}
	return fmt.Sprintf("We found %s %s activity in %s.", level, f.Band, site)
}

// InterpretFile interprets one metrics artifact and writes the findings
// YAML to analysisDir/findings/. Existing findings are skipped.
func InterpretFile(metricsPath string, table *norms.Table, cfg types.InterpretConfig, w io.Writer) (skipped bool, err error) {
	id := strings.TrimSuffix(filepath.Base(metricsPath), "-metrics.yaml")
	outDir := filepath.Join(cfg.AnalysisDir, findingsDir)
	outPath := filepath.Join(outDir, id+"-findings.yaml")

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", id)
		return true, nil
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		return false, fmt.Errorf("reading metrics: %w", err)
	}
	var mf types.MetricsFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return false, fmt.Errorf("parsing metrics: %w", err)
	}

	ff := Interpret(&mf, table, cfg)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return false, fmt.Errorf("creating findings directory: %w", err)
	}
	out, err := yaml.Marshal(ff)
	if err != nil {
		return false, fmt.Errorf("encoding findings: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return false, fmt.Errorf("writing findings: %w", err)
	}

	fmt.Fprintf(w, "interpreted: %s (%d findings)\n", id, len(ff.Findings))
	return false, nil
}

// InterpretBatch interprets every metrics artifact under
// cfg.RecordingsDir/metrics/, printing per-file status to w.
func InterpretBatch(cfg types.InterpretConfig, w io.Writer) (BatchResult, error) {
	table, err := norms.Load(cfg.NormsDir)
	if err != nil {
		return BatchResult{}, err
	}
	fmt.Fprintf(w, "norms: %s (%d entries)\n", table.Source, table.Len())

	metrics := filepath.Join(cfg.RecordingsDir, metricsDir)
	entries, err := os.ReadDir(metrics)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading metrics directory %s: %w", metrics, err)
	}

	var result BatchResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "-metrics.yaml") {
			continue
		}

		path := filepath.Join(metrics, entry.Name())
		skipped, err := InterpretFile(path, table, cfg, w)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", entry.Name(), err)
			result.Failed++
		case skipped:
			result.Skipped++
		default:
			result.Analyzed++
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d interpreted, %d skipped, %d failed (total: %d)\n",
		result.Analyzed, result.Skipped, result.Failed, result.Total())
	return result, nil
}
