// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
	"gonum.org/v1/gonum/floats"

	"github.com/neurova/qeeg-engine/internal/dsp"
	"github.com/neurova/qeeg-engine/internal/edf"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	rawDir     = "raw"
	metricsDir = "metrics"

	filterOrder = 4

	defaultSampleRate = 256.0
	defaultWindowSec  = 2.0
	defaultLowCut     = 1.0
	defaultHighCut    = 45.0
)

// applyDefaults fills zero-valued analysis settings.
func applyDefaults(cfg types.AnalysisConfig) types.AnalysisConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.WindowSec <= 0 {
		cfg.WindowSec = defaultWindowSec
	}
	if cfg.LowCut <= 0 {
		cfg.LowCut = defaultLowCut
	}
	if cfg.HighCut <= 0 {
		cfg.HighCut = defaultHighCut
	}
	return cfg
}

// AnalyzeChannel computes band powers for one channel: the signal is
// demeaned, bandpass filtered (zero phase), and its Welch PSD integrated
// per band. Relative powers are fractions of the total power over the
// full passband; a silent channel yields all zeros.
func AnalyzeChannel(label string, data []float64, fs float64, cfg types.AnalysisConfig) (types.ChannelMetrics, error) {
	cfg = applyDefaults(cfg)

	if len(data) == 0 {
		return types.ChannelMetrics{}, fmt.Errorf("channel %s: no samples", label)
	}
	if fs <= 0 {
		return types.ChannelMetrics{}, fmt.Errorf("channel %s: invalid sample rate %v", label, fs)
	}

	filtered, err := preprocess(data, fs, cfg)
	if err != nil {
		return types.ChannelMetrics{}, fmt.Errorf("channel %s: %w", label, err)
	}

	spec, err := dsp.Welch(filtered, fs, int(cfg.WindowSec*fs))
	if err != nil {
		return types.ChannelMetrics{}, fmt.Errorf("channel %s: %w", label, err)
	}

	m := types.ChannelMetrics{
		Channel:       label,
		SampleRate:    fs,
		TotalPower:    spec.BandPower(cfg.LowCut, cfg.HighCut),
		RelativePower: make(map[types.Band]float64, len(Bands)),
		AbsolutePower: make(map[types.Band]float64, len(Bands)),
	}

	for _, band := range Bands {
		bp := spec.BandPower(band.Lo, band.Hi)
		m.AbsolutePower[band.Name] = bp
		if m.TotalPower > 0 {
			m.RelativePower[band.Name] = bp / m.TotalPower
		} else {
			m.RelativePower[band.Name] = 0
		}
	}

	return m, nil
}

// preprocess demeans and bandpass-filters a signal.
func preprocess(data []float64, fs float64, cfg types.AnalysisConfig) ([]float64, error) {
	x := make([]float64, len(data))
	copy(x, data)
	floats.AddConst(-floats.Sum(x)/float64(len(x)), x)

	bp, err := dsp.NewButterworthBandpass(filterOrder, cfg.LowCut, cfg.HighCut, fs)
	if err != nil {
		return nil, err
	}
	return bp.FiltFilt(x), nil
}

// AnalyzePairs computes per-band coherence and phase lag for channel pairs.
// signals maps channel label to its preprocessed series; pairs lists the
// label pairs to evaluate. Pairs whose channels are missing or unequal in
// length are skipped.
func AnalyzePairs(signals map[string][]float64, fs float64, pairs [][2]string, cfg types.AnalysisConfig) []types.PairMetrics {
	cfg = applyDefaults(cfg)

	var out []types.PairMetrics
	for _, pair := range pairs {
		a, okA := signals[pair[0]]
		b, okB := signals[pair[1]]
		if !okA || !okB || len(a) != len(b) {
			continue
		}

		cs, err := dsp.CSD(a, b, fs, int(cfg.WindowSec*fs))
		if err != nil {
			continue
		}

		for _, band := range Bands {
			coh, phase := cs.BandCoherence(band.Lo, band.Hi)
			out = append(out, types.PairMetrics{
				ChannelA:    pair[0],
				ChannelB:    pair[1],
				Band:        band.Name,
				Coherence:   coh,
				PhaseLagDeg: phase,
			})
		}
	}
	return out
}

// parsePairs turns "A-B" strings into label pairs against the channels
// actually present, falling back to homologous pairs when none configured.
func parsePairs(cfg types.AnalysisConfig, labels []string) [][2]string {
	if len(cfg.Pairs) == 0 {
		return HomologousPairs(labels)
	}

	byName := make(map[string]string, len(labels))
	for _, l := range labels {
		byName[strings.ToLower(CanonicalSite(l))] = l
	}

	var pairs [][2]string
	for _, spec := range cfg.Pairs {
		parts := strings.SplitN(spec, "-", 2)
		if len(parts) != 2 {
			continue
		}
		a, okA := byName[strings.ToLower(strings.TrimSpace(parts[0]))]
		b, okB := byName[strings.ToLower(strings.TrimSpace(parts[1]))]
		if okA && okB {
			pairs = append(pairs, [2]string{a, b})
		}
	}
	return pairs
}

// AnalyzeRecording analyzes one recording file (.edf or .csv) and returns
// the metrics artifact.
func AnalyzeRecording(path string, cfg types.AnalysisConfig) (*types.MetricsFile, error) {
	cfg = applyDefaults(cfg)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".edf":
		return analyzeEDF(path, cfg)
	case ".csv":
		return analyzeCSV(path, cfg)
	default:
		return nil, fmt.Errorf("unsupported recording format %q", filepath.Ext(path))
	}
}

// RecordingID derives the artifact slug from a recording path.
func RecordingID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BatchResult holds the outcome of a batch analysis run.
type BatchResult struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Total returns the total number of recordings processed.
func (r BatchResult) Total() int {
	return r.Analyzed + r.Skipped + r.Failed
}

// HasFailures reports whether any recordings failed analysis.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AnalyzeFile analyzes a single recording and writes the metrics YAML to
// recordingsDir/metrics/. If the artifact already exists it skips the work.
func AnalyzeFile(path string, cfg types.AnalysisConfig, w io.Writer) (skipped bool, err error) {
	id := RecordingID(path)
	outDir := filepath.Join(cfg.RecordingsDir, metricsDir)
	outPath := filepath.Join(outDir, id+"-metrics.yaml")

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", id)
		return true, nil
	}

	mf, err := AnalyzeRecording(path, cfg)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return false, fmt.Errorf("creating metrics directory: %w", err)
	}

	data, err := yaml.Marshal(mf)
	if err != nil {
		return false, fmt.Errorf("encoding metrics: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return false, fmt.Errorf("writing metrics: %w", err)
	}

	fmt.Fprintf(w, "analyzed: %s (%d channels)\n", id, len(mf.Channels))
	return false, nil
}

// AnalyzeBatch processes every recording under recordingsDir/raw/, printing
// per-file status to w and returning a summary.
func AnalyzeBatch(cfg types.AnalysisConfig, w io.Writer) (BatchResult, error) {
	cfg = applyDefaults(cfg)

	raw := filepath.Join(cfg.RecordingsDir, rawDir)
	entries, err := os.ReadDir(raw)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading recordings directory %s: %w", raw, err)
	}

	var result BatchResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".edf" && ext != ".csv" {
			continue
		}

		path := filepath.Join(raw, entry.Name())
		skipped, err := AnalyzeFile(path, cfg, w)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", RecordingID(path), err)
			result.Failed++
		case skipped:
			result.Skipped++
		default:
			result.Analyzed++
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d analyzed, %d skipped, %d failed (total: %d)\n",
		result.Analyzed, result.Skipped, result.Failed, result.Total())
	return result, nil
}

func analyzeEDF(path string, cfg types.AnalysisConfig) (*types.MetricsFile, error) {
	r, err := edf.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	mf := &types.MetricsFile{
		Recording: types.Recording{
			ID:          RecordingID(path),
			SourcePath:  path,
			Format:      "edf",
			StartTime:   r.StartTime,
			DurationSec: r.Duration(),
			Channels:    r.Labels(),
		},
		AnalyzedAt: time.Now().UTC(),
	}

	filtered := make(map[string][]float64, len(r.Signals))
	var fsForPairs float64

	for i, sig := range r.Signals {
		if sig.Annotation() {
			continue
		}
		data, err := r.ReadSignal(i)
		if err != nil {
			return nil, err
		}
		fs := sig.SampleRate(r.RecordDuration)

		m, err := AnalyzeChannel(sig.Label, data, fs, cfg)
		if err != nil {
			return nil, err
		}
		mf.Channels = append(mf.Channels, m)

		if pre, err := preprocess(data, fs, cfg); err == nil {
			filtered[sig.Label] = pre
			fsForPairs = fs
		}
	}

	if len(mf.Channels) == 0 {
		return nil, fmt.Errorf("%s: no signal channels", path)
	}

	mf.Pairs = AnalyzePairs(filtered, fsForPairs, parsePairs(cfg, mf.Recording.Channels), cfg)
	return mf, nil
}

func analyzeCSV(path string, cfg types.AnalysisConfig) (*types.MetricsFile, error) {
	rec, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	fs := cfg.SampleRate
	mf := &types.MetricsFile{
		Recording: types.Recording{
			ID:          RecordingID(path),
			SourcePath:  path,
			Format:      "csv",
			DurationSec: float64(len(rec.Samples[0])) / fs,
			Channels:    rec.Labels,
		},
		AnalyzedAt: time.Now().UTC(),
	}

	filtered := make(map[string][]float64, len(rec.Labels))
	for i, label := range rec.Labels {
		m, err := AnalyzeChannel(label, rec.Samples[i], fs, cfg)
		if err != nil {
			return nil, err
		}
		mf.Channels = append(mf.Channels, m)

		if pre, err := preprocess(rec.Samples[i], fs, cfg); err == nil {
			filtered[label] = pre
		}
	}

	mf.Pairs = AnalyzePairs(filtered, fs, parsePairs(cfg, rec.Labels), cfg)
	return mf, nil
}
