// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Band names a canonical EEG frequency band.
type Band string

const (
	BandDelta    Band = "Delta"
	BandTheta    Band = "Theta"
	BandAlpha    Band = "Alpha"
	BandBeta     Band = "Beta"
	BandHighBeta Band = "High Beta"
)

// Recording holds metadata for an ingested EEG recording.
type Recording struct {
	// ID is a slug derived from the recording filename (e.g. "patient-042-eyes-closed").
	ID string `json:"id" yaml:"id"`

	// SourcePath is the local filesystem path to the raw recording file.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// Format is the container format: "edf" or "csv".
	Format string `json:"format" yaml:"format"`

	// StartTime is the recording start timestamp, when the file carries one.
	StartTime time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`

	// DurationSec is the recording length in seconds.
	DurationSec float64 `json:"duration_sec" yaml:"duration_sec"`

	// Channels lists the channel labels in file order, annotation
	// channels excluded.
	Channels []string `json:"channels" yaml:"channels"`
}

// ChannelMetrics holds the spectral metrics computed for one channel.
type ChannelMetrics struct {
	// Channel is the channel label (e.g. "F3").
	Channel string `json:"channel" yaml:"channel"`

	// SampleRate is the channel sample rate in Hz.
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`

	// TotalPower is the absolute power over the full analysis band.
	TotalPower float64 `json:"total_power" yaml:"total_power"`

	// RelativePower maps band name to relative power (fraction of TotalPower).
	RelativePower map[Band]float64 `json:"relative_power" yaml:"relative_power"`

	// AbsolutePower maps band name to absolute band power.
	AbsolutePower map[Band]float64 `json:"absolute_power" yaml:"absolute_power"`
}

// PairMetrics holds connectivity metrics for one channel pair and band.
type PairMetrics struct {
	// ChannelA and ChannelB label the pair (e.g. "F3", "F4").
	ChannelA string `json:"channel_a" yaml:"channel_a"`
	ChannelB string `json:"channel_b" yaml:"channel_b"`

	// Band is the frequency band the metrics are averaged over.
	Band Band `json:"band" yaml:"band"`

	// Coherence is the band-averaged magnitude-squared coherence in [0, 1].
	Coherence float64 `json:"coherence" yaml:"coherence"`

	// PhaseLagDeg is the band-averaged cross-spectral phase in degrees.
	PhaseLagDeg float64 `json:"phase_lag_deg" yaml:"phase_lag_deg"`
}

// MetricsFile is the on-disk artifact written by the analyze stage
// (recordings/metrics/[id]-metrics.yaml).
type MetricsFile struct {
	Recording  Recording        `json:"recording" yaml:"recording"`
	AnalyzedAt time.Time        `json:"analyzed_at" yaml:"analyzed_at"`
	Channels   []ChannelMetrics `json:"channels" yaml:"channels"`
	Pairs      []PairMetrics    `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}
