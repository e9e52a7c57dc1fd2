// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Direction indicates whether a band deviates above or below the norm.
type Direction string

const (
	DirectionElevated Direction = "elevated"
	DirectionReduced  Direction = "reduced"
)

// Finding is one interpreted deviation in a recording: a channel/band cell
// whose activity departs from the normative range.
type Finding struct {
	// Channel is the channel label the deviation was observed at.
	Channel string `json:"channel" yaml:"channel"`

	// Band is the frequency band.
	Band Band `json:"band" yaml:"band"`

	// RelativePower is the measured relative power for the cell.
	RelativePower float64 `json:"relative_power" yaml:"relative_power"`

	// ZScore is the deviation from the normative mean in standard
	// deviations. Zero when no norm covered the cell.
	ZScore float64 `json:"z_score" yaml:"z_score"`

	// Direction records the sign of the deviation.
	Direction Direction `json:"direction" yaml:"direction"`

	// BrodmannAreas lists cortical areas associated with the channel
	// (e.g. "BA10", "BA11"). Empty for channels without a mapping.
	BrodmannAreas []string `json:"brodmann_areas,omitempty" yaml:"brodmann_areas,omitempty"`

	// Clinical is the clinician-facing interpretation sentence.
	Clinical string `json:"clinical" yaml:"clinical"`

	// Patient is the plain-language interpretation sentence.
	Patient string `json:"patient" yaml:"patient"`
}

// FindingsFile is the on-disk artifact written by the interpret stage
// (analysis/findings/[id]-findings.yaml).
type FindingsFile struct {
	RecordingID   string    `json:"recording_id" yaml:"recording_id"`
	InterpretedAt time.Time `json:"interpreted_at" yaml:"interpreted_at"`
	NormSource    string    `json:"norm_source" yaml:"norm_source"`
	Findings      []Finding `json:"findings" yaml:"findings"`
}
