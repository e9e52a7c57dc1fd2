// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qeeg computes quantitative EEG metrics from recordings: relative
// band powers per channel, coherence and phase lag for channel pairs, and
// normative Z-score interpretation with Brodmann-area localization.
package qeeg

import "github.com/neurova/qeeg-engine/pkg/types"

// BandRange is a frequency band with inclusive bounds in Hz.
type BandRange struct {
	Name types.Band
	Lo   float64
	Hi   float64
}

// Bands lists the canonical EEG bands in ascending frequency order.
var Bands = []BandRange{
	{types.BandDelta, 1, 4},
	{types.BandTheta, 4, 8},
	{types.BandAlpha, 8, 12},
	{types.BandBeta, 12, 30},
	{types.BandHighBeta, 30, 45},
}

// BandByName returns the band range for a band name.
func BandByName(name types.Band) (BandRange, bool) {
	for _, b := range Bands {
		if b.Name == name {
			return b, true
		}
	}
	return BandRange{}, false
}
