// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dsp

import "gonum.org/v1/gonum/integrate"

// BandPower integrates the PSD over frequency bins in [lo, hi] Hz
// (inclusive) using the trapezoidal rule. Bands covering fewer than two
// bins yield zero.
func (s Spectrum) BandPower(lo, hi float64) float64 {
	start, end := -1, -1
	for i, f := range s.Freqs {
		if f >= lo && start < 0 {
			start = i
		}
		if f <= hi {
			end = i
		}
	}
	if start < 0 || end < start+1 {
		return 0
	}
	return integrate.Trapezoidal(s.Freqs[start:end+1], s.PSD[start:end+1])
}
