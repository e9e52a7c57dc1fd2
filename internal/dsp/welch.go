// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dsp implements the spectral estimation and filtering primitives
// used by the QEEG analysis stage: Welch power spectral density, Butterworth
// bandpass design, zero-phase filtering, and cross-spectral estimates.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Spectrum holds a one-sided power spectral density estimate.
type Spectrum struct {
	// Freqs are the frequency bin centers in Hz, from 0 to Nyquist.
	Freqs []float64

	// PSD is the power spectral density per bin, in units²/Hz.
	PSD []float64
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// Welch estimates the one-sided PSD of x sampled at fs Hz using Welch's
// method: Hann-windowed segments of nperseg samples with 50% overlap,
// per-segment mean removal, and density scaling. Signals shorter than
// nperseg are estimated from a single shortened segment.
func Welch(x []float64, fs float64, nperseg int) (Spectrum, error) {
	if len(x) == 0 {
		return Spectrum{}, fmt.Errorf("welch: empty signal")
	}
	if fs <= 0 {
		return Spectrum{}, fmt.Errorf("welch: sample rate must be positive, got %v", fs)
	}
	if nperseg <= 0 {
		return Spectrum{}, fmt.Errorf("welch: segment length must be positive, got %d", nperseg)
	}
	if nperseg > len(x) {
		nperseg = len(x)
	}

	step := nperseg / 2
	if step == 0 {
		step = 1
	}

	win := hann(nperseg)
	winPower := 0.0
	for _, w := range win {
		winPower += w * w
	}

	fft := fourier.NewFFT(nperseg)
	nbins := nperseg/2 + 1
	psd := make([]float64, nbins)
	seg := make([]float64, nperseg)

	segments := 0
	for start := 0; start+nperseg <= len(x); start += step {
		copy(seg, x[start:start+nperseg])
		floats.AddConst(-floats.Sum(seg)/float64(nperseg), seg)
		floats.Mul(seg, win)

		coeffs := fft.Coefficients(nil, seg)
		for i, c := range coeffs {
			psd[i] += real(c)*real(c) + imag(c)*imag(c)
		}
		segments++
	}

	scale := 1 / (fs * winPower * float64(segments))
	for i := range psd {
		psd[i] *= scale
		// One-sided spectrum: double every bin except DC and Nyquist.
		if i != 0 && !(nperseg%2 == 0 && i == nbins-1) {
			psd[i] *= 2
		}
	}

	freqs := make([]float64, nbins)
	for i := range freqs {
		freqs[i] = float64(i) * fs / float64(nperseg)
	}

	return Spectrum{Freqs: freqs, PSD: psd}, nil
}

// CrossSpectrum holds a one-sided cross-spectral density estimate between
// two signals, along with their individual PSDs from the same segmentation.
type CrossSpectrum struct {
	Freqs []float64
	Pxy   []complex128
	Pxx   []float64
	Pyy   []float64
}

// CSD estimates the cross-spectral density of x and y (same length, same
// sample rate) with the segmentation Welch uses. The auto-spectra Pxx and
// Pyy come from the identical segments, so coherence derived from the
// result is consistent.
func CSD(x, y []float64, fs float64, nperseg int) (CrossSpectrum, error) {
	if len(x) != len(y) {
		return CrossSpectrum{}, fmt.Errorf("csd: signal lengths differ (%d vs %d)", len(x), len(y))
	}
	if len(x) == 0 {
		return CrossSpectrum{}, fmt.Errorf("csd: empty signal")
	}
	if fs <= 0 {
		return CrossSpectrum{}, fmt.Errorf("csd: sample rate must be positive, got %v", fs)
	}
	if nperseg > len(x) {
		nperseg = len(x)
	}
	if nperseg <= 0 {
		return CrossSpectrum{}, fmt.Errorf("csd: segment length must be positive, got %d", nperseg)
	}

	step := nperseg / 2
	if step == 0 {
		step = 1
	}

	win := hann(nperseg)
	winPower := 0.0
	for _, w := range win {
		winPower += w * w
	}

	fft := fourier.NewFFT(nperseg)
	nbins := nperseg/2 + 1

	cs := CrossSpectrum{
		Pxy: make([]complex128, nbins),
		Pxx: make([]float64, nbins),
		Pyy: make([]float64, nbins),
	}

	segX := make([]float64, nperseg)
	segY := make([]float64, nperseg)

	segments := 0
	for start := 0; start+nperseg <= len(x); start += step {
		copy(segX, x[start:start+nperseg])
		copy(segY, y[start:start+nperseg])
		floats.AddConst(-floats.Sum(segX)/float64(nperseg), segX)
		floats.AddConst(-floats.Sum(segY)/float64(nperseg), segY)
		floats.Mul(segX, win)
		floats.Mul(segY, win)

		cx := fft.Coefficients(nil, segX)
		cy := fft.Coefficients(nil, segY)
		for i := range cx {
			cs.Pxy[i] += cmplx.Conj(cx[i]) * cy[i]
			cs.Pxx[i] += real(cx[i])*real(cx[i]) + imag(cx[i])*imag(cx[i])
			cs.Pyy[i] += real(cy[i])*real(cy[i]) + imag(cy[i])*imag(cy[i])
		}
		segments++
	}

	scale := 1 / (fs * winPower * float64(segments))
	for i := range cs.Pxy {
		factor := scale
		if i != 0 && !(nperseg%2 == 0 && i == nbins-1) {
			factor *= 2
		}
		cs.Pxy[i] *= complex(factor, 0)
		cs.Pxx[i] *= factor
		cs.Pyy[i] *= factor
	}

	cs.Freqs = make([]float64, nbins)
	for i := range cs.Freqs {
		cs.Freqs[i] = float64(i) * fs / float64(nperseg)
	}

	return cs, nil
}

// BandCoherence returns the magnitude-squared coherence and mean phase (in
// degrees) of a cross-spectrum averaged over bins in [lo, hi] Hz.
func (cs CrossSpectrum) BandCoherence(lo, hi float64) (coherence, phaseDeg float64) {
	var sumXY complex128
	var sumXX, sumYY float64

	for i, f := range cs.Freqs {
		if f < lo || f > hi {
			continue
		}
		sumXY += cs.Pxy[i]
		sumXX += cs.Pxx[i]
		sumYY += cs.Pyy[i]
	}

	if sumXX == 0 || sumYY == 0 {
		return 0, 0
	}

	mag := cmplx.Abs(sumXY)
	coherence = mag * mag / (sumXX * sumYY)
	phaseDeg = cmplx.Phase(sumXY) * 180 / math.Pi
	return coherence, phaseDeg
}
