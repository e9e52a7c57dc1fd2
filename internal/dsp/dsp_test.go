// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

// sine returns n samples of a unit-amplitude sine at freq Hz sampled at fs.
func sine(freq, fs float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return x
}

func TestWelchPeakFrequency(t *testing.T) {
	const fs = 256.0
	x := sine(10, fs, 8*int(fs))

	spec, err := Welch(x, fs, 2*int(fs))
	if err != nil {
		t.Fatalf("Welch: %v", err)
	}

	peak := 0
	for i := range spec.PSD {
		if spec.PSD[i] > spec.PSD[peak] {
			peak = i
		}
	}
	if got := spec.Freqs[peak]; math.Abs(got-10) > 0.5 {
		t.Errorf("peak frequency = %v Hz, want 10 Hz", got)
	}
}

func TestWelchPowerConservation(t *testing.T) {
	// The integrated one-sided PSD of a unit sine is its variance, 1/2.
	const fs = 256.0
	x := sine(10, fs, 16*int(fs))

	spec, err := Welch(x, fs, 2*int(fs))
	if err != nil {
		t.Fatalf("Welch: %v", err)
	}

	total := spec.BandPower(0, fs/2)
	if math.Abs(total-0.5) > 0.08 {
		t.Errorf("integrated PSD = %v, want ~0.5", total)
	}
}

func TestWelchBandSelectivity(t *testing.T) {
	const fs = 256.0
	x := sine(10, fs, 8*int(fs))

	spec, err := Welch(x, fs, 2*int(fs))
	if err != nil {
		t.Fatalf("Welch: %v", err)
	}

	alpha := spec.BandPower(8, 12)
	beta := spec.BandPower(12, 30)
	if alpha <= 10*beta {
		t.Errorf("alpha power %v not dominant over beta power %v", alpha, beta)
	}
}

func TestWelchShortSignal(t *testing.T) {
	// Signals shorter than one segment fall back to a single shortened segment.
	const fs = 256.0
	x := sine(10, fs, 100)

	spec, err := Welch(x, fs, 2*int(fs))
	if err != nil {
		t.Fatalf("Welch: %v", err)
	}
	if len(spec.Freqs) != 51 {
		t.Errorf("bins = %d, want 51", len(spec.Freqs))
	}
}

func TestWelchErrors(t *testing.T) {
	tests := []struct {
		name    string
		x       []float64
		fs      float64
		nperseg int
	}{
		{"empty signal", nil, 256, 512},
		{"zero sample rate", []float64{1, 2, 3}, 0, 2},
		{"negative segment", []float64{1, 2, 3}, 256, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Welch(tt.x, tt.fs, tt.nperseg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// response evaluates the filter's magnitude response at freq Hz.
func response(f Bandpass, freq, fs float64) float64 {
	w := 2 * math.Pi * freq / fs
	var num, den complex128
	for i, b := range f.B {
		num += complex(b, 0) * cmplx.Exp(complex(0, -w*float64(i)))
	}
	for i, a := range f.A {
		den += complex(a, 0) * cmplx.Exp(complex(0, -w*float64(i)))
	}
	return cmplx.Abs(num / den)
}

func TestButterworthBandpassResponse(t *testing.T) {
	const fs = 256.0
	f, err := NewButterworthBandpass(4, 1, 45, fs)
	if err != nil {
		t.Fatalf("NewButterworthBandpass: %v", err)
	}

	if len(f.B) != 9 || len(f.A) != 9 {
		t.Fatalf("coefficient lengths = %d, %d, want 9, 9", len(f.B), len(f.A))
	}
	if math.Abs(f.A[0]-1) > 1e-9 {
		t.Errorf("a0 = %v, want 1", f.A[0])
	}

	tests := []struct {
		name string
		freq float64
		min  float64
		max  float64
	}{
		{"mid passband", 10, 0.95, 1.05},
		{"upper passband", 40, 0.9, 1.05},
		{"stopband high", 80, 0, 0.2},
		{"stopband low", 0.1, 0, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := response(f, tt.freq, fs)
			if got < tt.min || got > tt.max {
				t.Errorf("|H(%v Hz)| = %v, want in [%v, %v]", tt.freq, got, tt.min, tt.max)
			}
		})
	}
}

func TestButterworthBandpassErrors(t *testing.T) {
	tests := []struct {
		name       string
		order      int
		lo, hi, fs float64
	}{
		{"zero order", 0, 1, 45, 256},
		{"inverted band", 4, 45, 1, 256},
		{"high cut above nyquist", 4, 1, 200, 256},
		{"zero low cut", 4, 0, 45, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewButterworthBandpass(tt.order, tt.lo, tt.hi, tt.fs); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFiltFiltZeroPhase(t *testing.T) {
	const fs = 256.0
	f, err := NewButterworthBandpass(4, 1, 45, fs)
	if err != nil {
		t.Fatalf("NewButterworthBandpass: %v", err)
	}

	x := sine(10, fs, 4*int(fs))
	y := f.FiltFilt(x)

	if len(y) != len(x) {
		t.Fatalf("output length = %d, want %d", len(y), len(x))
	}

	// A passband sine should come through with unit gain and no phase
	// shift. Compare away from the edges.
	for i := len(x) / 4; i < 3*len(x)/4; i++ {
		if math.Abs(y[i]-x[i]) > 0.05 {
			t.Fatalf("sample %d: filtered %v vs input %v", i, y[i], x[i])
		}
	}
}

func TestFiltFiltShortSignal(t *testing.T) {
	const fs = 256.0
	f, err := NewButterworthBandpass(4, 1, 45, fs)
	if err != nil {
		t.Fatalf("NewButterworthBandpass: %v", err)
	}

	x := sine(10, fs, 10) // shorter than the reflection pad
	y := f.FiltFilt(x)
	if len(y) != len(x) {
		t.Errorf("output length = %d, want %d", len(y), len(x))
	}
}

func TestFiltFiltPadBoundary(t *testing.T) {
	// The reflection pad is 3*max(len(a), len(b)) samples: 27 for a 4th-order
	// bandpass. Signals at and just above that length must both come through
	// finite and length-preserving.
	const fs = 256.0
	f, err := NewButterworthBandpass(4, 1, 45, fs)
	if err != nil {
		t.Fatalf("NewButterworthBandpass: %v", err)
	}

	for _, n := range []int{27, 28} {
		x := sine(10, fs, n)
		y := f.FiltFilt(x)
		if len(y) != len(x) {
			t.Errorf("n=%d: output length = %d, want %d", n, len(y), len(x))
		}
		for i, v := range y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("n=%d: sample %d is %v", n, i, v)
			}
		}
	}
}

func TestBandPowerEmptyBand(t *testing.T) {
	spec := Spectrum{
		Freqs: []float64{0, 1, 2, 3},
		PSD:   []float64{1, 1, 1, 1},
	}
	if got := spec.BandPower(10, 20); got != 0 {
		t.Errorf("out-of-range band power = %v, want 0", got)
	}
}

func TestBandCoherenceIdenticalSignals(t *testing.T) {
	const fs = 256.0
	x := sine(10, fs, 8*int(fs))

	cs, err := CSD(x, x, fs, 2*int(fs))
	if err != nil {
		t.Fatalf("CSD: %v", err)
	}

	coh, phase := cs.BandCoherence(8, 12)
	if math.Abs(coh-1) > 1e-6 {
		t.Errorf("coherence = %v, want 1", coh)
	}
	if math.Abs(phase) > 1e-6 {
		t.Errorf("phase = %v°, want 0°", phase)
	}
}

func TestCSDLengthMismatch(t *testing.T) {
	if _, err := CSD([]float64{1, 2}, []float64{1}, 256, 2); err == nil {
		t.Error("expected error for mismatched lengths, got nil")
	}
}
