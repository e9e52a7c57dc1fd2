// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Bandpass holds the transfer-function coefficients of a digital bandpass
// filter, normalized so A[0] == 1.
type Bandpass struct {
	B []float64
	A []float64
}

// NewButterworthBandpass designs a digital Butterworth bandpass filter of
// the given order with passband [lo, hi] Hz at sample rate fs. The design
// follows the classical route: analog lowpass prototype, lowpass-to-bandpass
// transform, then bilinear transform with frequency prewarping.
func NewButterworthBandpass(order int, lo, hi, fs float64) (Bandpass, error) {
	if order <= 0 {
		return Bandpass{}, fmt.Errorf("butterworth: order must be positive, got %d", order)
	}
	nyq := fs / 2
	if lo <= 0 || hi <= lo || hi >= nyq {
		return Bandpass{}, fmt.Errorf("butterworth: passband [%v, %v] Hz invalid for sample rate %v Hz", lo, hi, fs)
	}

	// Normalized cutoffs and prewarped analog frequencies. The bilinear
	// transform below uses an internal rate of 2 samples/unit, matching
	// the normalization.
	const fsInternal = 2.0
	w1 := 2 * fsInternal * math.Tan(math.Pi*(lo/nyq)/fsInternal)
	w2 := 2 * fsInternal * math.Tan(math.Pi*(hi/nyq)/fsInternal)

	bw := w2 - w1
	w0 := math.Sqrt(w1 * w2)

	// Analog lowpass prototype: poles on the unit circle, no finite zeros.
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+1) / float64(2*order)
		poles[k] = cmplx.Exp(complex(0, math.Pi/2+theta))
	}
	var zeros []complex128
	gain := 1.0

	// Lowpass-to-bandpass: each pole splits into a conjugate pair around w0.
	degree := order - len(zeros)
	bpPoles := make([]complex128, 0, 2*order)
	for _, p := range poles {
		ps := p * complex(bw/2, 0)
		d := cmplx.Sqrt(ps*ps - complex(w0*w0, 0))
		bpPoles = append(bpPoles, ps+d, ps-d)
	}
	bpZeros := make([]complex128, degree) // zeros at s = 0
	gain *= math.Pow(bw, float64(degree))

	// Bilinear transform: s → 2*fs*(z-1)/(z+1).
	fs2 := complex(2*fsInternal, 0)
	zZeros := make([]complex128, 0, len(bpPoles))
	for _, z := range bpZeros {
		zZeros = append(zZeros, (fs2+z)/(fs2-z))
	}
	zPoles := make([]complex128, len(bpPoles))
	num := complex(1, 0)
	den := complex(1, 0)
	for _, z := range bpZeros {
		num *= fs2 - z
	}
	for i, p := range bpPoles {
		zPoles[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain *= real(num / den)
	// Zeros at infinity map to z = -1.
	for len(zZeros) < len(zPoles) {
		zZeros = append(zZeros, complex(-1, 0))
	}

	b := polyFromRoots(zZeros)
	a := polyFromRoots(zPoles)

	bp := Bandpass{
		B: make([]float64, len(b)),
		A: make([]float64, len(a)),
	}
	for i, c := range b {
		bp.B[i] = real(c) * gain
	}
	for i, c := range a {
		bp.A[i] = real(c)
	}
	return bp, nil
}

// polyFromRoots expands prod(x - r_i) into coefficients, highest order first.
func polyFromRoots(roots []complex128) []complex128 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	return coeffs
}

// Apply runs the filter over x in one direction (direct form II transposed)
// and returns the output.
func (f Bandpass) Apply(x []float64) []float64 {
	n := len(f.A)
	if len(f.B) > n {
		n = len(f.B)
	}
	b := make([]float64, n)
	a := make([]float64, n)
	copy(b, f.B)
	copy(a, f.A)

	// Normalize by a0.
	if a[0] != 1 {
		for i := range b {
			b[i] /= a[0]
		}
		for i := n - 1; i >= 0; i-- {
			a[i] /= a[0]
		}
	}

	state := make([]float64, n-1)
	y := make([]float64, len(x))
	for i, xi := range x {
		yi := b[0]*xi + state[0]
		for j := 0; j < n-2; j++ {
			state[j] = b[j+1]*xi + state[j+1] - a[j+1]*yi
		}
		state[n-2] = b[n-1]*xi - a[n-1]*yi
		y[i] = yi
	}
	return y
}

// FiltFilt applies the filter forward and backward for zero phase
// distortion. The signal is padded at both ends with an odd reflection of
// length three times the coefficient count to suppress edge transients;
// signals too short to pad are filtered without padding.
func (f Bandpass) FiltFilt(x []float64) []float64 {
	ntaps := len(f.A)
	if len(f.B) > ntaps {
		ntaps = len(f.B)
	}
	padlen := 3 * ntaps

	if padlen >= len(x) {
		padlen = 0
	}

	ext := x
	if padlen > 0 {
		ext = make([]float64, 0, len(x)+2*padlen)
		for i := padlen; i >= 1; i-- {
			ext = append(ext, 2*x[0]-x[i])
		}
		ext = append(ext, x...)
		last := len(x) - 1
		for i := 1; i <= padlen; i++ {
			ext = append(ext, 2*x[last]-x[last-i])
		}
	}

	y := f.Apply(ext)
	reverse(y)
	y = f.Apply(y)
	reverse(y)

	if padlen > 0 {
		y = y[padlen : len(y)-padlen]
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
