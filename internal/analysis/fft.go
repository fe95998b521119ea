// Package analysis looks for oscillation in recorded telemetry, such as a
// heading that hunts around its goal or a flywheel cycling through the
// bang-bang band.
package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/montanaflynn/stats"
)

var ErrTooShort = errors.New("analysis: need at least four samples")

// FFT transforms real samples of any length.
func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// PowerSpectrum returns the magnitude of the first half of the transform.
func PowerSpectrum(data []float64) []float64 {
	out := FFT(data)
	ps := make([]float64, len(out)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(out[i])
	}
	return ps
}

// Spectrum is a power spectrum with its bin width.
type Spectrum struct {
	Power []float64
	BinHz float64
}

// Oscillation is the strongest periodic component of a signal.
type Oscillation struct {
	Hz        float64
	Period    float64 // s, 0 when Hz is 0
	Amplitude float64 // peak, in signal units
}

// Analyze removes the mean from data sampled every dt seconds, zero pads
// it to a power of two and returns its spectrum.
func Analyze(data []float64, dt float64) (Spectrum, error) {
	if len(data) < 4 {
		return Spectrum{}, ErrTooShort
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Spectrum{}, err
	}

	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}
	return Spectrum{Power: PowerSpectrum(padded), BinHz: 1 / (float64(n) * dt)}, nil
}

// Dominant picks the strongest non-DC bin. samples is the unpadded signal
// length, used to scale the amplitude.
func (s Spectrum) Dominant(samples int) Oscillation {
	best, idx := 0.0, 0
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > best {
			best, idx = s.Power[i], i
		}
	}
	o := Oscillation{Hz: float64(idx) * s.BinHz}
	if o.Hz > 0 {
		o.Period = 1 / o.Hz
	}
	if samples > 0 {
		o.Amplitude = 2 * best / float64(samples)
	}
	return o
}
