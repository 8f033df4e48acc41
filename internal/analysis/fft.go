package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the one-sided magnitude spectrum of samples taken
// every dt seconds, after removing the mean and applying a Hann window.
// freqs[i] is the frequency of mags[i] in Hz.
func PowerSpectrum(samples []float64, dt float64) (freqs, mags []float64) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	buf := make([]complex128, n)
	for i, v := range samples {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		buf[i] = complex((v-mean)*window, 0)
	}
	spectrum := fft.FFT(buf)

	half := n / 2
	freqs = make([]float64, half)
	mags = make([]float64, half)
	for i := 0; i < half; i++ {
		freqs[i] = float64(i) / (float64(n) * dt)
		mags[i] = cmplx.Abs(spectrum[i])
	}
	return freqs, mags
}

// DominantFrequency is the non-DC frequency with the largest magnitude.
// It returns 0 for signals too short to have one.
func DominantFrequency(samples []float64, dt float64) (float64, float64) {
	freqs, mags := PowerSpectrum(samples, dt)
	best, bestMag := 0.0, 0.0
	for i := 1; i < len(mags); i++ {
		if mags[i] > bestMag {
			best, bestMag = freqs[i], mags[i]
		}
	}
	return best, bestMag
}

// SettlingTime is the first time after which |values| stays within band.
// ok is false when the signal never settles.
func SettlingTime(values, times []float64, band float64) (float64, bool) {
	n := len(values)
	if n == 0 || n != len(times) {
		return 0, false
	}
	if math.Abs(values[n-1]) > band {
		return 0, false
	}
	i := n - 1
	for i > 0 && math.Abs(values[i-1]) <= band {
		i--
	}
	return times[i], true
}

func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(values)))
}
