package features

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// hamming returns a Hamming window of length n.
func hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// powerSTFT returns the time-major power spectrogram of samples:
// out[frame][bin] for bins 0..fftSize/2. samples must hold at least one window.
func powerSTFT(samples []float64, fftSize, hop int, window []float64) [][]float64 {
	var frames [][]float64
	buf := make([]float64, fftSize)
	for start := 0; start+fftSize <= len(samples); start += hop {
		for i := range buf {
			buf[i] = samples[start+i] * window[i]
		}
		spec := fft.FFTReal(buf)
		power := make([]float64, fftSize/2+1)
		for k := range power {
			a := cmplx.Abs(spec[k])
			power[k] = a * a
		}
		frames = append(frames, power)
	}
	return frames
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds numFilters triangular filters spaced evenly on the mel
// scale between 0 Hz and Nyquist. Each filter spans fftSize/2+1 bins.
func melFilterBank(numFilters, fftSize, sampleRate int) [][]float64 {
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(sampleRate) / 2)
	step := (highMel - lowMel) / float64(numFilters+1)

	bins := make([]int, numFilters+2)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bins[i] = min(int(math.Floor(float64(fftSize+1)*hz/float64(sampleRate))), fftSize/2)
	}

	bank := make([][]float64, numFilters)
	for m := 1; m <= numFilters; m++ {
		filter := make([]float64, fftSize/2+1)
		left, center, right := bins[m-1], bins[m], bins[m+1]
		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k < right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		// Filters narrower than one bin still see their centre bin.
		if left == right {
			filter[center] = 1
		}
		bank[m-1] = filter
	}
	return bank
}

// areaResample averages src onto n equal-width cells. When n exceeds
// len(src) cells repeat the value they fall in.
func areaResample(src []float64, n int) []float64 {
	out := make([]float64, n)
	scale := float64(len(src)) / float64(n)
	for j := range out {
		lo, hi := float64(j)*scale, float64(j+1)*scale
		var sum float64
		for i := int(lo); i < len(src) && float64(i) < hi; i++ {
			overlap := math.Min(hi, float64(i+1)) - math.Max(lo, float64(i))
			sum += src[i] * overlap
		}
		out[j] = sum / scale
	}
	return out
}
