package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// dctBasis returns the orthonormal DCT-II matrix C of order n, so that
// C * x is the transform of the column vector x.
func dctBasis(n int) *mat.Dense {
	c := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			c.Set(k, i, scale*math.Cos(math.Pi*float64(2*i+1)*float64(k)/float64(2*n)))
		}
	}
	return c
}

// transform applies rescale, 2D DCT and crop. It is read-only after
// construction and safe to share between goroutines.
type transform struct {
	size   int
	window int
	basis  *mat.Dense
}

func newTransform(cfg Config) *transform {
	return &transform{size: cfg.HashSize, window: cfg.Window, basis: dctBasis(cfg.HashSize)}
}

// dct2 computes C X Cᵀ: rows first, then columns.
func (t *transform) dct2(values []float64) *mat.Dense {
	x := mat.NewDense(t.size, t.size, values)
	var rows, out mat.Dense
	rows.Mul(x, t.basis.T())
	out.Mul(t.basis, &rows)
	return &out
}

// block rescales values (size*size, row-major) in place and returns the
// top-left window of their DCT.
func (t *transform) block(values []float64) Block {
	rescale(values)
	coef := t.dct2(values)

	out := Block{Size: t.window, Coef: make([]float64, t.window*t.window)}
	for r := 0; r < t.window; r++ {
		for c := 0; c < t.window; c++ {
			out.Coef[r*t.window+c] = coef.At(r, c)
		}
	}
	return out
}

// rescale stretches values linearly onto [0, 255]. A constant input becomes
// all zeros.
func rescale(values []float64) {
	if len(values) == 0 {
		return
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		for i := range values {
			values[i] = 0
		}
		return
	}
	floats.AddConst(-lo, values)
	floats.Scale(255/(hi-lo), values)
}

// DCT2 returns the orthonormal 2D DCT-II of an n×n row-major matrix.
func DCT2(values []float64, n int) ([]float64, error) {
	if n <= 0 || len(values) != n*n {
		return nil, fmt.Errorf("dct2: need %d values for order %d, got %d", n*n, n, len(values))
	}
	t := &transform{size: n, window: n, basis: dctBasis(n)}
	in := make([]float64, len(values))
	copy(in, values)
	coef := t.dct2(in)

	out := make([]float64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out[r*n+c] = coef.At(r, c)
		}
	}
	return out, nil
}
