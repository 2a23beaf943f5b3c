package features

// Block is a square, row-major matrix of DCT coefficients. Coef[0] is the DC term.
type Block struct {
	Size int
	Coef []float64
}

// At returns the coefficient at row r, column c.
func (b Block) At(r, c int) float64 {
	return b.Coef[r*b.Size+c]
}
