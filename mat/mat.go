// Package mat holds small helpers for moving column slices into gonum matrices.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyArray  = errors.New("empty array")
	ErrRowMismatch = errors.New("row size mismatch")
)

// NewDenseFromColumns builds a dense matrix where each input slice becomes a column.
func NewDenseFromColumns(cols [][]float64) (*mat.Dense, error) {
	n := len(cols)
	if n == 0 {
		return nil, ErrEmptyArray
	}

	m := len(cols[0])
	for j, col := range cols {
		if len(col) != m {
			return nil, fmt.Errorf("at column %d, %w", j, ErrRowMismatch)
		}
	}
	if m == 0 {
		return nil, ErrEmptyArray
	}

	mx := mat.NewDense(m, n, nil)
	for j, col := range cols {
		mx.SetCol(j, col)
	}
	return mx, nil
}
