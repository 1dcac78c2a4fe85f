// Package matrix provides the dense-matrix collaborator consumed by the
// engine through its operation call surface. Matrices are opaque handles
// backed by gonum.
package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/noodle-lang/nbc/vm"
)

// ErrNotMatrix indicates an operand that was not produced by this backend.
var ErrNotMatrix = errors.New("value is not a matrix")

// Backend implements the engine's matrix surface.
type Backend struct{}

// New returns a gonum-backed matrix collaborator.
func New() *Backend { return &Backend{} }

// CreateMatrix builds a dense matrix from row-major data. Rows must be
// non-empty and of equal length.
func (b *Backend) CreateMatrix(rows [][]float64) (vm.Value, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("matrix needs at least one row and column")
	}
	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

// Add returns a+b.
func (b *Backend) Add(a, c vm.Value) (vm.Value, error) {
	ma, mb, err := elementwisePair(a, c)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Add(ma, mb)
	return &out, nil
}

// Subtract returns a-b.
func (b *Backend) Subtract(a, c vm.Value) (vm.Value, error) {
	ma, mb, err := elementwisePair(a, c)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Sub(ma, mb)
	return &out, nil
}

// Multiply returns the matrix product a*b.
func (b *Backend) Multiply(a, c vm.Value) (vm.Value, error) {
	ma, mb, err := densePair(a, c)
	if err != nil {
		return nil, err
	}
	ar, ac := ma.Dims()
	br, _ := mb.Dims()
	if ac != br {
		return nil, fmt.Errorf("dimension mismatch: %dx%d * %dx%d", ar, ac, br, ac)
	}
	var out mat.Dense
	out.Mul(ma, mb)
	return &out, nil
}

// Transpose returns the transpose as a new matrix.
func (b *Backend) Transpose(m vm.Value) (vm.Value, error) {
	md, err := dense(m)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.CloneFrom(md.T())
	return &out, nil
}

// Inverse returns the inverse, failing on singular or non-square input.
func (b *Backend) Inverse(m vm.Value) (vm.Value, error) {
	md, err := dense(m)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	if err := out.Inverse(md); err != nil {
		return nil, fmt.Errorf("inverse: %w", err)
	}
	return &out, nil
}

// Determinant returns det(m) for square m.
func (b *Backend) Determinant(m vm.Value) (float64, error) {
	md, err := dense(m)
	if err != nil {
		return 0, err
	}
	r, c := md.Dims()
	if r != c {
		return 0, fmt.Errorf("determinant of non-square %dx%d matrix", r, c)
	}
	return mat.Det(md), nil
}

func dense(v vm.Value) (*mat.Dense, error) {
	m, ok := v.(*mat.Dense)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotMatrix, v)
	}
	return m, nil
}

func densePair(a, b vm.Value) (*mat.Dense, *mat.Dense, error) {
	ma, err := dense(a)
	if err != nil {
		return nil, nil, err
	}
	mb, err := dense(b)
	if err != nil {
		return nil, nil, err
	}
	return ma, mb, nil
}

// elementwisePair resolves two matrices and requires equal dimensions.
func elementwisePair(a, b vm.Value) (*mat.Dense, *mat.Dense, error) {
	ma, mb, err := densePair(a, b)
	if err != nil {
		return nil, nil, err
	}
	ar, ac := ma.Dims()
	br, bc := mb.Dims()
	if ar != br || ac != bc {
		return nil, nil, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d", ar, ac, br, bc)
	}
	return ma, mb, nil
}
