// Package tensor provides the dense row-major float64 tensors the synthesis
// and loss pipelines operate on, together with the shape assertions enforced
// at their public entry points.
package tensor

import (
	"github.com/pkg/errors"
)

// Dense is a dense row-major tensor. The zero value is not usable; construct
// with New or FromSlice.
type Dense struct {
	shape []int
	data  []float64
}

// New returns a zero-filled tensor with the given shape.
func New(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Dense{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

// FromSlice wraps data in a tensor with the given shape. The slice is not
// copied. The product of the dimensions must equal len(data).
func FromSlice(data []float64, shape ...int) (*Dense, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, errors.Errorf("tensor: invalid dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, errors.Errorf("tensor: shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &Dense{shape: append([]int(nil), shape...), data: data}, nil
}

// Shape returns the dimensions. The returned slice must not be modified.
func (t *Dense) Shape() []int { return t.shape }

// Rank returns the number of dimensions.
func (t *Dense) Rank() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Dense) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t *Dense) Len() int { return len(t.data) }

// Data returns the backing slice in row-major order.
func (t *Dense) Data() []float64 { return t.data }

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Dense{shape: append([]int(nil), t.shape...), data: data}
}

// Reshape returns a tensor sharing this tensor's data with a new shape of the
// same total size.
func (t *Dense) Reshape(shape ...int) (*Dense, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(t.data) {
		return nil, errors.Errorf("tensor: cannot reshape %v (%d values) to %v (%d values)",
			t.shape, len(t.data), shape, n)
	}
	return &Dense{shape: append([]int(nil), shape...), data: t.data}, nil
}

// Fill sets every element to v.
func (t *Dense) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// At returns the element at the given indices.
func (t *Dense) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set stores v at the given indices.
func (t *Dense) Set(v float64, indices ...int) {
	t.data[t.offset(indices)] = v
}

func (t *Dense) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(errors.Errorf("tensor: %d indices for rank-%d tensor", len(indices), len(t.shape)))
	}
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(errors.Errorf("tensor: index %d out of range [0,%d) in dimension %d", idx, t.shape[i], i))
		}
		off = off*t.shape[i] + idx
	}
	return off
}
