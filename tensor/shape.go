package tensor

import (
	"github.com/pkg/errors"
)

// Any matches any dimension size in CheckShape.
const Any = -1

// ErrShape reports a tensor whose rank or dimensions differ from the contract
// declared at a public entry point.
var ErrShape = errors.New("shape mismatch")

// CheckShape verifies that t has the wanted rank and dimensions. A wanted
// dimension of Any matches any size. The name identifies the argument in the
// returned error.
func CheckShape(name string, t *Dense, want ...int) error {
	if t == nil {
		return errors.Wrapf(ErrShape, "%s: tensor is nil, want shape %v", name, want)
	}
	if t.Rank() != len(want) {
		return errors.Wrapf(ErrShape, "%s: rank %d with shape %v, want rank %d with shape %v",
			name, t.Rank(), t.Shape(), len(want), want)
	}
	for i, w := range want {
		if w != Any && t.Dim(i) != w {
			return errors.Wrapf(ErrShape, "%s: dimension %d is %d in shape %v, want %v",
				name, i, t.Dim(i), t.Shape(), want)
		}
	}
	return nil
}

// SameShape verifies that a and b have identical shapes.
func SameShape(nameA string, a *Dense, nameB string, b *Dense) error {
	if a.Rank() != b.Rank() {
		return errors.Wrapf(ErrShape, "%s has shape %v but %s has shape %v",
			nameA, a.Shape(), nameB, b.Shape())
	}
	for i := range a.Shape() {
		if a.Dim(i) != b.Dim(i) {
			return errors.Wrapf(ErrShape, "%s has shape %v but %s has shape %v",
				nameA, a.Shape(), nameB, b.Shape())
		}
	}
	return nil
}
