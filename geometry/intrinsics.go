package geometry

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ScaleIntrinsic returns a copy of the 3x3 camera matrix k adjusted for an
// image downscaled by the integer factor scale: the focal-length and
// principal-point rows are divided by scale while the homogeneous row
// [0, 0, 1] stays fixed.
func ScaleIntrinsic(k mat.Matrix, scale int) *mat.Dense {
	s := 1 / float64(scale)
	scaled := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		scaled.Set(0, j, k.At(0, j)*s)
		scaled.Set(1, j, k.At(1, j)*s)
		scaled.Set(2, j, k.At(2, j))
	}
	return scaled
}

// ScaleIntrinsics applies ScaleIntrinsic to every camera matrix in a batch.
func ScaleIntrinsics(ks []*mat.Dense, scale int) []*mat.Dense {
	scaled := make([]*mat.Dense, len(ks))
	for i, k := range ks {
		scaled[i] = ScaleIntrinsic(k, scale)
	}
	return scaled
}

// InvertIntrinsic inverts a 3x3 camera matrix.
func InvertIntrinsic(k mat.Matrix) (*mat.Dense, error) {
	r, c := k.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("intrinsic matrix is %dx%d, want 3x3", r, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "intrinsic matrix is singular")
	}
	return &inv, nil
}

// FormatMatrix renders a matrix for logging.
func FormatMatrix(matrix mat.Matrix) fmt.Formatter {
	return mat.Formatted(matrix, mat.Prefix("    "), mat.Squeeze())
}
