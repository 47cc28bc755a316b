package geometry

import (
	"gonum.org/v1/gonum/mat"
)

// PixelMeshgrid returns the homogeneous pixel coordinates of every pixel in a
// height x width image as a 3 x (height*width) matrix whose columns are
// (u, v, 1) vectors, in row-major pixel order. The grid depends only on the
// resolution, not on the batch.
func PixelMeshgrid(height, width int) *mat.Dense {
	grid := mat.NewDense(3, height*width, nil)
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			col := v*width + u
			grid.Set(0, col, float64(u))
			grid.Set(1, col, float64(v))
			grid.Set(2, col, 1)
		}
	}
	return grid
}
