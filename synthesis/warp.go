package synthesis

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/geometry"
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// divideEps guards the perspective divide against points projecting onto the
// camera plane.
const divideEps = 1e-10

// WarpCoords maps every target pixel into each source view.
//
// depth holds the target depth [batch, height, width, 1], poses one 4x4
// target-to-source transform per sample and source frame, and intrinsics one
// 3x3 camera matrix per sample. The result holds floating point source pixel
// coordinates [batch, numSrc, 3, height*width] whose first two rows are u and
// v. Points landing outside the source image are not an error here; the
// resampler masks them.
func WarpCoords(depth *tensor.Dense, poses [][]*mat.Dense, intrinsics []*mat.Dense) (*tensor.Dense, error) {
	if err := tensor.CheckShape("depth", depth, tensor.Any, tensor.Any, tensor.Any, 1); err != nil {
		return nil, err
	}
	batch, height, width := depth.Dim(0), depth.Dim(1), depth.Dim(2)
	if len(poses) != batch {
		return nil, errors.Errorf("got poses for %d samples, want %d", len(poses), batch)
	}
	if len(intrinsics) != batch {
		return nil, errors.Errorf("got %d intrinsic matrices, want %d", len(intrinsics), batch)
	}
	numSrc := len(poses[0])
	if numSrc == 0 {
		return nil, errors.New("no source poses")
	}

	n := height * width
	grid := geometry.PixelMeshgrid(height, width)
	out := tensor.New(batch, numSrc, 3, n)
	outData := out.Data()
	depthData := depth.Data()

	camPoints := mat.NewDense(4, n, nil)
	var camRays, srcPoints, srcPixels mat.Dense
	for b := 0; b < batch; b++ {
		if len(poses[b]) != numSrc {
			return nil, errors.Errorf("ragged poses: sample %d has %d sources, want %d",
				b, len(poses[b]), numSrc)
		}
		invK, err := geometry.InvertIntrinsic(intrinsics[b])
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", b)
		}

		// Back-project the pixel grid into camera space and scale the rays
		// by depth, homogenized with a trailing row of ones.
		camRays.Mul(invK, grid)
		dep := depthData[b*n : (b+1)*n]
		for i := 0; i < 3; i++ {
			ray := camRays.RawRowView(i)
			dst := camPoints.RawRowView(i)
			for j := 0; j < n; j++ {
				dst[j] = ray[j] * dep[j]
			}
		}
		ones := camPoints.RawRowView(3)
		for j := 0; j < n; j++ {
			ones[j] = 1
		}

		for s := 0; s < numSrc; s++ {
			srcPoints.Mul(poses[b][s], camPoints)
			srcPixels.Mul(intrinsics[b], srcPoints.Slice(0, 3, 0, n))
			z := srcPixels.RawRowView(2)
			base := ((b*numSrc + s) * 3) * n
			for i := 0; i < 3; i++ {
				row := srcPixels.RawRowView(i)
				dst := outData[base+i*n : base+(i+1)*n]
				for j := 0; j < n; j++ {
					dst[j] = row[j] / (z[j] + divideEps)
				}
			}
			srcPoints.Reset()
			srcPixels.Reset()
		}
	}
	return out, nil
}
