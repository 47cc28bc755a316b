package synthesis

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/geometry"
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// MultiScale runs the warp + resample pipeline at every depth-prediction
// scale. The zero value is ready to use; Log, when set, traces each stage.
type MultiScale struct {
	Log golog.Logger
}

// Synthesize reconstructs the target view from every source frame at each
// scale of the depth pyramid.
//
// srcStacked holds the source frames stacked along the height axis
// [batch, numSrc*height, width, 3], intrinsics one 3x3 camera matrix per
// sample, depthMS the predicted target depth per scale [batch, height/s,
// width/s, 1] and pose the predicted target-to-source transforms
// [batch, numSrc, 6]. The result follows depthMS order, one synthesized
// view tensor [batch, numSrc, height/s, width/s, 3] per scale.
func (ms *MultiScale) Synthesize(srcStacked *tensor.Dense, intrinsics []*mat.Dense,
	depthMS []*tensor.Dense, pose *tensor.Dense,
) ([]*tensor.Dense, error) {
	if err := tensor.CheckShape("stacked sources", srcStacked,
		tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return nil, err
	}
	if err := tensor.CheckShape("pose", pose,
		srcStacked.Dim(0), tensor.Any, geometry.PoseDim); err != nil {
		return nil, err
	}
	if len(depthMS) == 0 {
		return nil, errors.New("empty depth pyramid")
	}
	if len(intrinsics) != srcStacked.Dim(0) {
		return nil, errors.Errorf("got %d intrinsic matrices, want %d",
			len(intrinsics), srcStacked.Dim(0))
	}
	numSrc := pose.Dim(1)
	if srcStacked.Dim(1)%numSrc != 0 {
		return nil, errors.Errorf("stacked height %d is not divisible by %d source frames",
			srcStacked.Dim(1), numSrc)
	}
	widthOri := srcStacked.Dim(2)

	poses, err := geometry.VecToMatrices(pose)
	if err != nil {
		return nil, err
	}

	synthesized := make([]*tensor.Dense, 0, len(depthMS))
	for _, depthSc := range depthMS {
		if err := tensor.CheckShape("depth level", depthSc,
			srcStacked.Dim(0), tensor.Any, tensor.Any, 1); err != nil {
			return nil, err
		}
		widthSc := depthSc.Dim(2)
		if widthSc == 0 || widthOri%widthSc != 0 {
			return nil, errors.Errorf("level width %d does not divide image width %d",
				widthSc, widthOri)
		}
		scale := widthOri / widthSc

		intrinsicSc := geometry.ScaleIntrinsics(intrinsics, scale)
		srcImages, err := reshapeSourceImages(srcStacked, numSrc, scale)
		if err != nil {
			return nil, errors.Wrapf(err, "scale 1/%d", scale)
		}
		coords, err := WarpCoords(depthSc, poses, intrinsicSc)
		if err != nil {
			return nil, errors.Wrapf(err, "scale 1/%d", scale)
		}
		recon, err := Reconstruct(coords, srcImages, depthSc)
		if err != nil {
			return nil, errors.Wrapf(err, "scale 1/%d", scale)
		}
		if ms.Log != nil {
			ms.Log.Debugf("synthesized scale 1/%d: %v", scale, recon.Shape())
		}
		synthesized = append(synthesized, recon)
	}
	return synthesized, nil
}

// reshapeSourceImages rescales the stacked source frames by the integer
// factor scale and splits the stack into one sub-tensor per source frame:
// [batch, numSrc*height, width, 3] -> [batch, numSrc, height/scale,
// width/scale, 3]. Resizing the whole stack at once is safe for integer
// factors: half-pixel sample points never cross a frame boundary.
func reshapeSourceImages(srcStacked *tensor.Dense, numSrc, scale int) (*tensor.Dense, error) {
	batch, stackedHeight, width := srcStacked.Dim(0), srcStacked.Dim(1), srcStacked.Dim(2)
	height := stackedHeight / numSrc
	scHeight, scWidth := height/scale, width/scale
	if scHeight*scale != height || scWidth*scale != width {
		return nil, errors.Errorf("image %dx%d is not divisible by scale %d", width, height, scale)
	}
	scaled, err := ResizeBilinear(srcStacked, scHeight*numSrc, scWidth)
	if err != nil {
		return nil, err
	}
	return scaled.Reshape(batch, numSrc, scHeight, scWidth, 3)
}
