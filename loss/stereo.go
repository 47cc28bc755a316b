package loss

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/geometry"
	"github.com/WELLBEINGLWB/vode-2020/synthesis"
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// StereoDepth supervises depth through the fixed stereo rig: the opposite
// camera's frame is warped into each camera's view with the known left-right
// extrinsic in place of a predicted pose, and compared photometrically. No
// ground-truth depth is involved.
type StereoDepth struct {
	name  string
	photo photometricFn
	synth synthesis.MultiScale
}

func newStereoDepth(name string, method Method) *StereoDepth {
	l := &StereoDepth{name: name}
	switch method {
	case MethodSSIM:
		l.photo = photometricSSIM
	default:
		l.photo = photometricL1
	}
	return l
}

// Name implements Evaluator.
func (l *StereoDepth) Name() string { return l.name }

// Compute implements Evaluator. Both warp directions contribute: the left
// view synthesized from the right frame through inv(T_LR), and the right
// view synthesized from the left frame through T_LR.
func (l *StereoDepth) Compute(features *Features, preds *Predictions, augm *Augmented) (*tensor.Dense, error) {
	if augm.Right == nil {
		return nil, errors.New("right-camera data not available")
	}
	batch := len(features.StereoTLR)
	poseRL := make([]*mat.Dense, batch)
	for b, tlr := range features.StereoTLR {
		poseRL[b] = geometry.InvertPose(tlr)
	}

	lossLeft, err := l.direction(augm.Right.Target, augm.Left.TargetMS,
		preds.DepthMS, poseRL, features.Intrinsic)
	if err != nil {
		return nil, errors.Wrap(err, "right to left")
	}
	lossRight, err := l.direction(augm.Left.Target, augm.Right.TargetMS,
		preds.DepthMSR, features.StereoTLR, features.IntrinsicR)
	if err != nil {
		return nil, errors.Wrap(err, "left to right")
	}

	out := tensor.New(batch)
	for _, perSrc := range lossLeft {
		sumSources(out.Data(), perSrc)
	}
	for _, perSrc := range lossRight {
		sumSources(out.Data(), perSrc)
	}
	return out, nil
}

// direction synthesizes one camera's target pyramid from the opposite
// camera's frame and scores it photometrically per scale. The opposite
// frame acts as a single-source stack, so [batch, height, width, 3] already
// has the stacked [batch, 1*height, width, 3] layout.
func (l *StereoDepth) direction(sourceImg *tensor.Dense, targetMS, depthMS []*tensor.Dense,
	poseT2S []*mat.Dense, intrinsics []*mat.Dense,
) ([]*tensor.Dense, error) {
	if len(depthMS) == 0 {
		return nil, errors.New("no depth pyramid")
	}
	batched := make([][]*mat.Dense, len(poseT2S))
	for b, p := range poseT2S {
		batched[b] = []*mat.Dense{p}
	}
	poseVec, err := geometry.MatricesToVec(batched)
	if err != nil {
		return nil, err
	}
	synthMS, err := l.synth.Synthesize(sourceImg, intrinsics, depthMS, poseVec)
	if err != nil {
		return nil, err
	}
	if len(synthMS) != len(targetMS) {
		return nil, errors.Errorf("got %d synthesized scales and %d target scales",
			len(synthMS), len(targetMS))
	}
	losses := make([]*tensor.Dense, len(synthMS))
	for i, synth := range synthMS {
		loss, err := l.photo(synth, targetMS[i])
		if err != nil {
			return nil, errors.Wrapf(err, "scale %d", i)
		}
		losses[i] = loss
	}
	return losses, nil
}

// StereoPose penalizes the squared error between the predicted left-right
// stereo poses (both directions) and the pose vectors derived from the known
// extrinsic, so the predictions learn the fixed baseline.
type StereoPose struct {
	name string
}

// Name implements Evaluator.
func (l *StereoPose) Name() string { return l.name }

// Compute implements Evaluator.
func (l *StereoPose) Compute(features *Features, preds *Predictions, _ *Augmented) (*tensor.Dense, error) {
	if preds.PoseLR == nil || preds.PoseRL == nil {
		return nil, errors.New("predictions carry no stereo poses")
	}
	batch := len(features.StereoTLR)
	if err := tensor.CheckShape("pose LR", preds.PoseLR,
		batch, tensor.Any, geometry.PoseDim); err != nil {
		return nil, err
	}
	if err := tensor.CheckShape("pose RL", preds.PoseRL,
		batch, preds.PoseLR.Dim(1), geometry.PoseDim); err != nil {
		return nil, err
	}

	out := tensor.New(batch)
	outData := out.Data()
	for b, tlr := range features.StereoTLR {
		trueLR, err := geometry.MatrixToVec(tlr)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", b)
		}
		trueRL, err := geometry.MatrixToVec(geometry.InvertPose(tlr))
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", b)
		}
		outData[b] = poseMSE(preds.PoseLR, b, trueLR) + poseMSE(preds.PoseRL, b, trueRL)
	}
	return out, nil
}

// poseMSE averages the squared error against the reference vector over the
// pose components and the source dimension of sample b.
func poseMSE(pred *tensor.Dense, b int, want []float64) float64 {
	numSrc := pred.Dim(1)
	data := pred.Data()
	sum := 0.0
	for s := 0; s < numSrc; s++ {
		off := (b*numSrc + s) * geometry.PoseDim
		for i, w := range want {
			d := data[off+i] - w
			sum += d * d
		}
	}
	return sum / float64(numSrc*geometry.PoseDim)
}
