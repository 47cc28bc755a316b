package loss

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/geometry"
	"github.com/WELLBEINGLWB/vode-2020/synthesis"
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// Features carries the dataset-loader inputs for one batch. Image stacks the
// snippet frames along the height axis, sources first and target last:
// [batch, snippetLen*height, width, 3]. The right-camera fields are required
// only in stereo mode; StereoTLR maps points from the left camera frame into
// the right camera frame.
type Features struct {
	Image     *tensor.Dense
	Intrinsic []*mat.Dense

	ImageR     *tensor.Dense
	IntrinsicR []*mat.Dense
	StereoTLR  []*mat.Dense
}

// Predictions carries the network outputs for one batch. DepthMS and DispMS
// are multi-scale pyramids [batch, height/s, width/s, 1]; Pose holds the
// target-to-source transforms [batch, numSrc, 6]. When DepthMS is absent it
// is derived from DispMS. PoseLR and PoseRL are the predicted left-to-right
// and right-to-left stereo poses.
type Predictions struct {
	DepthMS []*tensor.Dense
	DispMS  []*tensor.Dense
	Pose    *tensor.Dense

	DepthMSR []*tensor.Dense
	DispMSR  []*tensor.Dense
	PoseR    *tensor.Dense
	PoseLR   *tensor.Dense
	PoseRL   *tensor.Dense
}

// ViewData is the per-camera data the evaluators share: the split source
// stack and target frame, the target resized to every depth scale, and the
// synthesized target views per scale and source frame.
type ViewData struct {
	Source        *tensor.Dense
	Target        *tensor.Dense
	TargetMS      []*tensor.Dense
	SynthTargetMS []*tensor.Dense
}

// Augmented bundles the left (and, in stereo mode, right) view data computed
// once per batch before the evaluators run.
type Augmented struct {
	Left  ViewData
	Right *ViewData
}

func (a *Augmented) view(right bool) (*ViewData, error) {
	if !right {
		return &a.Left, nil
	}
	if a.Right == nil {
		return nil, errors.New("right-camera data not available")
	}
	return a.Right, nil
}

// Evaluator computes one per-sample loss vector from a batch.
type Evaluator interface {
	Name() string
	Compute(features *Features, preds *Predictions, augm *Augmented) (*tensor.Dense, error)
}

// TotalLoss evaluates a weighted list of loss evaluators over a batch.
type TotalLoss struct {
	evaluators []Evaluator
	weights    []float64
	stereo     bool
	synth      synthesis.MultiScale
}

// New resolves a configuration into a TotalLoss. Unknown evaluator names and
// invalid weights fail here, before any batch is processed.
func New(cfg Config) (*TotalLoss, error) {
	evaluators, weights, err := cfg.build()
	if err != nil {
		return nil, err
	}
	return &TotalLoss{
		evaluators: evaluators,
		weights:    weights,
		stereo:     cfg.Stereo,
		synth:      synthesis.MultiScale{Log: cfg.Log},
	}, nil
}

// Compute runs every configured evaluator and returns the per-sample total
// loss [batch] together with the ordered, weighted per-evaluator
// contributions for logging.
func (t *TotalLoss) Compute(features *Features, preds *Predictions) (*tensor.Dense, []*tensor.Dense, error) {
	preds, err := withDepth(preds)
	if err != nil {
		return nil, nil, err
	}
	if err := t.check(features, preds); err != nil {
		return nil, nil, err
	}

	augm := &Augmented{}
	left, err := t.augment(features, preds, false)
	if err != nil {
		return nil, nil, err
	}
	augm.Left = *left
	if t.stereo {
		right, err := t.augment(features, preds, true)
		if err != nil {
			return nil, nil, err
		}
		augm.Right = right
	}

	batch := features.Image.Dim(0)
	lossBatch := tensor.New(batch)
	losses := make([]*tensor.Dense, len(t.evaluators))
	for i, ev := range t.evaluators {
		contribution, err := ev.Compute(features, preds, augm)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "loss %q", ev.Name())
		}
		if err := tensor.CheckShape(ev.Name(), contribution, batch); err != nil {
			return nil, nil, err
		}
		floats.Scale(t.weights[i], contribution.Data())
		floats.Add(lossBatch.Data(), contribution.Data())
		losses[i] = contribution
	}
	return lossBatch, losses, nil
}

// augment splits the stacked snippet, builds the multi-scale target pyramid
// and synthesizes the target views for one camera stream.
func (t *TotalLoss) augment(features *Features, preds *Predictions, right bool) (*ViewData, error) {
	image, intrinsic := features.Image, features.Intrinsic
	depthMS, pose := preds.DepthMS, preds.Pose
	if right {
		image, intrinsic = features.ImageR, features.IntrinsicR
		depthMS, pose = preds.DepthMSR, preds.PoseR
	}

	snippetLen := pose.Dim(1) + 1
	source, target, err := synthesis.SplitSourceTarget(image, snippetLen)
	if err != nil {
		return nil, err
	}
	targetMS, err := synthesis.MultiScaleLike(target, depthMS)
	if err != nil {
		return nil, err
	}
	synthMS, err := t.synth.Synthesize(source, intrinsic, depthMS, pose)
	if err != nil {
		return nil, err
	}
	return &ViewData{
		Source:        source,
		Target:        target,
		TargetMS:      targetMS,
		SynthTargetMS: synthMS,
	}, nil
}

func (t *TotalLoss) check(features *Features, preds *Predictions) error {
	if err := tensor.CheckShape("image", features.Image,
		tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return err
	}
	batch := features.Image.Dim(0)
	if len(features.Intrinsic) != batch {
		return errors.Errorf("got %d intrinsic matrices, want %d", len(features.Intrinsic), batch)
	}
	if err := tensor.CheckShape("pose", preds.Pose,
		batch, tensor.Any, geometry.PoseDim); err != nil {
		return err
	}
	if len(preds.DepthMS) == 0 {
		return errors.New("predictions carry no depth pyramid")
	}
	if !t.stereo {
		return nil
	}
	if err := tensor.CheckShape("right image", features.ImageR,
		batch, tensor.Any, tensor.Any, 3); err != nil {
		return err
	}
	if err := tensor.SameShape("image", features.Image, "right image", features.ImageR); err != nil {
		return err
	}
	if len(features.IntrinsicR) != batch || len(features.StereoTLR) != batch {
		return errors.Errorf("stereo mode needs %d right intrinsics and extrinsics, got %d and %d",
			batch, len(features.IntrinsicR), len(features.StereoTLR))
	}
	if err := tensor.CheckShape("right pose", preds.PoseR,
		batch, tensor.Any, geometry.PoseDim); err != nil {
		return err
	}
	if len(preds.DepthMSR) == 0 {
		return errors.New("predictions carry no right-camera depth pyramid")
	}
	return nil
}

// withDepth derives the depth pyramids from disparity when the network only
// predicted disparity.
func withDepth(preds *Predictions) (*Predictions, error) {
	if (len(preds.DepthMS) > 0 || len(preds.DispMS) == 0) &&
		(len(preds.DepthMSR) > 0 || len(preds.DispMSR) == 0) {
		return preds, nil
	}
	derived := *preds
	if len(derived.DepthMS) == 0 && len(derived.DispMS) > 0 {
		derived.DepthMS = DispToDepth(derived.DispMS)
	}
	if len(derived.DepthMSR) == 0 && len(derived.DispMSR) > 0 {
		derived.DepthMSR = DispToDepth(derived.DispMSR)
	}
	return &derived, nil
}
