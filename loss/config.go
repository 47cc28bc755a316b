package loss

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownLoss reports a loss name with no registered evaluator.
	ErrUnknownLoss = errors.New("unknown loss name")
	// ErrBadConfig reports an otherwise invalid loss configuration.
	ErrBadConfig = errors.New("invalid loss configuration")
)

// Method selects the photometric comparison. It is resolved from the
// configured name once, at construction, so no name matching happens while
// computing losses.
type Method int

const (
	// MethodL1 compares pixels by mean absolute difference.
	MethodL1 Method = iota
	// MethodSSIM compares pixels by structural similarity.
	MethodSSIM
)

// Term configures one weighted loss evaluator.
type Term struct {
	Name   string
	Weight float64
}

// Config configures a TotalLoss. Stereo enables the right-camera and
// cross-camera evaluators and requires the stereo fields of Features and
// Predictions. Log, when set, traces the synthesis stages.
type Config struct {
	Terms  []Term
	Stereo bool
	Log    golog.Logger
}

// evaluator names understood by New. The "_R" suffix computes the same loss
// on the right-camera stream; "stereo" scores the cross-camera synthesis with
// L1 and "stereo_SSIM" with SSIM.
const (
	nameL1         = "L1"
	nameSSIM       = "SSIM"
	nameSmooth     = "smoothe"
	nameL1R        = "L1_R"
	nameSSIMR      = "SSIM_R"
	nameSmoothR    = "smoothe_R"
	nameStereo     = "stereo"
	nameStereoSSIM = "stereo_SSIM"
	nameStereoPose = "stereo_pose"
)

func (c Config) build() ([]Evaluator, []float64, error) {
	if len(c.Terms) == 0 {
		return nil, nil, errors.Wrap(ErrBadConfig, "no loss terms configured")
	}
	evaluators := make([]Evaluator, 0, len(c.Terms))
	weights := make([]float64, 0, len(c.Terms))
	for _, term := range c.Terms {
		if math.IsNaN(term.Weight) || math.IsInf(term.Weight, 0) || term.Weight < 0 {
			return nil, nil, errors.Wrapf(ErrBadConfig, "weight %v for %q", term.Weight, term.Name)
		}
		ev, stereoOnly, err := newEvaluator(term.Name)
		if err != nil {
			return nil, nil, err
		}
		if stereoOnly && !c.Stereo {
			return nil, nil, errors.Wrapf(ErrBadConfig, "%q needs stereo inputs", term.Name)
		}
		evaluators = append(evaluators, ev)
		weights = append(weights, term.Weight)
	}
	return evaluators, weights, nil
}

func newEvaluator(name string) (ev Evaluator, stereoOnly bool, err error) {
	switch name {
	case nameL1:
		return newPhotometric(name, MethodL1, false), false, nil
	case nameSSIM:
		return newPhotometric(name, MethodSSIM, false), false, nil
	case nameSmooth:
		return &Smoothness{name: name}, false, nil
	case nameL1R:
		return newPhotometric(name, MethodL1, true), true, nil
	case nameSSIMR:
		return newPhotometric(name, MethodSSIM, true), true, nil
	case nameSmoothR:
		return &Smoothness{name: name, right: true}, true, nil
	case nameStereo:
		return newStereoDepth(name, MethodL1), true, nil
	case nameStereoSSIM:
		return newStereoDepth(name, MethodSSIM), true, nil
	case nameStereoPose:
		return &StereoPose{name: name}, true, nil
	default:
		return nil, false, errors.Wrapf(ErrUnknownLoss, "%q", name)
	}
}
