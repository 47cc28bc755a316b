package loss

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

func TestNewRejectsUnknownLoss(t *testing.T) {
	_, err := New(Config{Terms: []Term{{Name: "charbonnier", Weight: 1}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLoss))
}

func TestNewRejectsBadWeights(t *testing.T) {
	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := New(Config{Terms: []Term{{Name: "L1", Weight: w}}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBadConfig))
	}
}

func TestNewRejectsStereoTermsWithoutStereo(t *testing.T) {
	for _, name := range []string{"L1_R", "SSIM_R", "smoothe_R", "stereo", "stereo_SSIM", "stereo_pose"} {
		_, err := New(Config{Terms: []Term{{Name: name, Weight: 1}}})
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrBadConfig), name)
	}
}

func TestNewRejectsEmptyConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadConfig))
}

// snippetBatch builds a stacked snippet whose frames are all identical per
// sample, together with matching intrinsics and identity poses, so a constant
// depth prediction reconstructs the target exactly.
func snippetBatch(batch, snippetLen, height, width int) (*Features, *Predictions) {
	frame := patternTarget(batch, height, width)
	stacked := tensor.New(batch, snippetLen*height, width, 3)
	frameLen := height * width * 3
	for b := 0; b < batch; b++ {
		src := frame.Data()[b*frameLen : (b+1)*frameLen]
		for f := 0; f < snippetLen; f++ {
			copy(stacked.Data()[(b*snippetLen+f)*frameLen:], src)
		}
	}

	intrinsics := make([]*mat.Dense, batch)
	for b := range intrinsics {
		intrinsics[b] = stereoIntrinsic()
	}

	disp := tensor.New(batch, height, width, 1)
	disp.Fill(0.2)
	features := &Features{Image: stacked, Intrinsic: intrinsics}
	preds := &Predictions{
		DispMS: []*tensor.Dense{disp},
		Pose:   tensor.New(batch, snippetLen-1, 6),
	}
	return features, preds
}

func TestTotalLossPerfectPrediction(t *testing.T) {
	features, preds := snippetBatch(2, 3, 16, 16)
	total, err := New(Config{Terms: []Term{
		{Name: "L1", Weight: 1},
		{Name: "SSIM", Weight: 1},
		{Name: "smoothe", Weight: 0.5},
	}})
	require.NoError(t, err)

	lossBatch, losses, err := total.Compute(features, preds)
	require.NoError(t, err)
	require.Equal(t, []int{2}, lossBatch.Shape())
	require.Len(t, losses, 3)

	// Identical frames, identity poses and constant disparity leave nothing
	// to penalize.
	for b := 0; b < 2; b++ {
		assert.InDelta(t, 0.0, lossBatch.At(b), 1e-6)
		for _, contribution := range losses {
			assert.InDelta(t, 0.0, contribution.At(b), 1e-6)
		}
	}
}

func TestTotalLossWeightsContributions(t *testing.T) {
	features, preds := snippetBatch(1, 3, 16, 16)
	// Perturb the source frames so the photometric losses are nonzero.
	frameLen := 16 * 16 * 3
	for i := 0; i < 2*frameLen; i++ {
		features.Image.Data()[i] += 0.05
	}

	run := func(weight float64) (float64, float64) {
		total, err := New(Config{Terms: []Term{{Name: "L1", Weight: weight}}})
		require.NoError(t, err)
		lossBatch, losses, err := total.Compute(features, preds)
		require.NoError(t, err)
		require.Len(t, losses, 1)
		return lossBatch.At(0), losses[0].At(0)
	}

	totalOne, lossOne := run(1)
	require.Greater(t, lossOne, 0.0)
	assert.InDelta(t, totalOne, lossOne, 1e-12)

	totalTwo, lossTwo := run(2)
	assert.InDelta(t, 2*lossOne, lossTwo, 1e-9)
	assert.InDelta(t, 2*totalOne, totalTwo, 1e-9)
}

func TestTotalLossDerivesDepthFromDisparity(t *testing.T) {
	features, preds := snippetBatch(1, 3, 16, 16)
	require.Empty(t, preds.DepthMS)

	total, err := New(Config{Terms: []Term{{Name: "L1", Weight: 1}}})
	require.NoError(t, err)
	_, _, err = total.Compute(features, preds)
	require.NoError(t, err)
	// The caller's predictions stay untouched.
	assert.Empty(t, preds.DepthMS)
}

func TestTotalLossRejectsMissingDepth(t *testing.T) {
	features, preds := snippetBatch(1, 3, 16, 16)
	preds.DispMS = nil

	total, err := New(Config{Terms: []Term{{Name: "L1", Weight: 1}}})
	require.NoError(t, err)
	_, _, err = total.Compute(features, preds)
	assert.Error(t, err)
}

func TestTotalLossRejectsBadPoseShape(t *testing.T) {
	features, preds := snippetBatch(1, 3, 16, 16)
	preds.Pose = tensor.New(1, 2, 4)

	total, err := New(Config{Terms: []Term{{Name: "L1", Weight: 1}}})
	require.NoError(t, err)
	_, _, err = total.Compute(features, preds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrShape))
}

func TestTotalLossStereo(t *testing.T) {
	const height, width = 16, 16
	features, preds := snippetBatch(1, 3, height, width)
	featuresR, predsR := snippetBatch(1, 3, height, width)
	features.ImageR = featuresR.Image
	features.IntrinsicR = featuresR.Intrinsic
	features.StereoTLR = []*mat.Dense{rigExtrinsic(t, make([]float64, 6))}
	preds.DispMSR = predsR.DispMS
	preds.PoseR = predsR.Pose
	preds.PoseLR = poseTensor(t, make([]float64, 6))
	preds.PoseRL = poseTensor(t, make([]float64, 6))

	total, err := New(Config{
		Terms: []Term{
			{Name: "L1", Weight: 1},
			{Name: "L1_R", Weight: 1},
			{Name: "stereo", Weight: 1},
			{Name: "stereo_SSIM", Weight: 1},
			{Name: "stereo_pose", Weight: 1},
		},
		Stereo: true,
	})
	require.NoError(t, err)

	lossBatch, losses, err := total.Compute(features, preds)
	require.NoError(t, err)
	require.Len(t, losses, 5)
	// Identical left/right streams and an identity rig leave every term at
	// zero.
	assert.InDelta(t, 0.0, lossBatch.At(0), 1e-5)
}
