package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

func stepDisparity(t *testing.T) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromSlice([]float64{
		0, 1,
		0, 1,
	}, 1, 2, 2, 1)
	require.NoError(t, err)
	return d
}

func TestSmoothnessConstantDisparityIsZero(t *testing.T) {
	disp := tensor.New(1, 8, 8, 1)
	disp.Fill(0.4)
	image := patternTarget(1, 8, 8)
	out := smoothnessLoss(disp, image)
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0])
}

func TestSmoothnessStepDisparity(t *testing.T) {
	image := tensor.New(1, 2, 2, 3)
	image.Fill(0.5)
	out := smoothnessLoss(stepDisparity(t), image)
	// Flat image, unit horizontal disparity step, no vertical gradient:
	// 0.5 * mean|dx| = 0.5.
	assert.InDelta(t, 0.5, out[0], 1e-12)
}

func TestSmoothnessImageEdgeAttenuates(t *testing.T) {
	// The disparity step coincides with an image edge; the penalty drops by
	// exp(-1) against the flat image.
	image, err := tensor.FromSlice([]float64{
		0, 0, 0, 1, 1, 1,
		0, 0, 0, 1, 1, 1,
	}, 1, 2, 2, 3)
	require.NoError(t, err)
	out := smoothnessLoss(stepDisparity(t), image)
	assert.InDelta(t, 0.5*math.Exp(-1), out[0], 1e-12)
}

func TestSmoothnessDegenerateLevelIsZero(t *testing.T) {
	disp := tensor.New(1, 1, 1, 1)
	disp.Fill(0.7)
	image := tensor.New(1, 1, 1, 3)
	out := smoothnessLoss(disp, image)
	assert.Equal(t, 0.0, out[0])
}

func TestSmoothnessComputeWeighsScalesDown(t *testing.T) {
	flat := func(h, w int) *tensor.Dense {
		img := tensor.New(1, h, w, 3)
		img.Fill(0.5)
		return img
	}
	stepDisp := func(h, w int) *tensor.Dense {
		d := tensor.New(1, h, w, 1)
		data := d.Data()
		for y := 0; y < h; y++ {
			for x := w / 2; x < w; x++ {
				data[y*w+x] = 1
			}
		}
		return d
	}

	target := flat(4, 4)
	augm := &Augmented{Left: ViewData{
		Target:   target,
		TargetMS: []*tensor.Dense{flat(4, 4), flat(2, 2)},
	}}
	preds := &Predictions{DispMS: []*tensor.Dense{stepDisp(4, 4), stepDisp(2, 2)}}

	ev := &Smoothness{name: nameSmooth}
	out, err := ev.Compute(nil, preds, augm)
	require.NoError(t, err)

	full := smoothnessLoss(preds.DispMS[0], target)[0]
	half := smoothnessLoss(preds.DispMS[1], flat(2, 2))[0]
	assert.InDelta(t, full+half/2, out.At(0), 1e-12)
}

func TestSmoothnessScaleMismatch(t *testing.T) {
	augm := &Augmented{Left: ViewData{
		Target:   patternTarget(1, 4, 4),
		TargetMS: []*tensor.Dense{patternTarget(1, 4, 4)},
	}}
	preds := &Predictions{DispMS: []*tensor.Dense{tensor.New(1, 4, 4, 1), tensor.New(1, 2, 2, 1)}}
	ev := &Smoothness{name: nameSmooth}
	_, err := ev.Compute(nil, preds, augm)
	assert.Error(t, err)

	ev = &Smoothness{name: nameSmoothR, right: true}
	_, err = ev.Compute(nil, preds, augm)
	assert.Error(t, err)
}
