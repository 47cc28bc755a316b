package loss

import (
	"math"

	"github.com/pkg/errors"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// Smoothness penalizes disparity gradients, attenuated where the target
// image itself has strong gradients so depth discontinuities at object edges
// stay sharp. Scale contributions are weighted by 1/scale to balance coarse
// levels against the finest one.
type Smoothness struct {
	name  string
	right bool
}

// Name implements Evaluator.
func (l *Smoothness) Name() string { return l.name }

// Compute implements Evaluator.
func (l *Smoothness) Compute(_ *Features, preds *Predictions, augm *Augmented) (*tensor.Dense, error) {
	view, err := augm.view(l.right)
	if err != nil {
		return nil, err
	}
	dispMS := preds.DispMS
	if l.right {
		dispMS = preds.DispMSR
	}
	if len(dispMS) == 0 {
		return nil, errors.New("predictions carry no disparity pyramid")
	}
	if len(dispMS) != len(view.TargetMS) {
		return nil, errors.Errorf("got %d disparity scales and %d target scales",
			len(dispMS), len(view.TargetMS))
	}

	batch := view.Target.Dim(0)
	origWidth := view.TargetMS[0].Dim(2)
	out := tensor.New(batch)
	acc := out.Data()
	for i, disp := range dispMS {
		image := view.TargetMS[i]
		if err := tensor.CheckShape("disparity level", disp,
			batch, image.Dim(1), image.Dim(2), 1); err != nil {
			return nil, err
		}
		scale := float64(origWidth) / float64(image.Dim(2))
		perSample := smoothnessLoss(disp, image)
		for b := 0; b < batch; b++ {
			acc[b] += perSample[b] / scale
		}
	}
	return out, nil
}

// smoothnessLoss computes the edge-weighted first-order disparity gradient
// penalty for one scale, per sample.
func smoothnessLoss(disp, image *tensor.Dense) []float64 {
	batch, height, width := disp.Dim(0), disp.Dim(1), disp.Dim(2)
	dispData := disp.Data()
	imgData := image.Data()
	out := make([]float64, batch)
	if height < 2 || width < 2 {
		return out
	}

	for b := 0; b < batch; b++ {
		d := dispData[b*height*width : (b+1)*height*width]
		img := imgData[b*height*width*3 : (b+1)*height*width*3]

		sumX := 0.0
		for y := 0; y < height; y++ {
			for x := 0; x < width-1; x++ {
				i := y*width + x
				grad := d[i] - d[i+1]
				edge := (abs(img[i*3]-img[(i+1)*3]) +
					abs(img[i*3+1]-img[(i+1)*3+1]) +
					abs(img[i*3+2]-img[(i+1)*3+2])) / 3
				sumX += abs(grad * math.Exp(-edge))
			}
		}
		sumY := 0.0
		for y := 0; y < height-1; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				j := i + width
				grad := d[i] - d[j]
				edge := (abs(img[i*3]-img[j*3]) +
					abs(img[i*3+1]-img[j*3+1]) +
					abs(img[i*3+2]-img[j*3+2])) / 3
				sumY += abs(grad * math.Exp(-edge))
			}
		}
		meanX := sumX / float64(height*(width-1))
		meanY := sumY / float64((height-1)*width)
		out[b] = 0.5*meanX + 0.5*meanY
	}
	return out
}
