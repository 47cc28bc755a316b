package loss

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// SSIM constants and window.
const (
	ssimC1   = 0.01 * 0.01
	ssimC2   = 0.03 * 0.03
	ssimSize = 3
)

// photometricFn compares synthesized views [batch, numSrc, h, w, 3] with the
// original target [batch, h, w, 3], returning one loss per sample and source.
type photometricFn func(synth, orig *tensor.Dense) (*tensor.Dense, error)

// Photometric penalizes the difference between the synthesized and original
// target view, summed over scales and source frames.
type Photometric struct {
	name  string
	photo photometricFn
	right bool
}

func newPhotometric(name string, method Method, right bool) *Photometric {
	l := &Photometric{name: name, right: right}
	switch method {
	case MethodSSIM:
		l.photo = photometricSSIM
	default:
		l.photo = photometricL1
	}
	return l
}

// Name implements Evaluator.
func (l *Photometric) Name() string { return l.name }

// Compute implements Evaluator, summing the per-scale photometric losses
// over source frames and scales into one value per sample.
func (l *Photometric) Compute(_ *Features, _ *Predictions, augm *Augmented) (*tensor.Dense, error) {
	view, err := augm.view(l.right)
	if err != nil {
		return nil, err
	}
	if len(view.SynthTargetMS) != len(view.TargetMS) {
		return nil, errors.Errorf("got %d synthesized scales and %d target scales",
			len(view.SynthTargetMS), len(view.TargetMS))
	}

	batch := view.Target.Dim(0)
	out := tensor.New(batch)
	for i, synth := range view.SynthTargetMS {
		perSrc, err := l.photo(synth, view.TargetMS[i])
		if err != nil {
			return nil, errors.Wrapf(err, "scale %d", i)
		}
		sumSources(out.Data(), perSrc)
	}
	return out, nil
}

// sumSources folds a [batch, numSrc] loss into the per-sample accumulator.
func sumSources(acc []float64, perSrc *tensor.Dense) {
	numSrc := perSrc.Dim(1)
	data := perSrc.Data()
	for b := range acc {
		acc[b] += floats.Sum(data[b*numSrc : (b+1)*numSrc])
	}
}

func checkPhotometricShapes(synth, orig *tensor.Dense) error {
	if err := tensor.CheckShape("synthesized target", synth,
		tensor.Any, tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return err
	}
	return tensor.CheckShape("original target", orig,
		synth.Dim(0), synth.Dim(2), synth.Dim(3), 3)
}

// photometricL1 is the mean absolute difference between the synthesized and
// original target. Pixels the resampler blacked out (channel mean exactly 0)
// contribute zero error; the mean keeps the full image as denominator.
func photometricL1(synth, orig *tensor.Dense) (*tensor.Dense, error) {
	if err := checkPhotometricShapes(synth, orig); err != nil {
		return nil, err
	}
	batch, numSrc, height, width := synth.Dim(0), synth.Dim(1), synth.Dim(2), synth.Dim(3)
	n := height * width

	out := tensor.New(batch, numSrc)
	outData := out.Data()
	synthData := synth.Data()
	origData := orig.Data()
	for b := 0; b < batch; b++ {
		tgt := origData[b*n*3 : (b+1)*n*3]
		for s := 0; s < numSrc; s++ {
			syn := synthData[(b*numSrc+s)*n*3 : (b*numSrc+s+1)*n*3]
			sum := 0.0
			for p := 0; p < n; p++ {
				r, g, bl := syn[p*3], syn[p*3+1], syn[p*3+2]
				if (r+g+bl)/3 == 0 {
					continue
				}
				sum += abs(r-tgt[p*3]) + abs(g-tgt[p*3+1]) + abs(bl-tgt[p*3+2])
			}
			outData[b*numSrc+s] = sum / float64(n*3)
		}
	}
	return out, nil
}

// photometricSSIM is the structural-similarity loss clip((1-SSIM)/2, 0, 1)
// with 3x3 sliding-window statistics, masked like photometricL1.
func photometricSSIM(synth, orig *tensor.Dense) (*tensor.Dense, error) {
	if err := checkPhotometricShapes(synth, orig); err != nil {
		return nil, err
	}
	batch, numSrc, height, width := synth.Dim(0), synth.Dim(1), synth.Dim(2), synth.Dim(3)
	n := height * width

	out := tensor.New(batch, numSrc)
	outData := out.Data()
	synthData := synth.Data()
	origData := orig.Data()

	// Window statistic buffers, reused per frame.
	prod := make([]float64, n*3)
	muX := make([]float64, n*3)
	muY := make([]float64, n*3)
	muXX := make([]float64, n*3)
	muYY := make([]float64, n*3)
	muXY := make([]float64, n*3)

	for b := 0; b < batch; b++ {
		x := origData[b*n*3 : (b+1)*n*3]
		slidingMean(x, height, width, muX)
		square(x, prod)
		slidingMean(prod, height, width, muXX)
		for s := 0; s < numSrc; s++ {
			y := synthData[(b*numSrc+s)*n*3 : (b*numSrc+s+1)*n*3]
			slidingMean(y, height, width, muY)
			square(y, prod)
			slidingMean(prod, height, width, muYY)
			mulElem(x, y, prod)
			slidingMean(prod, height, width, muXY)

			sum := 0.0
			for p := 0; p < n; p++ {
				if (y[p*3]+y[p*3+1]+y[p*3+2])/3 == 0 {
					continue
				}
				for ch := 0; ch < 3; ch++ {
					i := p*3 + ch
					sigmaX := muXX[i] - muX[i]*muX[i]
					sigmaY := muYY[i] - muY[i]*muY[i]
					sigmaXY := muXY[i] - muX[i]*muY[i]
					num := (2*muX[i]*muY[i] + ssimC1) * (2*sigmaXY + ssimC2)
					den := (muX[i]*muX[i] + muY[i]*muY[i] + ssimC1) * (sigmaX + sigmaY + ssimC2)
					v := (1 - num/den) / 2
					if v < 0 {
						v = 0
					} else if v > 1 {
						v = 1
					}
					sum += v
				}
			}
			outData[b*numSrc+s] = sum / float64(n*3)
		}
	}
	return out, nil
}

// slidingMean computes, per channel, the mean of the ssimSize x ssimSize
// window centered on each pixel, averaging only over in-bounds neighbors.
func slidingMean(src []float64, height, width int, dst []float64) {
	const r = ssimSize / 2
	for y := 0; y < height; y++ {
		y0, y1 := y-r, y+r
		if y0 < 0 {
			y0 = 0
		}
		if y1 > height-1 {
			y1 = height - 1
		}
		for x := 0; x < width; x++ {
			x0, x1 := x-r, x+r
			if x0 < 0 {
				x0 = 0
			}
			if x1 > width-1 {
				x1 = width - 1
			}
			count := float64((y1 - y0 + 1) * (x1 - x0 + 1))
			for ch := 0; ch < 3; ch++ {
				sum := 0.0
				for yy := y0; yy <= y1; yy++ {
					row := (yy*width + x0) * 3
					for xx := x0; xx <= x1; xx++ {
						sum += src[row+(xx-x0)*3+ch]
					}
				}
				dst[(y*width+x)*3+ch] = sum / count
			}
		}
	}
}

func square(src, dst []float64) {
	for i, v := range src {
		dst[i] = v * v
	}
}

func mulElem(a, b, dst []float64) {
	for i := range a {
		dst[i] = a[i] * b[i]
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
