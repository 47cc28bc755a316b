package synthesis

import (
	"math"

	"github.com/pkg/errors"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// ResizeBilinear rescales an image tensor [batch, height, width, channels] to
// outHeight x outWidth with half-pixel-centered bilinear sampling, edges
// clamped.
func ResizeBilinear(img *tensor.Dense, outHeight, outWidth int) (*tensor.Dense, error) {
	if err := tensor.CheckShape("image", img,
		tensor.Any, tensor.Any, tensor.Any, tensor.Any); err != nil {
		return nil, err
	}
	if outHeight <= 0 || outWidth <= 0 {
		return nil, errors.Errorf("invalid output size %dx%d", outWidth, outHeight)
	}
	batch, height, width, channels := img.Dim(0), img.Dim(1), img.Dim(2), img.Dim(3)
	if height == outHeight && width == outWidth {
		return img.Clone(), nil
	}

	out := tensor.New(batch, outHeight, outWidth, channels)
	src := img.Data()
	dst := out.Data()
	scaleY := float64(height) / float64(outHeight)
	scaleX := float64(width) / float64(outWidth)

	for b := 0; b < batch; b++ {
		srcBase := b * height * width * channels
		for y := 0; y < outHeight; y++ {
			sy := (float64(y)+0.5)*scaleY - 0.5
			y0 := int(clampF(math.Floor(sy), 0, float64(height-1)))
			y1 := y0 + 1
			if y1 > height-1 {
				y1 = height - 1
			}
			fy := clampF(sy-float64(y0), 0, 1)
			for x := 0; x < outWidth; x++ {
				sx := (float64(x)+0.5)*scaleX - 0.5
				x0 := int(clampF(math.Floor(sx), 0, float64(width-1)))
				x1 := x0 + 1
				if x1 > width-1 {
					x1 = width - 1
				}
				fx := clampF(sx-float64(x0), 0, 1)

				i00 := srcBase + (y0*width+x0)*channels
				i01 := srcBase + (y0*width+x1)*channels
				i10 := srcBase + (y1*width+x0)*channels
				i11 := srcBase + (y1*width+x1)*channels
				o := (b*outHeight*outWidth + y*outWidth + x) * channels
				for ch := 0; ch < channels; ch++ {
					top := src[i00+ch]*(1-fx) + src[i01+ch]*fx
					bottom := src[i10+ch]*(1-fx) + src[i11+ch]*fx
					dst[o+ch] = top*(1-fy) + bottom*fy
				}
			}
		}
	}
	return out, nil
}

// SplitSourceTarget splits a stacked snippet [batch, snippetLen*height,
// width, 3] into the source stack [batch, (snippetLen-1)*height, width, 3]
// and the target frame [batch, height, width, 3]. Frames are stacked along
// the height axis in temporal order with the target frame last; this
// convention must match the dataset loader and is pinned down by tests.
func SplitSourceTarget(stacked *tensor.Dense, snippetLen int) (*tensor.Dense, *tensor.Dense, error) {
	if err := tensor.CheckShape("stacked image", stacked,
		tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return nil, nil, err
	}
	if snippetLen < 2 {
		return nil, nil, errors.Errorf("snippet length %d leaves no source frames", snippetLen)
	}
	batch, stackedHeight, width := stacked.Dim(0), stacked.Dim(1), stacked.Dim(2)
	if stackedHeight%snippetLen != 0 {
		return nil, nil, errors.Errorf("stacked height %d is not divisible by snippet length %d",
			stackedHeight, snippetLen)
	}
	height := stackedHeight / snippetLen
	numSrc := snippetLen - 1

	sources := tensor.New(batch, numSrc*height, width, 3)
	target := tensor.New(batch, height, width, 3)
	frame := height * width * 3
	data := stacked.Data()
	for b := 0; b < batch; b++ {
		base := b * snippetLen * frame
		copy(sources.Data()[b*numSrc*frame:], data[base:base+numSrc*frame])
		copy(target.Data()[b*frame:], data[base+numSrc*frame:base+snippetLen*frame])
	}
	return sources, target, nil
}

// MultiScaleLike resizes the target frame [batch, height, width, 3] to the
// spatial resolution of every scale in the reference pyramid, preserving its
// order.
func MultiScaleLike(target *tensor.Dense, pyramid []*tensor.Dense) ([]*tensor.Dense, error) {
	if err := tensor.CheckShape("target", target,
		tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return nil, err
	}
	out := make([]*tensor.Dense, len(pyramid))
	for i, level := range pyramid {
		if err := tensor.CheckShape("pyramid level", level,
			target.Dim(0), tensor.Any, tensor.Any, tensor.Any); err != nil {
			return nil, err
		}
		resized, err := ResizeBilinear(target, level.Dim(1), level.Dim(2))
		if err != nil {
			return nil, err
		}
		out[i] = resized
	}
	return out, nil
}
