package synthesis

import (
	"math"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// neighborWeights locates the four integer neighbors of the fractional source
// coordinate (u, v) with floors and ceils clamped into the image, and returns
// their bilinear weights. A location is valid only when ceil == floor+1 on
// both axes after clamping; a coordinate clamped at an image border collapses
// floor and ceil onto the same pixel and must read as invalid, so this exact
// comparison is load-bearing and not replaceable by a plain bounds check.
func neighborWeights(u, v float64, height, width int) (uf, uc, vf, vc int, wff, wfc, wcf, wcc float64, valid bool) {
	ufF := math.Floor(u)
	ucF := clampF(ufF+1, 0, float64(width-1))
	ufF = clampF(ufF, 0, float64(width-1))
	vfF := math.Floor(v)
	vcF := clampF(vfF+1, 0, float64(height-1))
	vfF = clampF(vfF, 0, float64(height-1))

	valid = ufF+1 == ucF && vfF+1 == vcF
	if !valid {
		return int(ufF), int(ucF), int(vfF), int(vcF), 0, 0, 0, 0, false
	}

	wUf := ucF - u
	wUc := u - ufF
	wVf := vcF - v
	wVc := v - vfF
	return int(ufF), int(ucF), int(vfF), int(vcF), wUf * wVf, wUf * wVc, wUc * wVf, wUc * wVc, true
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Reconstruct samples each source image at the warped coordinates, producing
// one synthesized target view per source frame.
//
// coords is the warp engine output [batch, numSrc, 3, height*width], images
// the source frames [batch, numSrc, height, width, 3] and depth the target
// depth [batch, height, width, 1]. Output pixels whose warp was clamped at a
// border or whose target depth is exactly zero are exactly (0, 0, 0).
func Reconstruct(coords, images, depth *tensor.Dense) (*tensor.Dense, error) {
	if err := tensor.CheckShape("images", images,
		tensor.Any, tensor.Any, tensor.Any, tensor.Any, 3); err != nil {
		return nil, err
	}
	batch, numSrc, height, width := images.Dim(0), images.Dim(1), images.Dim(2), images.Dim(3)
	n := height * width
	if err := tensor.CheckShape("coords", coords, batch, numSrc, 3, n); err != nil {
		return nil, err
	}
	if err := tensor.CheckShape("depth", depth, batch, height, width, 1); err != nil {
		return nil, err
	}

	out := tensor.New(batch, numSrc, height, width, 3)
	outData := out.Data()
	imgData := images.Data()
	coordData := coords.Data()
	depthData := depth.Data()

	for b := 0; b < batch; b++ {
		dep := depthData[b*n : (b+1)*n]
		for s := 0; s < numSrc; s++ {
			coordBase := ((b*numSrc + s) * 3) * n
			us := coordData[coordBase : coordBase+n]
			vs := coordData[coordBase+n : coordBase+2*n]
			img := imgData[(b*numSrc+s)*n*3 : (b*numSrc+s+1)*n*3]
			dst := outData[(b*numSrc+s)*n*3 : (b*numSrc+s+1)*n*3]
			for p := 0; p < n; p++ {
				if dep[p] == 0 {
					// Invalid target depth synthesizes no pixel.
					continue
				}
				uf, uc, vf, vc, wff, wfc, wcf, wcc, valid := neighborWeights(us[p], vs[p], height, width)
				if !valid {
					continue
				}
				iff := (vf*width + uf) * 3
				ifc := (vc*width + uf) * 3
				icf := (vf*width + uc) * 3
				icc := (vc*width + uc) * 3
				for ch := 0; ch < 3; ch++ {
					dst[p*3+ch] = wff*img[iff+ch] + wfc*img[ifc+ch] + wcf*img[icf+ch] + wcc*img[icc+ch]
				}
			}
		}
	}
	return out, nil
}
