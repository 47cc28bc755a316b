package loss

import (
	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// dispEps keeps the disparity-to-depth division finite.
const dispEps = 1e-6

// DispToDepth converts a disparity pyramid into a depth pyramid, depth =
// 1/(disparity+eps) per pixel. Disparities are assumed non-negative.
func DispToDepth(dispMS []*tensor.Dense) []*tensor.Dense {
	depthMS := make([]*tensor.Dense, len(dispMS))
	for i, disp := range dispMS {
		depth := disp.Clone()
		data := depth.Data()
		for j, v := range data {
			data[j] = 1 / (v + dispEps)
		}
		depthMS[i] = depth
	}
	return depthMS
}
