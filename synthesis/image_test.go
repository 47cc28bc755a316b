package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

func TestResizeBilinearHalvesToBlockAverage(t *testing.T) {
	img, err := tensor.FromSlice([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, 1, 4, 4, 1)
	require.NoError(t, err)

	out, err := ResizeBilinear(img, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 2, 1}, out.Shape())

	// Half-pixel centers land exactly between each 2x2 block, so a factor-2
	// downscale averages the block.
	assert.InDelta(t, 3.5, out.At(0, 0, 0, 0), 1e-12)
	assert.InDelta(t, 5.5, out.At(0, 0, 1, 0), 1e-12)
	assert.InDelta(t, 11.5, out.At(0, 1, 0, 0), 1e-12)
	assert.InDelta(t, 13.5, out.At(0, 1, 1, 0), 1e-12)
}

func TestResizeBilinearSameSizeClones(t *testing.T) {
	img := tensor.New(1, 3, 3, 3)
	img.Fill(0.25)
	out, err := ResizeBilinear(img, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, img.Data(), out.Data())
	out.Set(0.9, 0, 0, 0, 0)
	assert.Equal(t, 0.25, img.At(0, 0, 0, 0))
}

func TestResizeBilinearPreservesConstant(t *testing.T) {
	img := tensor.New(2, 8, 8, 3)
	img.Fill(0.6)
	out, err := ResizeBilinear(img, 3, 5)
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
}

func TestResizeBilinearRejectsBadSize(t *testing.T) {
	_, err := ResizeBilinear(tensor.New(1, 4, 4, 3), 0, 4)
	assert.Error(t, err)
}

func TestSplitSourceTarget(t *testing.T) {
	const snippetLen, height, width = 3, 2, 2
	stacked := tensor.New(1, snippetLen*height, width, 3)
	data := stacked.Data()
	frame := height * width * 3
	for f := 0; f < snippetLen; f++ {
		for i := 0; i < frame; i++ {
			data[f*frame+i] = float64(f)
		}
	}

	sources, target, err := SplitSourceTarget(stacked, snippetLen)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2 * height, width, 3}, sources.Shape())
	require.Equal(t, []int{1, height, width, 3}, target.Shape())

	// Frames stack in temporal order with the target last.
	for i := 0; i < frame; i++ {
		assert.Equal(t, 0.0, sources.Data()[i])
		assert.Equal(t, 1.0, sources.Data()[frame+i])
		assert.Equal(t, 2.0, target.Data()[i])
	}
}

func TestSplitSourceTargetErrors(t *testing.T) {
	stacked := tensor.New(1, 6, 2, 3)
	_, _, err := SplitSourceTarget(stacked, 1)
	assert.Error(t, err)
	_, _, err = SplitSourceTarget(stacked, 4)
	assert.Error(t, err)
}

func TestMultiScaleLike(t *testing.T) {
	target := tensor.New(2, 8, 8, 3)
	target.Fill(0.3)
	pyramid := []*tensor.Dense{
		tensor.New(2, 8, 8, 1),
		tensor.New(2, 4, 4, 1),
		tensor.New(2, 2, 2, 1),
	}
	out, err := MultiScaleLike(target, pyramid)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, level := range out {
		assert.Equal(t, pyramid[i].Dim(1), level.Dim(1))
		assert.Equal(t, pyramid[i].Dim(2), level.Dim(2))
		for _, v := range level.Data() {
			assert.InDelta(t, 0.3, v, 1e-12)
		}
	}
}
