package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlice(t *testing.T) {
	d, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, d.Shape())
	assert.Equal(t, 6.0, d.At(1, 2))
	assert.Equal(t, 2.0, d.At(0, 1))

	_, err = FromSlice([]float64{1, 2, 3}, 2, 2)
	assert.Error(t, err)
	_, err = FromSlice(nil, 0, 3)
	assert.Error(t, err)
}

func TestReshapeSharesData(t *testing.T) {
	d := New(2, 6)
	r, err := d.Reshape(3, 4)
	require.NoError(t, err)
	r.Set(7, 2, 3)
	assert.Equal(t, 7.0, d.At(1, 5))

	_, err = d.Reshape(5, 3)
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	d := New(2, 2)
	c := d.Clone()
	c.Set(1, 0, 0)
	assert.Equal(t, 0.0, d.At(0, 0))
}

func TestCheckShape(t *testing.T) {
	d := New(2, 4, 4, 3)

	assert.NoError(t, CheckShape("image", d, 2, 4, 4, 3))
	assert.NoError(t, CheckShape("image", d, Any, Any, Any, 3))

	err := CheckShape("image", d, Any, Any, Any, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
	assert.Contains(t, err.Error(), "image")

	err = CheckShape("image", d, 2, 4, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))

	err = CheckShape("image", nil, 2, 4, 4, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestSameShape(t *testing.T) {
	a := New(2, 3)
	b := New(2, 3)
	assert.NoError(t, SameShape("a", a, "b", b))

	c := New(3, 2)
	err := SameShape("a", a, "c", c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
}
