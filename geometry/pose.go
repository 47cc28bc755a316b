package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/WELLBEINGLWB/vode-2020/tensor"
)

// PoseDim is the length of a compact pose vector.
const PoseDim = 6

// smallAngle bounds the rotation angles evaluated with Taylor expansions
// instead of the closed-form Rodrigues terms.
const smallAngle = 1e-6

// VecToMatrix converts a compact pose (tx, ty, tz, rx, ry, rz) into a 4x4
// rigid transform. The rotation block is orthonormal for every input,
// including zero and near-zero angles.
func VecToMatrix(pose []float64) (*mat.Dense, error) {
	if len(pose) != PoseDim {
		return nil, errors.Errorf("pose vector has %d components, want %d", len(pose), PoseDim)
	}
	rot := rotationFromAxisAngle(r3.Vector{X: pose[3], Y: pose[4], Z: pose[5]})
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rot.At(i, j))
		}
		m.Set(i, 3, pose[i])
	}
	m.Set(3, 3, 1)
	return m, nil
}

// MatrixToVec is the inverse of VecToMatrix. It recovers the compact pose
// from a 4x4 rigid transform, round-tripping VecToMatrix within floating
// point tolerance for rotation angles in [-pi, pi].
func MatrixToVec(m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return nil, errors.Errorf("pose matrix is %dx%d, want 4x4", r, c)
	}
	rvec := axisAngleFromRotation(m)
	return []float64{m.At(0, 3), m.At(1, 3), m.At(2, 3), rvec.X, rvec.Y, rvec.Z}, nil
}

// VecToMatrices converts batched pose vectors [batch, numSrc, 6] into per
// sample, per source 4x4 transforms.
func VecToMatrices(pose *tensor.Dense) ([][]*mat.Dense, error) {
	if err := tensor.CheckShape("pose", pose, tensor.Any, tensor.Any, PoseDim); err != nil {
		return nil, err
	}
	batch, numSrc := pose.Dim(0), pose.Dim(1)
	data := pose.Data()
	out := make([][]*mat.Dense, batch)
	for b := 0; b < batch; b++ {
		out[b] = make([]*mat.Dense, numSrc)
		for s := 0; s < numSrc; s++ {
			m, err := VecToMatrix(data[(b*numSrc+s)*PoseDim : (b*numSrc+s+1)*PoseDim])
			if err != nil {
				return nil, err
			}
			out[b][s] = m
		}
	}
	return out, nil
}

// MatricesToVec converts per sample, per source 4x4 transforms back into a
// [batch, numSrc, 6] pose tensor.
func MatricesToVec(poses [][]*mat.Dense) (*tensor.Dense, error) {
	if len(poses) == 0 || len(poses[0]) == 0 {
		return nil, errors.New("empty pose batch")
	}
	batch, numSrc := len(poses), len(poses[0])
	out := tensor.New(batch, numSrc, PoseDim)
	data := out.Data()
	for b := 0; b < batch; b++ {
		if len(poses[b]) != numSrc {
			return nil, errors.Errorf("ragged pose batch: sample %d has %d sources, want %d",
				b, len(poses[b]), numSrc)
		}
		for s := 0; s < numSrc; s++ {
			vec, err := MatrixToVec(poses[b][s])
			if err != nil {
				return nil, errors.Wrapf(err, "sample %d source %d", b, s)
			}
			copy(data[(b*numSrc+s)*PoseDim:], vec)
		}
	}
	return out, nil
}

// InvertPose inverts a rigid transform without a general matrix inversion:
// inv([R t; 0 1]) = [R' -R't; 0 1].
func InvertPose(m mat.Matrix) *mat.Dense {
	inv := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv.Set(i, j, m.At(j, i))
		}
	}
	for i := 0; i < 3; i++ {
		v := 0.0
		for j := 0; j < 3; j++ {
			v -= m.At(j, i) * m.At(j, 3)
		}
		inv.Set(i, 3, v)
	}
	inv.Set(3, 3, 1)
	return inv
}

// rotationFromAxisAngle builds the rotation matrix for an axis-angle vector
// through the exponential map R = I + a*S + b*S^2 with S = skew(rvec),
// a = sin(t)/t and b = (1-cos(t))/t^2. Both coefficients are evaluated by
// Taylor expansion below smallAngle so a zero rotation yields the identity
// without dividing by zero.
func rotationFromAxisAngle(rvec r3.Vector) *mat.Dense {
	theta := rvec.Norm()
	theta2 := theta * theta
	var a, b float64
	if theta < smallAngle {
		a = 1 - theta2/6
		b = 0.5 - theta2/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / theta2
	}
	x, y, z := rvec.X, rvec.Y, rvec.Z
	return mat.NewDense(3, 3, []float64{
		1 - b*(y*y+z*z), -a*z + b*x*y, a*y + b*x*z,
		a*z + b*x*y, 1 - b*(x*x+z*z), -a*x + b*y*z,
		-a*y + b*x*z, a*x + b*y*z, 1 - b*(x*x+y*y),
	})
}

// axisAngleFromRotation recovers the axis-angle vector from the rotation
// block of a rigid transform. The angle comes from the trace; the axis from
// the skew-symmetric part, with dedicated branches for angles near 0 and
// near pi where that part vanishes.
func axisAngleFromRotation(m mat.Matrix) r3.Vector {
	trace := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	cos := (trace - 1) / 2
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	theta := math.Acos(cos)
	vee := r3.Vector{
		X: m.At(2, 1) - m.At(1, 2),
		Y: m.At(0, 2) - m.At(2, 0),
		Z: m.At(1, 0) - m.At(0, 1),
	}
	switch {
	case theta < smallAngle:
		return vee.Mul(0.5)
	case math.Pi-theta < 1e-4:
		// Near pi the skew part degenerates; recover the axis from
		// B = (R + I)/2 = k k' and scale it to the angle.
		bxx := (m.At(0, 0) + 1) / 2
		byy := (m.At(1, 1) + 1) / 2
		bzz := (m.At(2, 2) + 1) / 2
		var axis r3.Vector
		if bxx >= byy && bxx >= bzz {
			kx := math.Sqrt(bxx)
			axis = r3.Vector{X: kx, Y: (m.At(0, 1) + m.At(1, 0)) / (4 * kx), Z: (m.At(0, 2) + m.At(2, 0)) / (4 * kx)}
		} else if byy >= bzz {
			ky := math.Sqrt(byy)
			axis = r3.Vector{X: (m.At(0, 1) + m.At(1, 0)) / (4 * ky), Y: ky, Z: (m.At(1, 2) + m.At(2, 1)) / (4 * ky)}
		} else {
			kz := math.Sqrt(bzz)
			axis = r3.Vector{X: (m.At(0, 2) + m.At(2, 0)) / (4 * kz), Y: (m.At(1, 2) + m.At(2, 1)) / (4 * kz), Z: kz}
		}
		axis = axis.Normalize()
		// Keep the sign consistent with the (possibly tiny) skew part.
		if axis.Dot(vee) < 0 {
			axis = axis.Mul(-1)
		}
		return axis.Mul(theta)
	default:
		return vee.Mul(theta / (2 * math.Sin(theta)))
	}
}
