// Package synthesis reconstructs a target camera view from neighboring source
// frames through projective geometry: every target pixel is back-projected
// with its predicted depth, moved into the source camera frame by a rigid
// transform, re-projected through the camera intrinsics, and bilinearly
// sampled from the source image. The pipeline runs independently at every
// depth-prediction scale.
//
// All operations are pure functions over tensors; pixels whose warp lands on
// a clamped image border or whose target depth is zero come out exactly
// black, never garbage.
package synthesis
