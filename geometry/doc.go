// Package geometry implements the camera models shared by the synthesis and
// loss pipelines: pinhole intrinsics and their per-scale adjustment, the
// homogeneous target pixel grid, and the codec between 6-parameter pose
// vectors and 4x4 rigid transforms.
//
// A pose vector is laid out as (tx, ty, tz, rx, ry, rz) where the last three
// components are an axis-angle rotation (direction = axis, norm = angle in
// radians). A pose transforms 3D points from the target camera frame into a
// source camera frame.
package geometry
