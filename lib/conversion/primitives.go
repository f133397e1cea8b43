// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
)

// Component labels for the fixed-layout primitives. Their lengths
// match the slices returned by Components and QuaternionComponents.
var (
	axisLabels       = []string{"x", "y", "z"}
	quaternionLabels = []string{"w", "x", "y", "z"}
	eulerLabels      = []string{"roll", "pitch", "yaw"}
	poseLabels       = append(append([]string(nil), axisLabels...), eulerLabels...)
)

// Vector3FromXYZ converts a message primitive to a generic 3-vector,
// keeping x, y, z order.
func Vector3FromXYZ(vector wearable.VectorXYZ) r3.Vec {
	return r3.Vec{X: vector.X, Y: vector.Y, Z: vector.Z}
}

// Components returns v as a freshly allocated [x, y, z] slice.
func Components(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// QuaternionFromWXYZ converts a message quaternion to gonum's
// representation (W is the real part).
func QuaternionFromWXYZ(q wearable.Quaternion) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// QuaternionComponents returns q as a freshly allocated [w, x, y, z]
// slice.
func QuaternionComponents(q quat.Number) []float64 {
	return []float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}
