// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wearable

// VectorXYZ is a three-component spatial quantity: a position, a
// linear or angular velocity, an acceleration, a magnetic field, a
// force or a torque. Units and frame are fixed by the producer.
type VectorXYZ struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Quaternion is an orientation with scalar part W.
type Quaternion struct {
	W float64 `json:"w" yaml:"w"`
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = Quaternion{W: 1}
