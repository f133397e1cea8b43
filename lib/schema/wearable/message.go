// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wearable

import (
	"errors"
	"fmt"
)

// Kind names one of the three message variants.
type Kind string

const (
	KindRobotState    Kind = "robot-state"
	KindTargetSet     Kind = "target-set"
	KindSensorReading Kind = "sensor-reading"
)

// ErrUnknownKind is returned when a kind name does not match any
// message variant.
var ErrUnknownKind = errors.New("unknown message kind")

// Kinds lists every message variant in a stable order.
func Kinds() []Kind {
	return []Kind{KindRobotState, KindTargetSet, KindSensorReading}
}

// ParseKind parses a kind name as used in configuration files and on
// the command line.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindRobotState, KindTargetSet, KindSensorReading:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownKind, name, Kinds())
	}
}

// New returns an empty message of the given kind, ready to be decoded
// into.
func (k Kind) New() (Message, error) {
	switch k {
	case KindRobotState:
		return &RobotState{}, nil
	case KindTargetSet:
		return &TargetSet{}, nil
	case KindSensorReading:
		return &SensorReading{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// Message is implemented by *RobotState, *TargetSet and
// *SensorReading. The set is closed.
type Message interface {
	Kind() Kind
	isMessage()
}

// RobotState is a whole-body kinematic state: joint-space positions
// and velocities plus the floating base and centre of mass.
type RobotState struct {
	// JointNames labels JointPositions and JointVelocities element by
	// element. It may be shorter than the value slices, or absent.
	JointNames      []string  `json:"joint_names,omitempty" yaml:"joint_names,omitempty"`
	JointPositions  []float64 `json:"joint_positions,omitempty" yaml:"joint_positions,omitempty"`
	JointVelocities []float64 `json:"joint_velocities,omitempty" yaml:"joint_velocities,omitempty"`

	// BaseName is the link the base pose refers to. Informational.
	BaseName            string     `json:"base_name,omitempty" yaml:"base_name,omitempty"`
	BasePosition        VectorXYZ  `json:"base_position" yaml:"base_position"`
	BaseOrientation     Quaternion `json:"base_orientation" yaml:"base_orientation"`
	BaseLinearVelocity  VectorXYZ  `json:"base_linear_velocity" yaml:"base_linear_velocity"`
	BaseAngularVelocity VectorXYZ  `json:"base_angular_velocity" yaml:"base_angular_velocity"`

	CoMPosition VectorXYZ `json:"com_position" yaml:"com_position"`
	CoMVelocity VectorXYZ `json:"com_velocity" yaml:"com_velocity"`
}

func (*RobotState) Kind() Kind { return KindRobotState }
func (*RobotState) isMessage() {}

// TargetSet is the ordered list of targets tracked for retargeting.
type TargetSet struct {
	Targets []Target `json:"targets,omitempty" yaml:"targets,omitempty"`
}

func (*TargetSet) Kind() Kind { return KindTargetSet }
func (*TargetSet) isMessage() {}

// Target is one tracked target.
type Target struct {
	Name string `json:"name" yaml:"name"`
	// Kind is the producer's target type (e.g. "pose", "position").
	// Informational; the carried primitives decide the layout.
	Kind     string    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Position VectorXYZ `json:"position" yaml:"position"`
	// Orientation is roll, pitch, yaw. Nil for position-only targets.
	Orientation *VectorXYZ `json:"orientation,omitempty" yaml:"orientation,omitempty"`
}

// SensorReading is one sample from a wearable producer: every sensor
// it exposes, in producer order.
type SensorReading struct {
	Producer string   `json:"producer,omitempty" yaml:"producer,omitempty"`
	Sensors  []Sensor `json:"sensors,omitempty" yaml:"sensors,omitempty"`
}

func (*SensorReading) Kind() Kind { return KindSensorReading }
func (*SensorReading) isMessage() {}

// SensorStatus mirrors the producer's per-sensor health flag.
type SensorStatus string

const (
	SensorOK          SensorStatus = "ok"
	SensorError       SensorStatus = "error"
	SensorOverflow    SensorStatus = "overflow"
	SensorTimeout     SensorStatus = "timeout"
	SensorUnknown     SensorStatus = "unknown"
	SensorCalibrating SensorStatus = "calibrating"
)

// Sensor is one named sensor record. Payload carries values with no
// fixed per-element meaning (temperatures, EMG channels, joint
// angles); the pointer fields carry the spatial and force primitives
// the sensor measures. A nil primitive means the sensor does not
// measure that quantity.
type Sensor struct {
	Name   string       `json:"name" yaml:"name"`
	Kind   string       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Status SensorStatus `json:"status,omitempty" yaml:"status,omitempty"`

	Payload []float64 `json:"payload,omitempty" yaml:"payload,omitempty"`

	Acceleration    *VectorXYZ  `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
	AngularVelocity *VectorXYZ  `json:"angular_velocity,omitempty" yaml:"angular_velocity,omitempty"`
	MagneticField   *VectorXYZ  `json:"magnetic_field,omitempty" yaml:"magnetic_field,omitempty"`
	Orientation     *Quaternion `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Position        *VectorXYZ  `json:"position,omitempty" yaml:"position,omitempty"`
	LinearVelocity  *VectorXYZ  `json:"linear_velocity,omitempty" yaml:"linear_velocity,omitempty"`
	Force           *VectorXYZ  `json:"force,omitempty" yaml:"force,omitempty"`
	Torque          *VectorXYZ  `json:"torque,omitempty" yaml:"torque,omitempty"`
}
