// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"slices"
	"strconv"

	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
)

// Field names used as key segments for RobotState.
const (
	fieldJointPositions      = "jointPositions"
	fieldJointVelocities     = "jointVelocities"
	fieldBasePosition        = "basePosition"
	fieldBaseOrientation     = "baseOrientation"
	fieldBaseLinearVelocity  = "baseLinearVelocity"
	fieldBaseAngularVelocity = "baseAngularVelocity"
	fieldCoMPosition         = "comPosition"
	fieldCoMVelocity         = "comVelocity"
)

// Group segments for record-based messages.
const (
	segmentTarget = "target"
	segmentSensor = "sensor"
)

// Payload kinds used as the last key segment of sensor channels.
const (
	payloadRaw             = "payload"
	payloadAcceleration    = "acceleration"
	payloadAngularVelocity = "angularVelocity"
	payloadMagneticField   = "magneticField"
	payloadOrientation     = "orientation"
	payloadPosition        = "position"
	payloadLinearVelocity  = "linearVelocity"
	payloadForce           = "force"
	payloadTorque          = "torque"
)

// channel describes one keyed vector. names and values must return
// slices of equal length; the constructors below are the only way
// channels are built and each derives both from the same source.
type channel struct {
	segments []string
	names    func() []string
	values   func() []float64
}

func vectorChannel(vector wearable.VectorXYZ, segments ...string) channel {
	return channel{
		segments: segments,
		names:    fixedLabels(axisLabels),
		values:   func() []float64 { return Components(Vector3FromXYZ(vector)) },
	}
}

func quaternionChannel(q wearable.Quaternion, segments ...string) channel {
	return channel{
		segments: segments,
		names:    fixedLabels(quaternionLabels),
		values:   func() []float64 { return QuaternionComponents(QuaternionFromWXYZ(q)) },
	}
}

// poseChannel concatenates a position and a roll/pitch/yaw triple.
func poseChannel(position, orientation wearable.VectorXYZ, segments ...string) channel {
	return channel{
		segments: segments,
		names:    fixedLabels(poseLabels),
		values: func() []float64 {
			return append(Components(Vector3FromXYZ(position)), Components(Vector3FromXYZ(orientation))...)
		},
	}
}

// namedChannel labels each element with the matching entry of names,
// falling back to the element index when names is short or the entry
// is empty.
func namedChannel(names []string, values []float64, segments ...string) channel {
	return channel{
		segments: segments,
		names:    func() []string { return namedLabels(names, len(values)) },
		values:   func() []float64 { return cloneValues(values) },
	}
}

// indexChannel labels each element with its index.
func indexChannel(values []float64, segments ...string) channel {
	return channel{
		segments: segments,
		names:    func() []string { return namedLabels(nil, len(values)) },
		values:   func() []float64 { return cloneValues(values) },
	}
}

// fixedLabels hands out a copy so callers may modify the metadata they
// receive without corrupting the shared label tables.
func fixedLabels(labels []string) func() []string {
	return func() []string { return slices.Clone(labels) }
}

func namedLabels(names []string, count int) []string {
	labels := make([]string, count)
	for i := range labels {
		if i < len(names) && names[i] != "" {
			labels[i] = names[i]
		} else {
			labels[i] = strconv.Itoa(i)
		}
	}
	return labels
}

func cloneValues(values []float64) []float64 {
	return append(make([]float64, 0, len(values)), values...)
}

// walk visits every channel of message in key order. It is the single
// source of traversal order for both metadata and collections.
func walk(message wearable.Message, visit func(channel)) {
	switch message := message.(type) {
	case *wearable.RobotState:
		walkRobotState(message, visit)
	case *wearable.TargetSet:
		walkTargetSet(message, visit)
	case *wearable.SensorReading:
		walkSensorReading(message, visit)
	}
}

func walkRobotState(state *wearable.RobotState, visit func(channel)) {
	if state == nil {
		return
	}
	if len(state.JointPositions) > 0 {
		visit(namedChannel(state.JointNames, state.JointPositions, fieldJointPositions))
	}
	if len(state.JointVelocities) > 0 {
		visit(namedChannel(state.JointNames, state.JointVelocities, fieldJointVelocities))
	}
	visit(vectorChannel(state.BasePosition, fieldBasePosition))
	visit(quaternionChannel(state.BaseOrientation, fieldBaseOrientation))
	visit(vectorChannel(state.BaseLinearVelocity, fieldBaseLinearVelocity))
	visit(vectorChannel(state.BaseAngularVelocity, fieldBaseAngularVelocity))
	visit(vectorChannel(state.CoMPosition, fieldCoMPosition))
	visit(vectorChannel(state.CoMVelocity, fieldCoMVelocity))
}

func walkTargetSet(targets *wearable.TargetSet, visit func(channel)) {
	if targets == nil {
		return
	}
	for _, target := range targets.Targets {
		if target.Orientation != nil {
			visit(poseChannel(target.Position, *target.Orientation, segmentTarget, target.Name))
		} else {
			visit(vectorChannel(target.Position, segmentTarget, target.Name))
		}
	}
}

func walkSensorReading(reading *wearable.SensorReading, visit func(channel)) {
	if reading == nil {
		return
	}
	for _, sensor := range reading.Sensors {
		if len(sensor.Payload) > 0 {
			visit(indexChannel(sensor.Payload, segmentSensor, sensor.Name, payloadRaw))
		}
		for _, primitive := range []struct {
			kind   string
			vector *wearable.VectorXYZ
		}{
			{payloadAcceleration, sensor.Acceleration},
			{payloadAngularVelocity, sensor.AngularVelocity},
			{payloadMagneticField, sensor.MagneticField},
		} {
			if primitive.vector != nil {
				visit(vectorChannel(*primitive.vector, segmentSensor, sensor.Name, primitive.kind))
			}
		}
		if sensor.Orientation != nil {
			visit(quaternionChannel(*sensor.Orientation, segmentSensor, sensor.Name, payloadOrientation))
		}
		for _, primitive := range []struct {
			kind   string
			vector *wearable.VectorXYZ
		}{
			{payloadPosition, sensor.Position},
			{payloadLinearVelocity, sensor.LinearVelocity},
			{payloadForce, sensor.Force},
			{payloadTorque, sensor.Torque},
		} {
			if primitive.vector != nil {
				visit(vectorChannel(*primitive.vector, segmentSensor, sensor.Name, primitive.kind))
			}
		}
	}
}
