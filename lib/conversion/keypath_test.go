// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
)

func TestKeyPath(t *testing.T) {
	tests := []struct {
		name      string
		delimiter string
		prefix    string
		segments  []string
		want      string
	}{
		{"field", "::", "robot", []string{"jointPositions"}, "robot::jointPositions"},
		{"record", "::", "hands", []string{"target", "leftHand"}, "hands::target::leftHand"},
		{"empty prefix", "::", "", []string{"sensor", "imu0", "acceleration"}, "::sensor::imu0::acceleration"},
		{"empty prefix field", "::", "", []string{"jointPositions"}, "::jointPositions"},
		{"prefix only", "::", "robot", nil, "robot"},
		{"custom delimiter", ".", "robot", []string{"comPosition"}, "robot.comPosition"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KeyPath(test.delimiter, test.prefix, test.segments...); got != test.want {
				t.Errorf("KeyPath = %q, want %q", got, test.want)
			}
		})
	}
}

func TestSplitKeyInvertsKeyPath(t *testing.T) {
	key := KeyPath("::", "wear", "sensor", "imu0", "acceleration")
	if got, want := SplitKey("::", key), []string{"wear", "sensor", "imu0", "acceleration"}; !slices.Equal(got, want) {
		t.Errorf("SplitKey = %v, want %v", got, want)
	}
	if got, want := SplitKey("::", KeyPath("::", "", "jointPositions")), []string{"", "jointPositions"}; !slices.Equal(got, want) {
		t.Errorf("SplitKey of empty-prefix key = %q, want %q", got, want)
	}
	if SplitKey("::", "") != nil {
		t.Error("SplitKey of empty key should be nil")
	}
}

func TestWithDelimiterIgnoresEmpty(t *testing.T) {
	if got := resolveOptions([]Option{WithDelimiter("")}).Delimiter; got != DefaultDelimiter {
		t.Errorf("Delimiter = %q, want %q", got, DefaultDelimiter)
	}
	if got := resolveOptions([]Option{WithDelimiter("/"), WithDelimiter(".")}).Delimiter; got != "." {
		t.Errorf("last option should win, got %q", got)
	}
}

func TestVector3FromXYZ(t *testing.T) {
	vector := Vector3FromXYZ(wearable.VectorXYZ{X: 1, Y: 2, Z: 3})
	if got := Components(vector); !slices.Equal(got, []float64{1, 2, 3}) {
		t.Errorf("Components = %v, want [1 2 3]", got)
	}
}

func TestQuaternionFromWXYZ(t *testing.T) {
	q := QuaternionFromWXYZ(wearable.Quaternion{W: 0.5, X: 0.1, Y: 0.2, Z: 0.3})
	if q.Real != 0.5 || q.Imag != 0.1 || q.Jmag != 0.2 || q.Kmag != 0.3 {
		t.Errorf("quaternion = %+v", q)
	}
	if got := QuaternionComponents(q); !slices.Equal(got, []float64{0.5, 0.1, 0.2, 0.3}) {
		t.Errorf("QuaternionComponents = %v", got)
	}
}

func TestLabelTablesMatchComponentCounts(t *testing.T) {
	if len(axisLabels) != len(Components(Vector3FromXYZ(wearable.VectorXYZ{}))) {
		t.Error("axis labels do not match vector components")
	}
	if len(quaternionLabels) != len(QuaternionComponents(QuaternionFromWXYZ(wearable.Quaternion{}))) {
		t.Error("quaternion labels do not match quaternion components")
	}
	if len(poseLabels) != 2*len(axisLabels) {
		t.Error("pose labels are not position plus orientation")
	}
}
