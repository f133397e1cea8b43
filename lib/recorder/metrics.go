// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the recorder's Prometheus collectors. They are always
// created so the hot path never checks for nil; registration is
// skipped when no Registerer is given.
type metrics struct {
	framesRecorded prometheus.Counter
	framesDropped  prometheus.Counter
	shapeChanges   *prometheus.CounterVec // by source
	recordsWritten *prometheus.CounterVec // by record type
	sinkErrors     prometheus.Counter
	bufferBytes    prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		framesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "frames_recorded_total",
			Help:      "Frames built from incoming messages",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "frames_dropped_total",
			Help:      "Frames evicted from the buffer before reaching the sink",
		}),
		shapeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "shape_changes_total",
			Help:      "Times a source's metadata was rebuilt",
		}, []string{"source"}),
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "records_written_total",
			Help:      "Records appended to the sink",
		}, []string{"type"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "sink_errors_total",
			Help:      "Failed appends and syncs",
		}),
		bufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vectorlog",
			Subsystem: "recorder",
			Name:      "buffer_bytes",
			Help:      "Bytes of encoded records waiting for the sink",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.framesRecorded,
		m.framesDropped,
		m.shapeChanges,
		m.recordsWritten,
		m.sinkErrors,
		m.bufferBytes,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("registering recorder metrics: %w", err)
		}
	}
	return m, nil
}
