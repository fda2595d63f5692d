// Copyright 2021-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricOpts contains naming pieces of the exposed metric
type MetricOpts struct {
	Namespace string
	Subsystem string
	Name      string
}

// Registry holds every bring-up metric. It is written out once at the end
// of a run, there is nothing to scrape during boot.
var Registry = prometheus.NewRegistry()

// Counter creates, registers and returns a prometheus.CounterVec
func Counter(opts MetricOpts, help string, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: optsToString(opts),
		Help: help,
	}, labels)
	Registry.MustRegister(c)
	return c
}

// Gauge creates, registers and returns a prometheus.Gauge
func Gauge(opts MetricOpts, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: optsToString(opts),
		Help: help,
	})
	Registry.MustRegister(g)
	return g
}

// Histogram creates, registers and returns a prometheus.HistogramVec
func Histogram(opts MetricOpts, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    optsToString(opts),
		Help:    help,
		Buckets: buckets,
	}, labels)
	Registry.MustRegister(h)
	return h
}

var (
	StageDuration = Histogram(MetricOpts{"ddr", "init", "stage_duration_seconds"},
		"Time spent in each DDR bring-up stage.",
		prometheus.ExponentialBuckets(0.001, 4, 10), []string{"stage"})
	CalibrationAttempts = Counter(MetricOpts{"ddr", "cal", "attempts_total"},
		"Memory calibration status checks by sequencer instance and result.",
		[]string{"instance", "result"})
	ECCErrors = Counter(MetricOpts{"ddr", "ecc", "errors_total"},
		"ECC errors reported by the sequencers, by error type.",
		[]string{"type"})
	DRAMBytes = Gauge(MetricOpts{"ddr", "", "size_bytes"},
		"DRAM size brought up.")
)

// Stage times one bring-up stage. Call the returned function when it ends.
func Stage(name string) func() {
	start := time.Now()
	return func() {
		StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

func optsToString(opts MetricOpts) string {
	var parts []string
	for _, p := range []string{opts.Namespace, opts.Subsystem, opts.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}
