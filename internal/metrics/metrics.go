/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exports test run metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "xconform"

const subsystem = "metrics"

// Observer records run notifications as Prometheus metrics. It implements
// runner.Observer.
type Observer struct {
	testsStarted  prometheus.Counter
	testsFinished *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	activeTests   prometheus.Gauge
	errorsTotal   prometheus.Counter

	mu       sync.Mutex
	runStart time.Time
	now      func() time.Time
}

// NewObserver creates the collectors and registers them on reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		testsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tests_started_total",
			Help:      "Number of tests started",
		}),
		testsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tests_finished_total",
			Help:      "Number of tests finished, by status",
		}, []string{"status"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Number of finished test runs, by result",
		}, []string{"result"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of test runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		activeTests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_tests",
			Help:      "Number of tests currently running",
		}),
		errorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Number of harness errors reported during runs",
		}),
		now: time.Now,
	}
}

// StartingTestRun implements runner.Observer.
func (o *Observer) StartingTestRun() {
	o.mu.Lock()
	o.runStart = o.now()
	o.mu.Unlock()
}

// StartingTest implements runner.Observer.
func (o *Observer) StartingTest(*api.TestDescription) {
	o.testsStarted.Inc()
	o.activeTests.Inc()
}

// FinishedTest implements runner.Observer.
func (o *Observer) FinishedTest(result *engine.TestResult) {
	o.activeTests.Dec()
	o.testsFinished.WithLabelValues(statusLabel(result.Status.Type)).Inc()
}

// StoppingTestRun implements runner.Observer.
func (o *Observer) StoppingTestRun() {}

// FinishedTestRun implements runner.Observer.
func (o *Observer) FinishedTestRun(allPassed bool) {
	result := "failed"
	if allPassed {
		result = "passed"
	}

	o.runs.WithLabelValues(result).Inc()

	o.mu.Lock()
	start := o.runStart
	o.mu.Unlock()

	if !start.IsZero() {
		o.runDuration.Observe(o.now().Sub(start).Seconds())
	}
}

// Error implements runner.Observer.
func (o *Observer) Error(error) {
	o.errorsTotal.Inc()
}

func statusLabel(t engine.StatusType) string {
	if !t.Valid() {
		return "unknown"
	}

	return strings.ToLower(t.String())
}

// Serve exposes the metrics gathered by g on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info(subsystem, "serving metrics on %s", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
