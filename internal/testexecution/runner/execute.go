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

package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/logging"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
)

const subsystem = "runner"

// Reasons used for results the runner synthesizes.
const (
	ReasonForciblyTerminated = "test execution was forcibly terminated"
	ReasonNoResult           = "test execution produced no result"
	ReasonInterrupted        = "test execution was interrupted"
)

var (
	// ErrInterrupted is returned by Run when the run context is cancelled.
	ErrInterrupted = errors.New("test run interrupted")
	// ErrAlreadyRunning is returned by Run when a run is in progress.
	ErrAlreadyRunning = errors.New("test run already in progress")
)

// failureClass classifies unexpected failures for logging.
type failureClass int

const (
	failureExpected failureClass = iota
	failureSevere
	failureOther
)

func (c failureClass) String() string {
	switch c {
	case failureExpected:
		return "expected"
	case failureSevere:
		return "severe"
	default:
		return "unclassified"
	}
}

// Option configures a Runner or PoolRunner.
type Option func(*harness)

// WithObserver sets the observer notified about the run.
func WithObserver(obs Observer) Option {
	return func(h *harness) {
		if obs != nil {
			h.observer = obs
		}
	}
}

// WithResultStore sets the store every result is recorded in.
func WithResultStore(store ResultStore) Option {
	return func(h *harness) {
		h.store = store
	}
}

// harness holds what both runner variants need to execute a single test.
type harness struct {
	*testexecutionUtils.Options

	executor     Executor
	observer     Observer
	store        ResultStore
	selfNotifies bool
	// Mockable function fields
	executeTestFunc func(ctx context.Context, td *api.TestDescription) *engine.TestResult
}

func newHarness(options *testexecutionUtils.Options, executor Executor, opts ...Option) harness {
	if options == nil {
		options = &testexecutionUtils.Options{}
	}

	h := harness{
		Options:  options,
		executor: executor,
		observer: NopObserver{},
	}

	if sn, ok := executor.(SelfNotifier); ok {
		h.selfNotifies = sn.NotifiesObserver()
	}

	for _, opt := range opts {
		opt(&h)
	}

	return h
}

// task is one dispatched test. The onces make sure the test is announced and
// finished exactly once even when the runner gives up on it.
type task struct {
	td         *api.TestDescription
	startOnce  sync.Once
	finishOnce sync.Once
}

func (h *harness) start(t *task) {
	t.startOnce.Do(func() {
		if !h.selfNotifies {
			h.observer.StartingTest(t.td)
		}
	})
}

// finish records result for t unless t was already finished and reports
// whether this call recorded it.
func (h *harness) finish(t *task, result *engine.TestResult) bool {
	recorded := false

	t.finishOnce.Do(func() {
		recorded = true
		h.start(t)

		if h.store != nil {
			if err := h.store.Record(result); err != nil {
				err = fmt.Errorf("failed to record result of %s: %w", t.td.URL, err)
				logging.Error(subsystem, err, "result store")
				h.observer.Error(err)
			}
		}

		if !h.selfNotifies {
			h.observer.FinishedTest(result)
		}
	})

	return recorded
}

// executeTest runs one test through the executor and always returns a
// result. Panics and errors become ERROR results.
func (h *harness) executeTest(ctx context.Context, td *api.TestDescription) (result *engine.TestResult) {
	if h.executeTestFunc != nil {
		return h.executeTestFunc(ctx, td)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}

		class := failureOther
		if _, ok := p.(runtime.Error); ok {
			class = failureSevere
		}

		logging.Error(subsystem, fmt.Errorf("%v", p), "%s failure running %s", class, td.URL)

		result = engine.NewTestResult(td, h.Verbose)
		result.Trace = fmt.Sprintf("panic: %v\n\n%s", p, debug.Stack())
		result.Complete(engine.StatusError(fmt.Sprintf("test execution panicked: %v", p)))
	}()

	res, err := h.executor.Execute(ctx, td)
	if err != nil {
		reason := "test execution failed: " + err.Error()
		if ctx.Err() != nil {
			reason = ReasonInterrupted
		}

		logging.Warn(subsystem, "%s failure running %s: %v", failureExpected, td.URL, err)

		return engine.NewTestResult(td, h.Verbose).Error(reason, err)
	}

	if res == nil {
		logging.Error(subsystem, nil, "executor returned no result for %s", td.URL)

		return engine.NewTestResult(td, h.Verbose).Error(ReasonNoResult, nil)
	}

	return res
}

// forcedResult is recorded for a test the runner stopped waiting for.
func (h *harness) forcedResult(td *api.TestDescription) *engine.TestResult {
	return engine.NewTestResult(td, h.Verbose).Error(ReasonForciblyTerminated, nil)
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}
