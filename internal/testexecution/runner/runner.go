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

// Package runner executes tests on a bounded pool of workers.
package runner

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/logging"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/gertd/go-pluralize"
)

// Runner runs tests on Concurrency workers that share one cursor over the
// test sequence. A supervisor replaces workers that die while the run is not
// stopping.
//
// Stop ends dispatch and lets running tests finish. Cancelling the context
// passed to Run interrupts the run: workers are cancelled, given GracePeriod
// to return, and any test still running after that gets a forcibly
// terminated ERROR result.
type Runner struct {
	harness

	running atomic.Bool
	mu      sync.Mutex
	state   *runState
}

// Progress is a snapshot of a run.
type Progress struct {
	Dispatched int
	Finished   int
	Workers    int
}

// NewRunner creates a runner that executes tests with executor.
func NewRunner(options *testexecutionUtils.Options, executor Executor, opts ...Option) *Runner {
	return &Runner{
		harness: newHarness(options, executor, opts...),
	}
}

// worker is one goroutine of the pool.
type worker struct {
	id      int
	ctx     context.Context
	current *task // guarded by runState.mu
}

type workerExit struct {
	worker   *worker
	abnormal bool
	err      error
}

// runState lives for one call to Run. mu guards every field below it,
// including the cursor.
type runState struct {
	exits    chan workerExit
	finished chan struct{}

	mu         sync.Mutex
	next       func() (*api.TestDescription, bool)
	stopIter   func()
	stopping   bool
	exhausted  bool
	cutShort   bool
	allPassed  bool
	workers    map[*worker]struct{}
	nextID     int
	dispatched int
	completed  int
}

// Run executes tests until the sequence is exhausted, Stop is called or ctx
// is cancelled. It reports whether every dispatched test passed and the run
// was not cut short. On cancellation it returns false and an error wrapping
// ErrInterrupted and the cancellation cause.
func (r *Runner) Run(ctx context.Context, tests iter.Seq[*api.TestDescription]) (bool, error) {
	if !r.running.CompareAndSwap(false, true) {
		return false, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	next, stopIter := iter.Pull(tests)
	st := &runState{
		exits:     make(chan workerExit),
		finished:  make(chan struct{}),
		next:      next,
		stopIter:  stopIter,
		allPassed: true,
		workers:   map[*worker]struct{}{},
	}

	r.mu.Lock()
	r.state = st
	r.mu.Unlock()

	defer func() {
		close(st.finished)

		st.mu.Lock()
		st.stopIter()
		st.mu.Unlock()
	}()

	r.observer.StartingTestRun()

	// Workers are cancelled explicitly so that the grace period starts when
	// the interruption is noticed.
	workCtx, cancelWork := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancelWork(nil)

	concurrency := r.EffectiveConcurrency()
	if r.Debug {
		utils.DebugPrintf("Starting %s\n", pluralize.NewClient().Pluralize("worker", concurrency, true))
	}

	st.mu.Lock()
	for range concurrency {
		r.startWorker(workCtx, st)
	}
	st.mu.Unlock()

	for {
		st.mu.Lock()
		active := len(st.workers)
		st.mu.Unlock()

		if active == 0 {
			break
		}

		select {
		case exit := <-st.exits:
			r.handleExit(workCtx, st, exit)
		case <-ctx.Done():
			r.interrupt(ctx, st, cancelWork)
			r.observer.FinishedTestRun(false)

			return false, interrupted(ctx)
		}
	}

	st.mu.Lock()
	allPassed := st.allPassed && !st.cutShort
	st.mu.Unlock()

	r.observer.FinishedTestRun(allPassed)

	return allPassed, nil
}

// Stop ends dispatch of new tests. Tests already running finish normally.
// It is a no-op when no run is in progress.
func (r *Runner) Stop() {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()

	if st == nil || !r.running.Load() {
		return
	}

	st.mu.Lock()
	first := !st.stopping

	if first {
		st.stopping = true

		if !st.exhausted {
			// Peek to learn whether dispatch was actually cut short.
			if _, ok := st.next(); ok {
				st.cutShort = true
			}

			st.exhausted = true
		}
	}
	st.mu.Unlock()

	if first {
		logging.Info(subsystem, "stop requested")
		r.observer.StoppingTestRun()
	}
}

// Progress returns a snapshot of the current or last run.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()

	if st == nil {
		return Progress{}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	return Progress{Dispatched: st.dispatched, Finished: st.completed, Workers: len(st.workers)}
}

// startWorker must be called with st.mu held.
func (r *Runner) startWorker(ctx context.Context, st *runState) {
	st.nextID++
	w := &worker{id: st.nextID, ctx: ctx}
	st.workers[w] = struct{}{}

	go r.work(st, w)
}

func (r *Runner) work(st *runState, w *worker) {
	exit := workerExit{worker: w}

	defer func() {
		if p := recover(); p != nil {
			exit.abnormal = true
			exit.err = fmt.Errorf("worker %d died: %v", w.id, p)
		}

		select {
		case st.exits <- exit:
		case <-st.finished:
		}
	}()

	for {
		t := r.dispatch(st, w)
		if t == nil {
			return
		}

		r.start(t)
		result := r.executeTest(w.ctx, t.td)
		recorded := r.finish(t, result)

		st.mu.Lock()
		w.current = nil

		if recorded {
			st.completed++
			st.allPassed = st.allPassed && result.Status.IsPassed()
		}
		st.mu.Unlock()

		if w.ctx.Err() != nil {
			return
		}
	}
}

// dispatch takes the next test from the cursor and assigns it to w. It
// returns nil once the sequence is exhausted or the run is stopping.
func (r *Runner) dispatch(st *runState, w *worker) *task {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.stopping || st.exhausted {
		return nil
	}

	td, ok := st.next()
	if !ok {
		st.exhausted = true
		return nil
	}

	t := &task{td: td}
	w.current = t
	st.dispatched++

	return t
}

func (r *Runner) handleExit(ctx context.Context, st *runState, exit workerExit) {
	orphan := r.retire(st, exit)
	if !exit.abnormal {
		return
	}

	logging.Error(subsystem, exit.err, "worker %d exited abnormally", exit.worker.id)
	r.observer.Error(exit.err)

	if orphan != nil {
		r.recordOrphan(st, orphan, engine.NewTestResult(orphan.td, r.Verbose).Error("worker died while running test", exit.err))
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.stopping && !st.exhausted {
		if r.Debug {
			utils.DebugPrintf("Replacing worker %d\n", exit.worker.id)
		}

		r.startWorker(ctx, st)
	}
}

// retire removes an exited worker and returns the task it left unfinished.
func (r *Runner) retire(st *runState, exit workerExit) *task {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.workers, exit.worker)

	if !exit.abnormal {
		return nil
	}

	st.allPassed = false
	orphan := exit.worker.current
	exit.worker.current = nil

	return orphan
}

// recordOrphan finishes a task whose worker can no longer do so.
func (r *Runner) recordOrphan(st *runState, t *task, result *engine.TestResult) {
	if !r.finish(t, result) {
		return
	}

	st.mu.Lock()
	st.completed++
	st.allPassed = false
	st.mu.Unlock()
}

// interrupt runs the two-phase shutdown after ctx is cancelled.
func (r *Runner) interrupt(ctx context.Context, st *runState, cancelWork context.CancelCauseFunc) {
	st.mu.Lock()
	st.stopping = true
	st.allPassed = false
	st.mu.Unlock()

	logging.Warn(subsystem, "run interrupted: %v", context.Cause(ctx))
	r.observer.StoppingTestRun()
	cancelWork(context.Cause(ctx))

	grace := time.NewTimer(r.gracePeriod())
	defer grace.Stop()

	for {
		st.mu.Lock()
		active := len(st.workers)
		st.mu.Unlock()

		if active == 0 {
			return
		}

		select {
		case exit := <-st.exits:
			if orphan := r.retire(st, exit); orphan != nil {
				r.recordOrphan(st, orphan, r.forcedResult(orphan.td))
			}
		case <-grace.C:
			r.abandon(st)
			return
		}
	}
}

// abandon gives up on workers that ignored cancellation. Their tests get a
// forcibly terminated result; whatever they return later is discarded.
func (r *Runner) abandon(st *runState) {
	var orphans []*task

	st.mu.Lock()
	for w := range st.workers {
		if w.current != nil {
			orphans = append(orphans, w.current)
			logging.Warn(subsystem, "abandoned worker %d running %s", w.id, w.current.td.URL)
		}

		delete(st.workers, w)
	}
	st.mu.Unlock()

	for _, t := range orphans {
		r.recordOrphan(st, t, r.forcedResult(t.td))
	}
}

func (r *Runner) gracePeriod() time.Duration {
	if r.GracePeriod <= 0 {
		return testexecutionUtils.DefaultGracePeriod
	}

	return r.GracePeriod
}
