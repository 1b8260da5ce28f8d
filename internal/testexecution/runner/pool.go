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
	"iter"
	"sync/atomic"

	"github.com/crossplane-contrib/xconform/internal/api"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"golang.org/x/sync/errgroup"
)

// PoolRunner is a simpler runner built on an errgroup with a fixed limit.
// It has no grace period: on cancellation it stops dispatching and waits for
// running tests to return. Workers are never replaced.
type PoolRunner struct {
	harness

	stopped    atomic.Bool
	dispatched atomic.Int64
	finished   atomic.Int64
	active     atomic.Int64
}

// NewPoolRunner creates a pool runner that executes tests with executor.
func NewPoolRunner(options *testexecutionUtils.Options, executor Executor, opts ...Option) *PoolRunner {
	return &PoolRunner{harness: newHarness(options, executor, opts...)}
}

// Stop ends dispatch of new tests.
func (p *PoolRunner) Stop() {
	if p.stopped.CompareAndSwap(false, true) {
		p.observer.StoppingTestRun()
	}
}

// Progress returns a snapshot of the current or last run. Workers counts the
// tests running right now.
func (p *PoolRunner) Progress() Progress {
	return Progress{
		Dispatched: int(p.dispatched.Load()),
		Finished:   int(p.finished.Load()),
		Workers:    int(p.active.Load()),
	}
}

// Run executes tests and reports whether all dispatched tests passed and the
// sequence was fully dispatched.
func (p *PoolRunner) Run(ctx context.Context, tests iter.Seq[*api.TestDescription]) (bool, error) {
	p.stopped.Store(false)
	p.dispatched.Store(0)
	p.finished.Store(0)

	var allPassed atomic.Bool
	allPassed.Store(true)

	g := new(errgroup.Group)
	g.SetLimit(p.EffectiveConcurrency())

	p.observer.StartingTestRun()

	for td := range tests {
		if p.stopped.Load() || ctx.Err() != nil {
			// Dispatch was cut short.
			allPassed.Store(false)
			break
		}

		// g.Go may wait for a free slot, so Stop can arrive in between.
		g.Go(func() error {
			if p.stopped.Load() || ctx.Err() != nil {
				allPassed.Store(false)
				return nil
			}

			p.dispatched.Add(1)
			p.active.Add(1)
			defer p.active.Add(-1)

			t := &task{td: td}
			p.start(t)

			result := p.executeTest(ctx, td)
			p.finish(t, result)
			p.finished.Add(1)

			if !result.Status.IsPassed() {
				allPassed.Store(false)
			}

			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		p.observer.FinishedTestRun(false)
		return false, interrupted(ctx)
	}

	p.observer.FinishedTestRun(allPassed.Load())

	return allPassed.Load(), nil
}
