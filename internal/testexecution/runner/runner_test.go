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
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/stretchr/testify/assert"  //nolint:depguard // testify is widely used for testing
	"github.com/stretchr/testify/require" //nolint:depguard // testify is widely used for testing
)

// recordingObserver records every notification.
type recordingObserver struct {
	mu          sync.Mutex
	events      []string
	results     map[string][]*engine.TestResult
	errs        []error
	stopping    int
	finishedRun []bool
	started     chan string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{results: map[string][]*engine.TestResult{}, started: make(chan string, 1000)}
}

func (o *recordingObserver) StartingTestRun() {}

func (o *recordingObserver) StartingTest(td *api.TestDescription) {
	o.mu.Lock()
	o.events = append(o.events, "start:"+td.URL)
	o.mu.Unlock()

	o.started <- td.URL
}

func (o *recordingObserver) FinishedTest(result *engine.TestResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, "finish:"+result.URL())
	o.results[result.URL()] = append(o.results[result.URL()], result)
}

func (o *recordingObserver) StoppingTestRun() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopping++
}

func (o *recordingObserver) FinishedTestRun(allPassed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishedRun = append(o.finishedRun, allPassed)
}

func (o *recordingObserver) Error(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) finishedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, rs := range o.results {
		n += len(rs)
	}

	return n
}

// result returns the single result recorded for url.
func (o *recordingObserver) result(t *testing.T, url string) *engine.TestResult {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()

	require.Len(t, o.results[url], 1, "expected exactly one result for %s", url)

	return o.results[url][0]
}

// assertPairs checks that every url got exactly one start followed by one
// finish.
func (o *recordingObserver) assertPairs(t *testing.T, urls ...string) {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, url := range urls {
		start := slices.Index(o.events, "start:"+url)
		finish := slices.Index(o.events, "finish:"+url)

		assert.Equal(t, 1, count(o.events, "start:"+url), "starts of %s", url)
		assert.Equal(t, 1, count(o.events, "finish:"+url), "finishes of %s", url)
		assert.Less(t, start, finish, "%s finished before it started", url)
	}
}

func count(events []string, event string) int {
	n := 0

	for _, e := range events {
		if e == event {
			n++
		}
	}

	return n
}

// memoryStore records results and can be told to fail.
type memoryStore struct {
	mu      sync.Mutex
	results []*engine.TestResult
	err     error
}

func (s *memoryStore) Record(result *engine.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)

	return s.err
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.results)
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("suite/test%02d.html", i)
	}

	return out
}

func seq(urls ...string) iter.Seq[*api.TestDescription] {
	tds := make([]*api.TestDescription, len(urls))
	for i, u := range urls {
		tds[i] = &api.TestDescription{URL: u}
	}

	return slices.Values(tds)
}

func passing(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
	return engine.NewTestResult(td, false).Pass(""), nil
}

func options(concurrency int) *testexecutionUtils.Options {
	return &testexecutionUtils.Options{Concurrency: concurrency, GracePeriod: 100 * time.Millisecond}
}

func waitFor(t *testing.T, ch <-chan string, n int) {
	t.Helper()

	for range n {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for tests to start")
		}
	}
}

func TestRunAllPass(t *testing.T) {
	const (
		n           = 25
		concurrency = 4
	)

	var active, maxActive atomic.Int32

	executor := ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
		cur := active.Add(1)
		defer active.Add(-1)

		for {
			prev := maxActive.Load()
			if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}

		time.Sleep(2 * time.Millisecond)

		return passing(ctx, td)
	})

	obs := newRecordingObserver()
	store := &memoryStore{}
	r := NewRunner(options(concurrency), executor, WithObserver(obs), WithResultStore(store))

	allPassed, err := r.Run(context.Background(), seq(urls(n)...))

	require.NoError(t, err)
	assert.True(t, allPassed)
	assert.Equal(t, n, obs.finishedCount())
	assert.Equal(t, n, store.len())
	obs.assertPairs(t, urls(n)...)
	assert.LessOrEqual(t, maxActive.Load(), int32(concurrency))
	assert.Equal(t, []bool{true}, obs.finishedRun)
	assert.Equal(t, Progress{Dispatched: n, Finished: n}, r.Progress())
}

func TestRunEmptySequence(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRunner(options(3), ExecutorFunc(passing), WithObserver(obs))

	allPassed, err := r.Run(context.Background(), seq())

	require.NoError(t, err)
	assert.True(t, allPassed)
	assert.Equal(t, 0, obs.finishedCount())
}

func TestRunFailureMakesRunFail(t *testing.T) {
	executor := ExecutorFunc(func(_ context.Context, td *api.TestDescription) (*engine.TestResult, error) {
		if td.URL == "b" {
			return engine.NewTestResult(td, false).Fail("exit code 1"), nil
		}

		return engine.NewTestResult(td, false).Pass(""), nil
	})

	obs := newRecordingObserver()
	allPassed, err := NewRunner(options(2), executor, WithObserver(obs)).Run(context.Background(), seq("a", "b", "c"))

	require.NoError(t, err)
	assert.False(t, allPassed)
	assert.Equal(t, engine.Failed, obs.result(t, "b").Status.Type)
	assert.Equal(t, 3, obs.finishedCount())
}

func TestRunFaultInjection(t *testing.T) {
	executor := ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
		switch td.URL {
		case "panic":
			panic("unexpected state")
		case "runtime-panic":
			var m map[string]int
			m["boom"]++
		case "error":
			return nil, errors.New("connection refused")
		case "nil":
			return nil, nil
		}

		return passing(ctx, td)
	})

	all := []string{"before", "panic", "runtime-panic", "error", "nil", "after"}
	obs := newRecordingObserver()

	allPassed, err := NewRunner(options(1), executor, WithObserver(obs)).Run(context.Background(), seq(all...))

	require.NoError(t, err)
	assert.False(t, allPassed)
	obs.assertPairs(t, all...)

	assert.True(t, obs.result(t, "before").Status.IsPassed())
	assert.True(t, obs.result(t, "after").Status.IsPassed(), "the run continues after a failing test")

	tests := []struct {
		url    string
		reason string
		trace  string
	}{
		{url: "panic", reason: "test execution panicked: unexpected state", trace: "panic: unexpected state"},
		{url: "runtime-panic", reason: "test execution panicked: assignment to entry in nil map", trace: "runtime/debug.Stack"},
		{url: "error", reason: "test execution failed: connection refused", trace: "connection refused"},
		{url: "nil", reason: ReasonNoResult},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := obs.result(t, tt.url)
			assert.Equal(t, engine.Error, result.Status.Type)
			assert.Equal(t, tt.reason, result.Status.Reason)
			assert.Contains(t, result.Trace, tt.trace)
		})
	}
}

func TestRunStop(t *testing.T) {
	t.Run("stop after k dispatched tests", func(t *testing.T) {
		release := make(chan struct{})
		executor := ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
			<-release
			return passing(ctx, td)
		})

		obs := newRecordingObserver()
		store := &memoryStore{}
		r := NewRunner(options(2), executor, WithObserver(obs), WithResultStore(store))

		type outcome struct {
			allPassed bool
			err       error
		}

		done := make(chan outcome, 1)

		go func() {
			allPassed, err := r.Run(context.Background(), seq(urls(10)...))
			done <- outcome{allPassed, err}
		}()

		waitFor(t, obs.started, 2)
		r.Stop()
		r.Stop()
		close(release)

		out := <-done
		require.NoError(t, out.err)
		assert.False(t, out.allPassed, "dispatch was cut short")
		assert.Equal(t, 2, store.len())
		assert.Equal(t, 1, obs.stopping)
		assert.Equal(t, 2, r.Progress().Dispatched)
	})

	t.Run("stop after the last dispatch keeps the result", func(t *testing.T) {
		release := make(chan struct{})
		executor := ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
			<-release
			return passing(ctx, td)
		})

		obs := newRecordingObserver()
		r := NewRunner(options(2), executor, WithObserver(obs))
		done := make(chan bool, 1)

		go func() {
			allPassed, _ := r.Run(context.Background(), seq("a", "b"))
			done <- allPassed
		}()

		waitFor(t, obs.started, 2)
		r.Stop()
		close(release)

		assert.True(t, <-done)
	})

	t.Run("stop without a run is a no-op", func(t *testing.T) {
		NewRunner(options(1), ExecutorFunc(passing)).Stop()
	})
}

func TestRunForcedInterruption(t *testing.T) {
	hang := make(chan struct{})
	t.Cleanup(func() { close(hang) })

	executor := ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
		if td.URL == "hangs" {
			<-hang // ignores cancellation
			return passing(ctx, td)
		}

		<-ctx.Done()

		return nil, ctx.Err()
	})

	obs := newRecordingObserver()
	store := &memoryStore{}
	r := NewRunner(&testexecutionUtils.Options{Concurrency: 2, GracePeriod: 50 * time.Millisecond}, executor,
		WithObserver(obs), WithResultStore(store))

	ctx, cancel := context.WithCancel(context.Background())

	type outcome struct {
		allPassed bool
		err       error
	}

	done := make(chan outcome, 1)

	go func() {
		allPassed, err := r.Run(ctx, seq("hangs", "cooperates", "never-dispatched"))
		done <- outcome{allPassed, err}
	}()

	waitFor(t, obs.started, 2)

	start := time.Now()
	cancel()

	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the grace period")
	}

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "stragglers get the grace period")
	assert.False(t, out.allPassed)
	assert.True(t, errors.Is(out.err, ErrInterrupted))
	assert.True(t, errors.Is(out.err, context.Canceled))

	obs.assertPairs(t, "hangs", "cooperates")
	assert.Equal(t, engine.StatusError(ReasonForciblyTerminated), obs.result(t, "hangs").Status)
	assert.Equal(t, engine.StatusError(ReasonInterrupted), obs.result(t, "cooperates").Status)
	assert.Equal(t, 2, store.len())
	assert.Equal(t, []bool{false}, obs.finishedRun)

	// Whatever the abandoned test returns later is discarded.
	hang <- struct{}{}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, obs.finishedCount())
	assert.Equal(t, 2, store.len())
}

func TestRunReplacesDeadWorkers(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRunner(options(1), ExecutorFunc(passing), WithObserver(obs))

	// A panic outside the executor's recovery kills the worker.
	r.executeTestFunc = func(_ context.Context, td *api.TestDescription) *engine.TestResult {
		if td.URL == "kills-worker" {
			panic("worker bug")
		}

		return engine.NewTestResult(td, false).Pass("")
	}

	all := []string{"a", "kills-worker", "b", "c"}

	allPassed, err := r.Run(context.Background(), seq(all...))

	require.NoError(t, err)
	assert.False(t, allPassed)
	obs.assertPairs(t, all...)

	result := obs.result(t, "kills-worker")
	assert.Equal(t, engine.StatusError("worker died while running test"), result.Status)
	assert.Contains(t, result.Trace, "worker bug")

	assert.True(t, obs.result(t, "c").Status.IsPassed(), "a replacement worker finished the run")
	require.Len(t, obs.errs, 1)
}

type selfNotifyingExecutor struct{}

func (selfNotifyingExecutor) Execute(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
	return passing(ctx, td)
}

func (selfNotifyingExecutor) NotifiesObserver() bool { return true }

func TestRunSelfNotifyingExecutor(t *testing.T) {
	obs := newRecordingObserver()
	store := &memoryStore{}

	allPassed, err := NewRunner(options(2), selfNotifyingExecutor{}, WithObserver(obs), WithResultStore(store)).
		Run(context.Background(), seq("a", "b"))

	require.NoError(t, err)
	assert.True(t, allPassed)
	assert.Empty(t, obs.events)
	assert.Equal(t, 2, store.len())
}

func TestRunStoreFailureIsNotFatal(t *testing.T) {
	obs := newRecordingObserver()
	store := &memoryStore{err: errors.New("disk full")}

	allPassed, err := NewRunner(options(2), ExecutorFunc(passing), WithObserver(obs), WithResultStore(store)).
		Run(context.Background(), seq("a", "b", "c"))

	require.NoError(t, err)
	assert.True(t, allPassed)
	assert.Equal(t, 3, obs.finishedCount())
	assert.Len(t, obs.errs, 3)
	assert.ErrorContains(t, obs.errs[0], "disk full")
}

func TestRunAlreadyRunning(t *testing.T) {
	release := make(chan struct{})
	obs := newRecordingObserver()
	r := NewRunner(options(1), ExecutorFunc(func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
		<-release
		return passing(ctx, td)
	}), WithObserver(obs))

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = r.Run(context.Background(), seq("a"))
	}()

	waitFor(t, obs.started, 1)

	_, err := r.Run(context.Background(), seq("b"))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	<-done
}

func TestObserversFanOut(t *testing.T) {
	a, b := newRecordingObserver(), newRecordingObserver()
	obs := Observers{a, b, NopObserver{}}

	td := &api.TestDescription{URL: "x"}
	obs.StartingTest(td)
	obs.FinishedTest(engine.NewTestResult(td, false).Pass(""))
	obs.Error(errors.New("e"))

	for _, o := range []*recordingObserver{a, b} {
		assert.Equal(t, []string{"start:x", "finish:x"}, o.events)
		assert.Len(t, o.errs, 1)
	}
}
