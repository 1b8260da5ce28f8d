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

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

// Executor runs the body of a single test.
type Executor interface {
	// Execute runs td and returns its result. A returned error is recorded as
	// an ERROR result for the test.
	Execute(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error)
}

// ExecutorFunc adapts a function to an Executor.
type ExecutorFunc func(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, td *api.TestDescription) (*engine.TestResult, error) {
	return f(ctx, td)
}

// SelfNotifier is implemented by executors that send their own per-test
// notifications. When NotifiesObserver returns true the runner does not call
// StartingTest or FinishedTest.
type SelfNotifier interface {
	NotifiesObserver() bool
}

// Observer receives run and test notifications. Methods may be called from
// several goroutines at once. Each test gets exactly one StartingTest
// followed by one FinishedTest.
type Observer interface {
	StartingTestRun()
	StartingTest(td *api.TestDescription)
	FinishedTest(result *engine.TestResult)
	StoppingTestRun()
	FinishedTestRun(allPassed bool)
	Error(err error)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// some methods.
type NopObserver struct{}

// StartingTestRun implements Observer.
func (NopObserver) StartingTestRun() {}

// StartingTest implements Observer.
func (NopObserver) StartingTest(*api.TestDescription) {}

// FinishedTest implements Observer.
func (NopObserver) FinishedTest(*engine.TestResult) {}

// StoppingTestRun implements Observer.
func (NopObserver) StoppingTestRun() {}

// FinishedTestRun implements Observer.
func (NopObserver) FinishedTestRun(bool) {}

// Error implements Observer.
func (NopObserver) Error(error) {}

// Observers fans notifications out to every member in order.
type Observers []Observer

// StartingTestRun implements Observer.
func (o Observers) StartingTestRun() {
	for _, obs := range o {
		obs.StartingTestRun()
	}
}

// StartingTest implements Observer.
func (o Observers) StartingTest(td *api.TestDescription) {
	for _, obs := range o {
		obs.StartingTest(td)
	}
}

// FinishedTest implements Observer.
func (o Observers) FinishedTest(result *engine.TestResult) {
	for _, obs := range o {
		obs.FinishedTest(result)
	}
}

// StoppingTestRun implements Observer.
func (o Observers) StoppingTestRun() {
	for _, obs := range o {
		obs.StoppingTestRun()
	}
}

// FinishedTestRun implements Observer.
func (o Observers) FinishedTestRun(allPassed bool) {
	for _, obs := range o {
		obs.FinishedTestRun(allPassed)
	}
}

// Error implements Observer.
func (o Observers) Error(err error) {
	for _, obs := range o {
		obs.Error(err)
	}
}

// ResultStore records test results. Record errors are logged and reported to
// the observer; they do not stop the run.
type ResultStore interface {
	Record(result *engine.TestResult) error
}
