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

package processor

import (
	"io"
	"os"
	"sync"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/testexecution/runner"
	"github.com/crossplane-contrib/xconform/internal/utils"
)

// reporter prints each result as it finishes and collects the run summary.
type reporter struct {
	runner.NopObserver

	result *engine.RunResult
	out    io.Writer
	mu     sync.Mutex
}

func newReporter(name string, verbose bool) *reporter {
	return &reporter{result: engine.NewRunResult(name, verbose), out: os.Stdout}
}

// StartingTest implements runner.Observer.
func (r *reporter) StartingTest(td *api.TestDescription) {
	if r.result.Verbose {
		r.mu.Lock()
		defer r.mu.Unlock()

		utils.OutputPrintf("=== RUN   %s\n", td.URL)
	}
}

// FinishedTest implements runner.Observer.
func (r *reporter) FinishedTest(result *engine.TestResult) {
	r.result.AddResult(result)

	r.mu.Lock()
	defer r.mu.Unlock()

	result.Print(r.out)
}

// StoppingTestRun implements runner.Observer.
func (r *reporter) StoppingTestRun() {
	utils.WarningPrintf("Stopping test run of %s\n", r.result.Name)
}

// Error implements runner.Observer.
func (r *reporter) Error(err error) {
	utils.WarningPrintf("%v\n", err)
}
