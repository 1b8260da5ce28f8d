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

package engine

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gertd/go-pluralize"
)

// RunResult aggregates the results of one test run. It is safe for concurrent use.
type RunResult struct {
	Name      string
	Duration  time.Duration
	StartTime time.Time
	Verbose   bool // Formatting flag for output

	mu      sync.Mutex
	counts  [NumStatusTypes]int
	results []*TestResult
}

// NewRunResult creates a new run result.
func NewRunResult(name string, verbose bool) *RunResult {
	return &RunResult{
		Name:      name,
		StartTime: time.Now(),
		Verbose:   verbose,
	}
}

// AddResult adds a test result to the run.
func (rr *RunResult) AddResult(result *TestResult) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.results = append(rr.results, result)
	if result.Status.Type.Valid() {
		rr.counts[result.Status.Type]++
	}
}

// Complete finalizes the run result with total duration and returns the result for chaining.
func (rr *RunResult) Complete() *RunResult {
	rr.Duration = time.Since(rr.StartTime)
	return rr
}

// Count returns the number of results with the given status type.
func (rr *RunResult) Count(t StatusType) int {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if !t.Valid() {
		return 0
	}

	return rr.counts[t]
}

// Total returns the number of recorded results.
func (rr *RunResult) Total() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	return len(rr.results)
}

// Results returns a copy of the recorded results in recording order.
func (rr *RunResult) Results() []*TestResult {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	out := make([]*TestResult, len(rr.results))
	copy(out, rr.results)

	return out
}

// HasFailures returns true if any recorded test did not pass.
func (rr *RunResult) HasFailures() bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	return len(rr.results) > rr.counts[Passed]
}

// Summary returns a one-line breakdown, e.g. "3 tests: 2 passed, 1 failed".
func (rr *RunResult) Summary() string {
	plural := pluralize.NewClient()

	rr.mu.Lock()
	defer rr.mu.Unlock()

	parts := make([]string, 0, NumStatusTypes)

	for t := Passed; t < NumStatusTypes; t++ {
		if rr.counts[t] == 0 {
			continue
		}

		parts = append(parts, fmt.Sprintf("%d %s", rr.counts[t], strings.ToLower(strings.ReplaceAll(t.String(), "_", " "))))
	}

	summary := plural.Pluralize("test", len(rr.results), true)
	if len(parts) > 0 {
		summary += ": " + strings.Join(parts, ", ")
	}

	return summary
}

// Print the run summary in Go test format.
func (rr *RunResult) Print(w io.Writer) {
	if rr.HasFailures() {
		fmt.Fprintf(w, "%s\n%s\t%s\t%.3fs\t[%s]\n", "FAIL", "FAIL", rr.Name, rr.Duration.Seconds(), rr.Summary()) //nolint:errcheck // output function, error handling not practical
		return
	}

	if rr.Verbose {
		fmt.Fprintln(w, "PASS") //nolint:errcheck // output function, error handling not practical
	}

	fmt.Fprintf(w, "ok\t%s\t%.3fs\t[%s]\n", rr.Name, rr.Duration.Seconds(), rr.Summary()) //nolint:errcheck // output function, error handling not practical
}
