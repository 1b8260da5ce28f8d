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

// Package engine provides the result types produced by running tests.
package engine

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
)

const (
	spaces = "    " // Global indentation constant for consistent formatting.
)

// TestResult represents the recorded outcome of a single test.
type TestResult struct {
	Description *api.TestDescription
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Trace       string // diagnostic detail, e.g. a stack trace for harness errors
	Output      []byte // combined output of the test execution

	Verbose bool // Formatting flag for output
}

// NewTestResult creates a new test result for the given test, started now.
func NewTestResult(td *api.TestDescription, verbose bool) *TestResult {
	return &TestResult{
		Description: td,
		Status:      StatusNotRun("test has not been run"),
		StartTime:   time.Now(),
		Verbose:     verbose,
	}
}

// URL returns the URL of the described test, or "" for a result without description.
func (tr *TestResult) URL() string {
	if tr.Description == nil {
		return ""
	}

	return tr.Description.URL
}

// Complete sets the final status and end time and returns the result for chaining.
func (tr *TestResult) Complete(status Status) *TestResult {
	tr.Status = status
	tr.EndTime = time.Now()
	tr.Duration = tr.EndTime.Sub(tr.StartTime)

	return tr
}

// Pass completes the result as PASSED.
func (tr *TestResult) Pass(reason string) *TestResult {
	return tr.Complete(StatusPassed(reason))
}

// Fail completes the result as FAILED.
func (tr *TestResult) Fail(reason string) *TestResult {
	return tr.Complete(StatusFailed(reason))
}

// Error completes the result as ERROR, keeping err's chain as the trace.
func (tr *TestResult) Error(reason string, err error) *TestResult {
	if err != nil {
		tr.Trace = fmt.Sprintf("%+v", err)
	}

	return tr.Complete(StatusError(reason))
}

// Print prints the test result to the given writer.
func (tr *TestResult) Print(w io.Writer) {
	// In non-verbose mode, only print tests that did not pass
	if tr.Status.IsPassed() && !tr.Verbose {
		return
	}

	if tr.Verbose {
		fmt.Fprintf(w, "=== RUN   %s\n", tr.URL()) //nolint:errcheck // output function, error handling not practical
	}

	fmt.Fprintf(w, "--- %s: %s (%.2fs)\n", tr.Status.Short(), tr.URL(), tr.Duration.Seconds()) //nolint:errcheck // output function, error handling not practical

	if tr.Status.Reason != "" {
		fmt.Fprintf(w, "%s%s %s\n", spaces, tr.Status.Symbol(), tr.Status.Reason) //nolint:errcheck // output function, error handling not practical
	}

	if tr.Status.Type == Error && tr.Trace != "" {
		fmt.Fprint(w, formatBlock(tr.Trace)) //nolint:errcheck // output function, error handling not practical
	}
}

// formatBlock indents every non-empty line of a multi-line diagnostic.
func formatBlock(text string) string {
	split := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	lines := make([]string, 0, len(split))
	for _, s := range split {
		if strings.TrimSpace(s) == "" {
			continue
		}

		lines = append(lines, spaces+spaces+s)
	}

	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}
