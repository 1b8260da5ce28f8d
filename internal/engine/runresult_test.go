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
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/stretchr/testify/assert" //nolint:depguard // testify is widely used for testing
)

func newResult(url string, status Status) *TestResult {
	return NewTestResult(&api.TestDescription{URL: url}, false).Complete(status)
}

func TestNewRunResult(t *testing.T) {
	t.Run("creates result with correct initial values", func(t *testing.T) {
		result := NewRunResult("conformance", true)

		assert.Equal(t, "conformance", result.Name)
		assert.True(t, result.Verbose)
		assert.False(t, result.StartTime.IsZero())
		assert.Equal(t, time.Duration(0), result.Duration)
		assert.Empty(t, result.Results())
		assert.False(t, result.HasFailures())
	})
}

func TestRunResult_AddResult(t *testing.T) {
	t.Run("adds passing result and keeps ok status", func(t *testing.T) {
		run := NewRunResult("run", false)
		run.AddResult(newResult("a", StatusPassed("")))

		assert.Equal(t, 1, run.Total())
		assert.Equal(t, 1, run.Count(Passed))
		assert.False(t, run.HasFailures())
	})

	t.Run("any non-pass outcome is a failure", func(t *testing.T) {
		for _, status := range []Status{StatusFailed("x"), StatusError("x"), StatusNotRun("x")} {
			run := NewRunResult("run", false)
			run.AddResult(newResult("a", StatusPassed("")))
			run.AddResult(newResult("b", status))

			assert.True(t, run.HasFailures(), status.String())
			assert.Equal(t, 1, run.Count(status.Type))
		}
	})

	t.Run("concurrent adds are all counted", func(t *testing.T) {
		run := NewRunResult("run", false)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()
				run.AddResult(newResult("t", StatusPassed("")))
			}()
		}

		wg.Wait()
		assert.Equal(t, 50, run.Count(Passed))
		assert.Equal(t, 0, run.Count(StatusType(42)))
	})
}

func TestRunResult_Complete(t *testing.T) {
	run := NewRunResult("run", false)
	time.Sleep(1 * time.Millisecond)

	returned := run.Complete()

	assert.Same(t, run, returned)
	assert.Positive(t, run.Duration)
}

func TestRunResult_Summary(t *testing.T) {
	run := NewRunResult("run", false)
	assert.Equal(t, "0 tests", run.Summary())

	run.AddResult(newResult("a", StatusPassed("")))
	assert.Equal(t, "1 test: 1 passed", run.Summary())

	run.AddResult(newResult("b", StatusPassed("")))
	run.AddResult(newResult("c", StatusFailed("")))
	run.AddResult(newResult("d", StatusNotRun("")))
	assert.Equal(t, "4 tests: 2 passed, 1 failed, 1 not run", run.Summary())
}

func TestRunResult_Print(t *testing.T) {
	t.Run("prints ok for successful run in non-verbose mode", func(t *testing.T) {
		run := NewRunResult("corpus", false)
		run.AddResult(newResult("a", StatusPassed("")))
		run.Complete()

		var buf bytes.Buffer
		run.Print(&buf)

		output := buf.String()
		assert.Contains(t, output, "ok\tcorpus")
		assert.Contains(t, output, "[1 test: 1 passed]")
		assert.NotContains(t, output, "PASS")
	})

	t.Run("prints PASS in verbose mode", func(t *testing.T) {
		run := NewRunResult("corpus", true)
		run.Complete()

		var buf bytes.Buffer
		run.Print(&buf)

		assert.Contains(t, buf.String(), "PASS\nok\tcorpus")
	})

	t.Run("prints FAIL for failed run", func(t *testing.T) {
		run := NewRunResult("corpus", false)
		run.AddResult(newResult("a", StatusError("boom")))
		run.Complete()

		var buf bytes.Buffer
		run.Print(&buf)

		output := buf.String()
		assert.Contains(t, output, "FAIL\nFAIL\tcorpus")
		assert.Contains(t, output, "1 error")
		assert.NotContains(t, output, "ok")
	})
}
