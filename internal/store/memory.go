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

// Package store records test results and answers prior-result queries.
package store

import (
	"sync"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

const subsystem = "store"

// Memory keeps the latest result of every test in memory.
//
// A run is opened with BeginRun. LastRunStart keeps reporting the start of
// the previous run until the next BeginRun, so that filters evaluated during
// a run see the history as it was when the run started.
type Memory struct {
	mu       sync.RWMutex
	results  map[string]*engine.TestResult
	lastRun  time.Time
	current  time.Time
	runCount int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{results: map[string]*engine.TestResult{}}
}

// BeginRun marks the start of a new run.
func (m *Memory) BeginRun(start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runCount > 0 {
		m.lastRun = m.current
	}

	m.current = start
	m.runCount++
}

// Record implements runner.ResultStore.
func (m *Memory) Record(result *engine.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[result.URL()] = result

	return nil
}

// Lookup implements filter.ResultLookup.
func (m *Memory) Lookup(td *api.TestDescription) (*engine.TestResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[td.URL]

	return r, ok
}

// LastRunStart implements filter.RunHistory. It reports false until two runs
// have begun.
func (m *Memory) LastRunStart() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastRun, m.runCount > 1
}

// Len returns the number of recorded tests.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.results)
}

// reset forgets every result and the run history.
func (m *Memory) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = map[string]*engine.TestResult{}
	m.lastRun, m.current, m.runCount = time.Time{}, time.Time{}, 0
}

// restore seeds the store without touching run bookkeeping.
func (m *Memory) restore(results []*engine.TestResult, lastRun, current time.Time, runCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		m.results[r.URL()] = r
	}

	m.lastRun, m.current, m.runCount = lastRun, current, runCount
}

func (m *Memory) runs() (lastRun, current time.Time, runCount int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastRun, m.current, m.runCount
}
