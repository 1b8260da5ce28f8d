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

// Package filter decides which tests are eligible to run or be reported.
package filter

import (
	"fmt"
	"reflect"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

// TestFilter is a predicate over test descriptions.
type TestFilter interface {
	// Name is a short name for the filter.
	Name() string
	// Description says what the filter accepts.
	Description() string
	// Reason says why a test was rejected.
	Reason() string
	// Accepts reports whether the test is eligible. An error is a *Fault.
	Accepts(td *api.TestDescription) (bool, error)
}

// Observer is told which filter rejected a test.
type Observer interface {
	Rejected(td *api.TestDescription, by TestFilter)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(td *api.TestDescription, by TestFilter)

// Rejected calls f.
func (f ObserverFunc) Rejected(td *api.TestDescription, by TestFilter) {
	f(td, by)
}

// ObservingFilter is implemented by filters that report rejections
// themselves, typically to name a member filter instead of the container.
type ObservingFilter interface {
	TestFilter
	AcceptsObserved(td *api.TestDescription, obs Observer) (bool, error)
}

// ResultFilter is implemented by filters that decide on a result rather than
// on the result's description.
type ResultFilter interface {
	TestFilter
	AcceptsResult(r *engine.TestResult, obs Observer) (bool, error)
}

// Equaler is implemented by filters with value equality.
type Equaler interface {
	Equal(other TestFilter) bool
}

// ResultLookup finds the recorded result of a test's previous run.
type ResultLookup interface {
	Lookup(td *api.TestDescription) (*engine.TestResult, bool)
}

// RunHistory is a ResultLookup that also knows when the last run started.
type RunHistory interface {
	ResultLookup
	LastRunStart() (time.Time, bool)
}

// Accepts evaluates f and, if the test is rejected and obs is not nil, tells
// obs which filter rejected it.
func Accepts(f TestFilter, td *api.TestDescription, obs Observer) (bool, error) {
	if obs == nil {
		return f.Accepts(td)
	}

	if of, ok := f.(ObservingFilter); ok {
		return of.AcceptsObserved(td, obs)
	}

	ok, err := f.Accepts(td)
	if err != nil {
		return false, err
	}

	if !ok {
		obs.Rejected(td, f)
	}

	return ok, nil
}

// AcceptsResult evaluates f against a result. Filters that do not implement
// ResultFilter are evaluated against the result's description.
func AcceptsResult(f TestFilter, r *engine.TestResult, obs Observer) (bool, error) {
	if rf, ok := f.(ResultFilter); ok {
		return rf.AcceptsResult(r, obs)
	}

	if r == nil || r.Description == nil {
		return false, &Fault{Kind: FaultNoPriorResult, Filter: f.Name()}
	}

	return Accepts(f, r.Description, obs)
}

// Equal compares two filters, using Equal when the filter provides it and
// identity otherwise.
func Equal(a, b TestFilter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ea, ok := a.(Equaler); ok {
		return ea.Equal(b)
	}

	if !reflect.TypeOf(a).Comparable() || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	return a == b
}

// SetEqual reports whether two filter lists hold the same filters, ignoring
// order and repeats.
func SetEqual(as, bs []TestFilter) bool {
	return subset(as, bs) && subset(bs, as)
}

func subset(as, bs []TestFilter) bool {
	for _, a := range as {
		found := false

		for _, b := range bs {
			if Equal(a, b) {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// FaultKind identifies a filter configuration or evaluation problem.
type FaultKind int

// Fault kinds reported by filters.
const (
	FaultNoPriorResult FaultKind = iota
	FaultNoPriorStatus
	FaultNoHistory
	FaultBadExcludeList
)

// Fault is a recoverable filter problem. Message text is produced by Error.
type Fault struct {
	Kind   FaultKind
	Filter string
	URL    string
	File   string
	Line   int
	Detail string
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultNoPriorResult:
		if f.URL == "" {
			return fmt.Sprintf("%s: no prior result available", f.Filter)
		}

		return fmt.Sprintf("%s: no prior result for %s", f.Filter, f.URL)
	case FaultNoPriorStatus:
		return fmt.Sprintf("%s: prior result for %s has no recorded status", f.Filter, f.URL)
	case FaultNoHistory:
		return fmt.Sprintf("%s: requires a result history but none is configured", f.Filter)
	case FaultBadExcludeList:
		return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Detail)
	default:
		return fmt.Sprintf("%s: filter fault", f.Filter)
	}
}
