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

package filter

import (
	"strings"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

// Status accepts tests whose prior result has one of a set of status types.
type Status struct {
	lookup ResultLookup
	accept [engine.NumStatusTypes]bool
}

// NewStatus returns a filter accepting prior results of the given types.
func NewStatus(lookup ResultLookup, types ...engine.StatusType) *Status {
	s := &Status{lookup: lookup}

	for _, t := range types {
		if t.Valid() {
			s.accept[t] = true
		}
	}

	return s
}

// Name implements TestFilter.
func (s *Status) Name() string { return "prior status" }

// Description implements TestFilter.
func (s *Status) Description() string {
	return "prior status is one of " + strings.Join(s.names(), ", ")
}

// Reason implements TestFilter.
func (s *Status) Reason() string {
	return "prior status is not one of " + strings.Join(s.names(), ", ")
}

func (s *Status) names() []string {
	var names []string

	for t, ok := range s.accept {
		if ok {
			names = append(names, engine.StatusType(t).String())
		}
	}

	return names
}

// Accepts implements TestFilter by looking up the test's prior result.
func (s *Status) Accepts(td *api.TestDescription) (bool, error) {
	r, ok := s.lookup.Lookup(td)
	if !ok || r == nil {
		return false, &Fault{Kind: FaultNoPriorResult, Filter: s.Name(), URL: td.URL}
	}

	return s.acceptsStatus(r, td.URL)
}

// AcceptsResult implements ResultFilter. The result itself is inspected,
// without a lookup.
func (s *Status) AcceptsResult(r *engine.TestResult, obs Observer) (bool, error) {
	if r == nil {
		return false, &Fault{Kind: FaultNoPriorResult, Filter: s.Name()}
	}

	ok, err := s.acceptsStatus(r, r.URL())
	if err == nil && !ok && obs != nil {
		obs.Rejected(r.Description, s)
	}

	return ok, err
}

func (s *Status) acceptsStatus(r *engine.TestResult, url string) (bool, error) {
	if !r.Status.Type.Valid() {
		return false, &Fault{Kind: FaultNoPriorStatus, Filter: s.Name(), URL: url}
	}

	return s.accept[r.Status.Type], nil
}

// Equal implements Equaler.
func (s *Status) Equal(other TestFilter) bool {
	o, ok := other.(*Status)

	return ok && s.lookup == o.lookup && s.accept == o.accept
}

// LastRun accepts tests that have no recorded result or whose recorded
// result finished at or after the start of the last run. Stored times have
// one-second resolution so the start time is truncated to the second.
type LastRun struct {
	history RunHistory
}

// NewLastRun returns a filter over the given history.
func NewLastRun(history RunHistory) *LastRun {
	return &LastRun{history: history}
}

// Name implements TestFilter.
func (l *LastRun) Name() string { return "last run" }

// Description implements TestFilter.
func (l *LastRun) Description() string { return "tests finished during the last run" }

// Reason implements TestFilter.
func (l *LastRun) Reason() string { return "not run during the last run" }

// Accepts implements TestFilter.
func (l *LastRun) Accepts(td *api.TestDescription) (bool, error) {
	start, ok := l.history.LastRunStart()
	if !ok {
		return true, nil
	}

	r, found := l.history.Lookup(td)
	if !found || r == nil {
		return true, nil
	}

	return !r.EndTime.Before(start.Truncate(time.Second)), nil
}

// Equal implements Equaler.
func (l *LastRun) Equal(other TestFilter) bool {
	o, ok := other.(*LastRun)

	return ok && l.history == o.history
}
