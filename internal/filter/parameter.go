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
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/keywords"
)

// ChangeObserver is notified when a filter's predicate changes, so that
// previously filtered test sets can be re-evaluated.
type ChangeObserver interface {
	FilterChanged(f TestFilter)
}

// ChangeObserverFunc adapts a function to a ChangeObserver.
type ChangeObserverFunc func(f TestFilter)

// FilterChanged calls f.
func (fn ChangeObserverFunc) FilterChanged(f TestFilter) {
	fn(f)
}

// Observable keeps a list of change observers. It is meant to be embedded.
type Observable struct {
	observersMu sync.Mutex
	observers   []ChangeObserver
}

// AddObserver registers o.
func (o *Observable) AddObserver(obs ChangeObserver) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()

	o.observers = append(o.observers, obs)
}

// RemoveObserver unregisters the first registration of obs. Observers of
// an uncomparable type, such as ChangeObserverFunc, cannot be removed.
func (o *Observable) RemoveObserver(obs ChangeObserver) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()

	for i, existing := range o.observers {
		if reflect.TypeOf(existing).Comparable() && existing == obs {
			o.observers = slices.Delete(o.observers, i, i+1)
			return
		}
	}
}

// notify calls every observer outside the lock.
func (o *Observable) notify(f TestFilter) {
	o.observersMu.Lock()
	observers := slices.Clone(o.observers)
	o.observersMu.Unlock()

	for _, obs := range observers {
		obs.FilterChanged(f)
	}
}

// Parameters describe the selection a user asked for.
type Parameters struct {
	InitialURLs    []string
	KeywordsKind   keywords.Kind
	KeywordsText   string
	KeywordOptions []keywords.Option
	ExcludeLists   []*ExcludeList
	PriorStatus    []engine.StatusType
	LastRunOnly    bool
}

// Parameter combines the filters derived from Parameters with an initial URL
// filter kept apart from them. It is safe for concurrent use: evaluations
// share a read lock and Update takes the write lock.
type Parameter struct {
	Observable

	history RunHistory

	mu          sync.RWMutex
	filters     []TestFilter
	initialURL  *InitialURL
	initialURLs []string
}

// NewParameter returns a Parameter that accepts every test until updated.
// history backs the prior status and last run filters and may be nil if
// neither is used.
func NewParameter(history RunHistory) *Parameter {
	return &Parameter{history: history, initialURL: NewInitialURL()}
}

// Update replaces the filters. Observers are notified only when the new
// filter set or initial URL list differs from the current one. Faults in the
// parameters are returned and leave the filter unchanged.
func (p *Parameter) Update(params Parameters) error {
	filters, err := p.build(params)
	if err != nil {
		return err
	}

	p.mu.Lock()
	changed := !SetEqual(p.filters, filters) || !slices.Equal(p.initialURLs, params.InitialURLs)

	if changed {
		p.filters = filters
		p.initialURL = NewInitialURL(params.InitialURLs...)
		p.initialURLs = slices.Clone(params.InitialURLs)
	}
	p.mu.Unlock()

	if changed {
		p.notify(p)
	}

	return nil
}

func (p *Parameter) build(params Parameters) ([]TestFilter, error) {
	var filters []TestFilter

	if strings.TrimSpace(params.KeywordsText) != "" {
		predicate, err := keywords.Parse(params.KeywordsKind, params.KeywordsText, params.KeywordOptions...)
		if err != nil {
			return nil, err
		}

		filters = append(filters, NewKeywords(predicate))
	}

	switch lists := slices.DeleteFunc(slices.Clone(params.ExcludeLists), func(l *ExcludeList) bool { return l == nil }); len(lists) {
	case 0:
	case 1:
		filters = append(filters, lists[0])
	default:
		filters = append(filters, MergeExcludeLists(lists...))
	}

	if len(params.PriorStatus) > 0 {
		if p.history == nil {
			return nil, &Fault{Kind: FaultNoHistory, Filter: "prior status"}
		}

		filters = append(filters, NewStatus(p.history, params.PriorStatus...))
	}

	if params.LastRunOnly {
		if p.history == nil {
			return nil, &Fault{Kind: FaultNoHistory, Filter: "last run"}
		}

		filters = append(filters, NewLastRun(p.history))
	}

	return filters, nil
}

// Filters returns the current filters, excluding the initial URL filter.
func (p *Parameter) Filters() []TestFilter {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.filters)
}

// InitialURL returns the current initial URL filter.
func (p *Parameter) InitialURL() *InitialURL {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.initialURL
}

// Name implements TestFilter.
func (p *Parameter) Name() string { return "parameters" }

// Description implements TestFilter.
func (p *Parameter) Description() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	parts := []string{p.initialURL.Description()}
	for _, f := range p.filters {
		parts = append(parts, f.Description())
	}

	return strings.Join(parts, "; ")
}

// Reason implements TestFilter.
func (p *Parameter) Reason() string { return "not selected by the run parameters" }

// Accepts implements TestFilter.
func (p *Parameter) Accepts(td *api.TestDescription) (bool, error) {
	return p.AcceptsObserved(td, nil)
}

// AcceptsObserved implements ObservingFilter.
func (p *Parameter) AcceptsObserved(td *api.TestDescription, obs Observer) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if ok, err := Accepts(p.initialURL, td, obs); err != nil || !ok {
		return false, err
	}

	for _, f := range p.filters {
		if ok, err := Accepts(f, td, obs); err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// AcceptsResult implements ResultFilter.
func (p *Parameter) AcceptsResult(r *engine.TestResult, obs Observer) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if ok, err := AcceptsResult(p.initialURL, r, obs); err != nil || !ok {
		return false, err
	}

	for _, f := range p.filters {
		if ok, err := AcceptsResult(f, r, obs); err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}
