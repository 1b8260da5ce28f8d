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
	"fmt"
	"slices"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

// Composite accepts a test only if every member filter accepts it. A
// composite with no members accepts everything. Rejections are reported
// against the innermost rejecting member.
type Composite struct {
	filters []TestFilter
}

// NewComposite returns a composite over a copy of filters. Nil entries are
// dropped.
func NewComposite(filters ...TestFilter) *Composite {
	c := &Composite{filters: make([]TestFilter, 0, len(filters))}

	for _, f := range filters {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}

	return c
}

// Filters returns the member filters.
func (c *Composite) Filters() []TestFilter {
	return slices.Clone(c.filters)
}

// Name implements TestFilter.
func (c *Composite) Name() string { return "composite" }

// Description implements TestFilter.
func (c *Composite) Description() string {
	return fmt.Sprintf("accepted by all of %d filters", len(c.filters))
}

// Reason implements TestFilter.
func (c *Composite) Reason() string { return "rejected by a member filter" }

// Accepts implements TestFilter.
func (c *Composite) Accepts(td *api.TestDescription) (bool, error) {
	return c.AcceptsObserved(td, nil)
}

// AcceptsObserved implements ObservingFilter.
func (c *Composite) AcceptsObserved(td *api.TestDescription, obs Observer) (bool, error) {
	for _, f := range c.filters {
		ok, err := Accepts(f, td, obs)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// AcceptsResult implements ResultFilter.
func (c *Composite) AcceptsResult(r *engine.TestResult, obs Observer) (bool, error) {
	for _, f := range c.filters {
		ok, err := AcceptsResult(f, r, obs)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// Equal implements Equaler. Members are compared as sets.
func (c *Composite) Equal(other TestFilter) bool {
	o, ok := other.(*Composite)

	return ok && SetEqual(c.filters, o.filters)
}
