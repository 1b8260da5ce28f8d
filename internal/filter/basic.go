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
	"strings"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/keywords"
)

// AllTests accepts every test.
type AllTests struct{}

// Name implements TestFilter.
func (AllTests) Name() string { return "all tests" }

// Description implements TestFilter.
func (AllTests) Description() string { return "accept all tests" }

// Reason implements TestFilter.
func (AllTests) Reason() string { return "" }

// Accepts implements TestFilter.
func (AllTests) Accepts(*api.TestDescription) (bool, error) { return true, nil }

// Equal implements Equaler.
func (AllTests) Equal(other TestFilter) bool {
	switch other.(type) {
	case AllTests, *AllTests:
		return true
	default:
		return false
	}
}

// Keywords accepts tests whose keywords satisfy a keyword predicate.
type Keywords struct {
	predicate *keywords.Keywords
}

// NewKeywords returns a filter over the given predicate.
func NewKeywords(predicate *keywords.Keywords) *Keywords {
	return &Keywords{predicate: predicate}
}

// Predicate returns the keyword predicate.
func (k *Keywords) Predicate() *keywords.Keywords {
	return k.predicate
}

// Name implements TestFilter.
func (k *Keywords) Name() string { return "keywords" }

// Description implements TestFilter.
func (k *Keywords) Description() string {
	return fmt.Sprintf("keywords match %s %q", k.predicate.Kind(), k.predicate.String())
}

// Reason implements TestFilter.
func (k *Keywords) Reason() string {
	return fmt.Sprintf("keywords do not match %q", k.predicate.String())
}

// Accepts implements TestFilter.
func (k *Keywords) Accepts(td *api.TestDescription) (bool, error) {
	return k.predicate.Accepts(td.Keywords), nil
}

// Equal implements Equaler.
func (k *Keywords) Equal(other TestFilter) bool {
	o, ok := other.(*Keywords)

	return ok && k.predicate.Equal(o.predicate)
}

// InitialURL accepts tests at or below any of a list of initial URLs. A test
// URL and an initial URL match when one is a prefix of the other and the
// character following the prefix in the longer one is '/' or '#'. Matching is
// case-insensitive. An empty list accepts every test.
type InitialURL struct {
	urls []string
}

// NewInitialURL returns a filter over the given URLs.
func NewInitialURL(urls ...string) *InitialURL {
	f := &InitialURL{}

	for _, u := range urls {
		u = strings.TrimRight(api.NormalizeURL(u), "/")
		if u == "" || u == "." {
			// The corpus root selects everything.
			return &InitialURL{}
		}

		f.urls = append(f.urls, u)
	}

	return f
}

// URLs returns the normalized initial URLs.
func (f *InitialURL) URLs() []string {
	return slices.Clone(f.urls)
}

// Name implements TestFilter.
func (f *InitialURL) Name() string { return "initial url" }

// Description implements TestFilter.
func (f *InitialURL) Description() string {
	if len(f.urls) == 0 {
		return "accept all tests"
	}

	return "tests at or below " + strings.Join(f.urls, ", ")
}

// Reason implements TestFilter.
func (f *InitialURL) Reason() string { return "not selected by initial urls" }

// Accepts implements TestFilter.
func (f *InitialURL) Accepts(td *api.TestDescription) (bool, error) {
	if len(f.urls) == 0 {
		return true, nil
	}

	url := td.RootRelativeURL()

	for _, initial := range f.urls {
		if segmentPrefixMatch(initial, url) {
			return true, nil
		}
	}

	return false, nil
}

// Equal implements Equaler.
func (f *InitialURL) Equal(other TestFilter) bool {
	o, ok := other.(*InitialURL)

	return ok && slices.Equal(f.urls, o.urls)
}

func segmentPrefixMatch(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}

	if !strings.EqualFold(a, b[:len(a)]) {
		return false
	}

	if len(a) == len(b) {
		return true
	}

	c := b[len(a)]

	return c == '/' || c == '#'
}
