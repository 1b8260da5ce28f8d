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
	"errors"
	"testing"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/keywords"
	"github.com/stretchr/testify/assert"  //nolint:depguard // testify is widely used for testing
	"github.com/stretchr/testify/require" //nolint:depguard // testify is widely used for testing
	"k8s.io/apimachinery/pkg/util/sets"
)

type fakeHistory struct {
	results map[string]*engine.TestResult
	start   time.Time
}

func (h *fakeHistory) Lookup(td *api.TestDescription) (*engine.TestResult, bool) {
	r, ok := h.results[td.URL]
	return r, ok
}

func (h *fakeHistory) LastRunStart() (time.Time, bool) {
	return h.start, !h.start.IsZero()
}

type rejection struct {
	url    string
	filter TestFilter
}

func recorder(into *[]rejection) Observer {
	return ObserverFunc(func(td *api.TestDescription, by TestFilter) {
		*into = append(*into, rejection{url: td.URL, filter: by})
	})
}

// fixed accepts or rejects every test.
type fixed struct {
	name   string
	accept bool
}

func (f *fixed) Name() string                              { return f.name }
func (f *fixed) Description() string                       { return f.name }
func (f *fixed) Reason() string                            { return f.name + " rejected" }
func (f *fixed) Accepts(*api.TestDescription) (bool, error) { return f.accept, nil }

func desc(url string, words ...string) *api.TestDescription {
	return &api.TestDescription{URL: url, Keywords: sets.New(words...)}
}

func TestAllTests(t *testing.T) {
	ok, err := AllTests{}.Accepts(desc("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, Equal(AllTests{}, &AllTests{}))
}

func TestAcceptsHelper(t *testing.T) {
	var got []rejection

	reject := &fixed{name: "no", accept: false}

	ok, err := Accepts(reject, desc("a"), recorder(&got))
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, got, 1)
	assert.Same(t, reject, got[0].filter)

	ok, err = Accepts(reject, desc("a"), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, got, 1)
}

func TestComposite(t *testing.T) {
	yes := &fixed{name: "yes", accept: true}
	no := &fixed{name: "no", accept: false}

	t.Run("empty accepts everything", func(t *testing.T) {
		ok, err := NewComposite().Accepts(desc("a"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("conjunction", func(t *testing.T) {
		for _, tc := range []struct {
			f1, f2 TestFilter
			want   bool
		}{
			{yes, yes, true},
			{yes, no, false},
			{no, yes, false},
			{no, no, false},
		} {
			ok, err := NewComposite(tc.f1, tc.f2).Accepts(desc("a"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		}
	})

	t.Run("observer receives innermost rejecting filter", func(t *testing.T) {
		var got []rejection

		inner := NewComposite(yes, NewComposite(no))
		ok, err := Accepts(NewComposite(yes, inner), desc("a/b"), recorder(&got))

		require.NoError(t, err)
		assert.False(t, ok)
		require.Len(t, got, 1)
		assert.Same(t, no, got[0].filter)
		assert.Equal(t, "a/b", got[0].url)
	})

	t.Run("set equality", func(t *testing.T) {
		kw := NewKeywords(keywords.MustParse(keywords.AnyOf, "a b"))
		kwCopy := NewKeywords(keywords.MustParse(keywords.AnyOf, "B A"))

		assert.True(t, NewComposite(yes, kw).Equal(NewComposite(kwCopy, yes)))
		assert.True(t, NewComposite(yes, yes, kw).Equal(NewComposite(kw, yes)))
		assert.False(t, NewComposite(yes).Equal(NewComposite(no)))
		assert.False(t, NewComposite().Equal(yes))
	})

	t.Run("nil members are dropped", func(t *testing.T) {
		assert.Len(t, NewComposite(nil, yes).Filters(), 1)
	})
}

func TestKeywordsFilter(t *testing.T) {
	f := NewKeywords(keywords.MustParse(keywords.Expr, "network & !slow"))

	ok, _ := f.Accepts(desc("a", "network"))
	assert.True(t, ok)

	ok, _ = f.Accepts(desc("a", "network", "slow"))
	assert.False(t, ok)

	assert.Contains(t, f.Description(), "network & !slow")
	assert.False(t, f.Equal(NewKeywords(keywords.MustParse(keywords.Expr, "network"))))
}

func TestInitialURL(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		url     string
		want    bool
	}{
		{name: "exact", initial: []string{"a/b"}, url: "a/b", want: true},
		{name: "below", initial: []string{"a/b"}, url: "a/b/c", want: true},
		{name: "sibling with shared prefix", initial: []string{"a/b"}, url: "a/bc", want: false},
		{name: "test id fragment", initial: []string{"a/b.html"}, url: "a/b.html#tc1", want: true},
		{name: "initial below test", initial: []string{"a/b.html#tc1"}, url: "a/b.html", want: true},
		{name: "partial segment of initial", initial: []string{"foo/bar"}, url: "foo/ba", want: false},
		{name: "case insensitive", initial: []string{"A/B"}, url: "a/b/c", want: true},
		{name: "trailing slash", initial: []string{"a/b/"}, url: "a/b/c", want: true},
		{name: "any of several", initial: []string{"x", "a"}, url: "a/c", want: true},
		{name: "no urls", initial: nil, url: "anything", want: true},
		{name: "root", initial: []string{"."}, url: "anything", want: true},
		{name: "unrelated", initial: []string{"x/y"}, url: "a/b", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := NewInitialURL(tt.initial...).Accepts(desc(tt.url))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStatusFilter(t *testing.T) {
	history := &fakeHistory{results: map[string]*engine.TestResult{
		"passed": {Status: engine.StatusPassed("")},
		"failed": {Status: engine.StatusFailed("")},
		"bogus":  {Status: engine.Status{Type: engine.StatusType(99)}},
	}}

	f := NewStatus(history, engine.Failed, engine.Error)

	ok, err := f.Accepts(desc("failed"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Accepts(desc("passed"))
	require.NoError(t, err)
	assert.False(t, ok)

	var fault *Fault

	_, err = f.Accepts(desc("missing"))
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultNoPriorResult, fault.Kind)
	assert.Contains(t, err.Error(), "missing")

	_, err = f.Accepts(desc("bogus"))
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, FaultNoPriorStatus, fault.Kind)

	t.Run("results are inspected directly", func(t *testing.T) {
		var got []rejection

		r := engine.NewTestResult(desc("not-in-history"), false).Pass("")

		ok, err := AcceptsResult(f, r, recorder(&got))
		require.NoError(t, err)
		assert.False(t, ok)
		require.Len(t, got, 1)
		assert.Same(t, f, got[0].filter)
	})

	assert.True(t, f.Equal(NewStatus(history, engine.Error, engine.Failed)))
	assert.False(t, f.Equal(NewStatus(history, engine.Failed)))
}

func TestAcceptsResultDelegatesToDescription(t *testing.T) {
	f := NewInitialURL("a")

	ok, err := AcceptsResult(f, engine.NewTestResult(desc("a/b"), false), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = AcceptsResult(f, nil, nil)
	require.Error(t, err)
}

func TestLastRun(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 700*int(time.Millisecond), time.UTC)
	history := &fakeHistory{
		start: start,
		results: map[string]*engine.TestResult{
			"old":         {EndTime: start.Add(-time.Hour)},
			"same-second": {EndTime: start.Truncate(time.Second)},
			"new":         {EndTime: start.Add(time.Minute)},
		},
	}

	f := NewLastRun(history)

	for url, want := range map[string]bool{
		"old":         false,
		"same-second": true,
		"new":         true,
		"never-run":   true,
	} {
		ok, err := f.Accepts(desc(url))
		require.NoError(t, err)
		assert.Equal(t, want, ok, url)
	}

	var got []rejection

	_, _ = Accepts(f, desc("old"), recorder(&got))
	require.Len(t, got, 1)
	assert.Same(t, f, got[0].filter)

	ok, err := NewLastRun(&fakeHistory{}).Accepts(desc("old"))
	require.NoError(t, err)
	assert.True(t, ok, "no previous run accepts everything")
}

func TestSetEqual(t *testing.T) {
	a := &fixed{name: "a"}
	b := &fixed{name: "b"}

	assert.True(t, SetEqual(nil, nil))
	assert.True(t, SetEqual([]TestFilter{a, b}, []TestFilter{b, a}))
	assert.False(t, SetEqual([]TestFilter{a}, []TestFilter{a, b}))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}
