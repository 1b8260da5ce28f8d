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
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ExcludeEntry is one line of an exclude list.
type ExcludeEntry struct {
	URL       string
	TestCases []string
	BugIDs    []string
	Platforms []string
	Synopsis  string
}

// ExcludeList rejects tests listed in one or more exclude list files.
//
// Each non-blank line that does not start with '#' has the form
//
//	url[tc1,tc2] bugid,... platform,... synopsis
//
// where the test case list is optional. A test is excluded only when it is
// listed without a test case list; test cases are left to the test itself.
type ExcludeList struct {
	entries map[string]*ExcludeEntry
}

// NewExcludeList returns an exclude list holding the given entries.
func NewExcludeList(entries ...ExcludeEntry) *ExcludeList {
	l := &ExcludeList{entries: map[string]*ExcludeEntry{}}
	for _, e := range entries {
		l.add(e)
	}

	return l
}

// LoadExcludeList reads an exclude list file.
func LoadExcludeList(fs afero.Fs, path string) (*ExcludeList, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclude list: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return ParseExcludeList(f, path)
}

// ParseExcludeList parses exclude list text. name is used in faults.
func ParseExcludeList(r io.Reader, name string) (*ExcludeList, error) {
	l := NewExcludeList()
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		entry, detail := parseExcludeLine(text)
		if detail != "" {
			return nil, &Fault{Kind: FaultBadExcludeList, Filter: "exclude list", File: name, Line: line, Detail: detail}
		}

		l.add(entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exclude list %s: %w", name, err)
	}

	return l, nil
}

func parseExcludeLine(text string) (ExcludeEntry, string) {
	fields := strings.Fields(text)

	var entry ExcludeEntry

	target := fields[0]
	if open := strings.IndexByte(target, '['); open >= 0 {
		if !strings.HasSuffix(target, "]") {
			return entry, fmt.Sprintf("unterminated test case list in %q", target)
		}

		entry.TestCases = splitList(target[open+1 : len(target)-1])
		if len(entry.TestCases) == 0 {
			return entry, fmt.Sprintf("empty test case list in %q", target)
		}

		target = target[:open]
	}

	entry.URL = api.NormalizeURL(target)
	if entry.URL == "" {
		return entry, "missing test url"
	}

	if len(fields) > 1 {
		entry.BugIDs = splitList(fields[1])
	}

	if len(fields) > 2 {
		entry.Platforms = splitList(fields[2])
	}

	if len(fields) > 3 {
		entry.Synopsis = strings.Join(fields[3:], " ")
	}

	return entry, ""
}

func splitList(s string) []string {
	var out []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// add merges e into the list. A whole-test entry wins over test case entries
// for the same URL.
func (l *ExcludeList) add(e ExcludeEntry) {
	e.URL = api.NormalizeURL(e.URL)

	existing, ok := l.entries[e.URL]
	if !ok {
		l.entries[e.URL] = &e
		return
	}

	if len(existing.TestCases) == 0 || len(e.TestCases) == 0 {
		existing.TestCases = nil
	} else {
		existing.TestCases = sets.List(sets.New(existing.TestCases...).Insert(e.TestCases...))
	}

	existing.BugIDs = sets.List(sets.New(existing.BugIDs...).Insert(e.BugIDs...))
	existing.Platforms = sets.List(sets.New(existing.Platforms...).Insert(e.Platforms...))

	if existing.Synopsis == "" {
		existing.Synopsis = e.Synopsis
	}
}

// MergeExcludeLists returns a new list holding the entries of all lists.
func MergeExcludeLists(lists ...*ExcludeList) *ExcludeList {
	merged := NewExcludeList()

	for _, l := range lists {
		if l == nil {
			continue
		}

		for _, url := range slices.Sorted(maps.Keys(l.entries)) {
			merged.add(*l.entries[url])
		}
	}

	return merged
}

// Len returns the number of listed URLs.
func (l *ExcludeList) Len() int {
	return len(l.entries)
}

// Entry returns the entry for a URL.
func (l *ExcludeList) Entry(url string) (ExcludeEntry, bool) {
	e, ok := l.entries[api.NormalizeURL(url)]
	if !ok {
		return ExcludeEntry{}, false
	}

	return *e, true
}

// ExcludesAll reports whether the whole test is excluded.
func (l *ExcludeList) ExcludesAll(url string) bool {
	e, ok := l.entries[api.NormalizeURL(url)]

	return ok && len(e.TestCases) == 0
}

// Name implements TestFilter.
func (l *ExcludeList) Name() string { return "exclude list" }

// Description implements TestFilter.
func (l *ExcludeList) Description() string {
	return fmt.Sprintf("tests not in an exclude list of %d entries", len(l.entries))
}

// Reason implements TestFilter.
func (l *ExcludeList) Reason() string { return "test is in an exclude list" }

// Accepts implements TestFilter.
func (l *ExcludeList) Accepts(td *api.TestDescription) (bool, error) {
	return !l.ExcludesAll(td.RootRelativeURL()), nil
}

// Equal implements Equaler.
func (l *ExcludeList) Equal(other TestFilter) bool {
	o, ok := other.(*ExcludeList)
	if !ok {
		return false
	}

	return maps.EqualFunc(l.entries, o.entries, func(a, b *ExcludeEntry) bool {
		return slices.Equal(a.TestCases, b.TestCases) &&
			slices.Equal(a.BugIDs, b.BugIDs) &&
			slices.Equal(a.Platforms, b.Platforms) &&
			a.Synopsis == b.Synopsis
	})
}
