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

// Package api provides the API type definitions and validation methods for test corpus files.
package api

import (
	"fmt"
	"slices"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"
)

// CorpusSpec represents the structure of a corpus YAML file used by xconform.
type CorpusSpec struct {
	Common Common     `json:"common"`
	Tests  []TestCase `json:"tests"`
}

// Common represents the configuration shared by every test case of a corpus file.
type Common struct {
	Keywords  []string        `json:"keywords,omitempty"`
	Resources []string        `json:"resources,omitempty"`
	Timeout   metav1.Duration `json:"timeout,omitempty"`
}

// TestCase represents a single test entry of a corpus file.
type TestCase struct {
	URL       string          `json:"url"`                 // Mandatory root-relative URL, the identity of the test
	Keywords  []string        `json:"keywords,omitempty"`  // Optional selection keywords
	Run       string          `json:"run"`                 // Mandatory shell command executing the test
	Resources []string        `json:"resources,omitempty"` // Optional shared resources used by the test
	Timeout   metav1.Duration `json:"timeout,omitempty"`   // Optional execution timeout
}

// HasCommon returns true if any common field is set.
func (c *CorpusSpec) HasCommon() bool {
	return len(c.Common.Keywords) > 0 || len(c.Common.Resources) > 0 || c.Common.Timeout.Duration > 0
}

// MergeCommon fills the fields the test case leaves empty from the common configuration.
// Keywords are the union of both lists.
func (tc *TestCase) MergeCommon(common Common) {
	if len(common.Keywords) > 0 {
		tc.Keywords = append(slices.Clone(common.Keywords), tc.Keywords...)
	}

	if len(tc.Resources) == 0 && len(common.Resources) > 0 {
		tc.Resources = slices.Clone(common.Resources)
	}

	if tc.Timeout.Duration == 0 {
		tc.Timeout = common.Timeout
	}
}

// CheckMandatoryFields checks that the test case has a URL and a run command.
func (tc *TestCase) CheckMandatoryFields() error {
	var missing []string

	if strings.TrimSpace(tc.URL) == "" {
		missing = append(missing, "url")
	}

	if strings.TrimSpace(tc.Run) == "" {
		missing = append(missing, "run")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing mandatory field(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

// CheckValidCorpusFile checks for missing mandatory fields and duplicate URLs.
func (c *CorpusSpec) CheckValidCorpusFile() error {
	var errs []string

	seen := make(map[string]int)

	for i := range c.Tests {
		tc := &c.Tests[i]
		if err := tc.CheckMandatoryFields(); err != nil {
			errs = append(errs, fmt.Sprintf("test %d: %v", i+1, err))
			continue
		}

		key := NormalizeURL(tc.URL)
		if first, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("test %d: duplicate url %q (first defined by test %d)", i+1, tc.URL, first))
			continue
		}

		seen[key] = i + 1
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}

	return nil
}

// TestDescription is the identity and selection metadata of one test.
// It is immutable once created; filters and runners only read it.
type TestDescription struct {
	URL       string
	Keywords  sets.Set[string]
	Run       string
	Resources []string
	Timeout   metav1.Duration
	Dir       string // directory of the corpus file, used as working directory
}

// NewTestDescription builds a description from a test case. The URL is normalized
// and keywords are lower-cased.
func NewTestDescription(tc TestCase, dir string) *TestDescription {
	kw := sets.New[string]()
	for _, k := range tc.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw.Insert(k)
		}
	}

	return &TestDescription{
		URL:       NormalizeURL(tc.URL),
		Keywords:  kw,
		Run:       tc.Run,
		Resources: slices.Clone(tc.Resources),
		Timeout:   tc.Timeout,
		Dir:       dir,
	}
}

// RootRelativeURL returns the URL used to identify the test.
func (td *TestDescription) RootRelativeURL() string {
	return td.URL
}

// HasKeyword reports whether the test carries the given keyword.
func (td *TestDescription) HasKeyword(k string) bool {
	return td.Keywords.Has(strings.ToLower(k))
}

// Equal reports whether two descriptions identify the same test.
func (td *TestDescription) Equal(other *TestDescription) bool {
	if td == nil || other == nil {
		return td == other
	}

	return td.URL == other.URL
}

// String implements fmt.Stringer.
func (td *TestDescription) String() string {
	return td.URL
}

// NormalizeURL converts backslashes to slashes and strips leading "./" and "/" segments.
func NormalizeURL(u string) string {
	u = strings.ReplaceAll(strings.TrimSpace(u), `\`, "/")
	for {
		switch {
		case strings.HasPrefix(u, "./"):
			u = u[2:]
		case strings.HasPrefix(u, "/"):
			u = u[1:]
		default:
			return u
		}
	}
}
