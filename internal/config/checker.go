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

// Package config provides functions for loading and checking the configuration file of the xconform tool.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/crossplane-contrib/xconform/internal/filter"
	"github.com/crossplane-contrib/xconform/internal/keywords"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/spf13/afero"
)

// CheckDependency checks if a dependency is valid.
func CheckDependency(dep string) error {
	// Check for empty or whitespace-only command
	trimmed := strings.TrimSpace(dep)
	if trimmed == "" {
		return fmt.Errorf("empty command")
	}

	// Check for leading/trailing whitespace
	if trimmed != dep {
		return fmt.Errorf("%s not found in PATH", dep)
	}

	// Split command by spaces to handle subcommands
	cmdParts := strings.Fields(dep)
	if len(cmdParts) == 0 {
		return fmt.Errorf("empty command")
	}

	// Case 1: Absolute path - validate file exists and is executable
	if filepath.IsAbs(cmdParts[0]) {
		if info, err := os.Stat(cmdParts[0]); err != nil || info.Mode()&0o111 == 0 {
			return fmt.Errorf("path %s is not executable", cmdParts[0])
		}

		return nil
	}

	// Case 2: Command in PATH
	path, err := exec.LookPath(cmdParts[0])
	if err != nil {
		return fmt.Errorf("%s not found in PATH", cmdParts[0])
	}

	// Verify executable permissions
	if info, err := os.Stat(path); err != nil || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", cmdParts[0])
	}

	return nil
}

// CheckDependencies checks if all required dependencies are present and valid.
func (c *Config) CheckDependencies() error {
	mandatoryDeps := []string{ShellDependency}

	var (
		missingDeps []string
		invalidDeps []string
	)

	for _, dep := range mandatoryDeps {
		if _, exists := c.Dependencies[dep]; !exists {
			missingDeps = append(missingDeps, dep)
		}
	}

	for dep, value := range c.Dependencies {
		if err := CheckDependency(value); err != nil {
			invalidDeps = append(invalidDeps, fmt.Sprintf("%s: %v", dep, err))
		}
	}

	if len(missingDeps) > 0 || len(invalidDeps) > 0 {
		slices.Sort(invalidDeps)

		var err strings.Builder
		if len(missingDeps) > 0 {
			err.WriteString("missing mandatory dependencies: ")
			err.WriteString(strings.Join(missingDeps, ", "))
			err.WriteString("\n")
		}

		if len(invalidDeps) > 0 {
			err.WriteString("invalid dependencies:\n")
			err.WriteString(strings.Join(invalidDeps, "\n"))
		}

		return fmt.Errorf("%s", err.String())
	}

	return nil
}

// CheckExecution checks that the execution settings are in range.
func (c *Config) CheckExecution() error {
	if c.Execution == nil {
		return nil // execution section is optional
	}

	var errs []string

	if c.Execution.Concurrency < 0 {
		errs = append(errs, fmt.Sprintf("execution.concurrency must not be negative, got %d", c.Execution.Concurrency))
	}

	if c.Execution.GracePeriod.Duration < 0 {
		errs = append(errs, fmt.Sprintf("execution.gracePeriod must not be negative, got %s", c.Execution.GracePeriod.Duration))
	}

	if c.Execution.ResourceTimeout.Duration < 0 {
		errs = append(errs, fmt.Sprintf("execution.resourceTimeout must not be negative, got %s", c.Execution.ResourceTimeout.Duration))
	}

	if c.Execution.TimeoutFactor < 0 {
		errs = append(errs, fmt.Sprintf("execution.timeoutFactor must not be negative, got %g", c.Execution.TimeoutFactor))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid execution section:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

// CheckKeywords checks that every valid keyword could appear in a keyword
// expression on its own.
func (c *Config) CheckKeywords() error {
	if c.Keywords == nil {
		return nil
	}

	var errs []string

	for _, word := range c.Keywords.Valid {
		k, err := keywords.Parse(keywords.Expr, word, keywords.WithNumericKeywords(c.Keywords.AllowNumeric))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%q: %v", word, err))
			continue
		}

		if k.String() != strings.ToLower(strings.TrimSpace(word)) {
			errs = append(errs, fmt.Sprintf("%q: must be a single keyword", word))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid keywords:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

// CheckExcludeLists checks that every configured exclude list can be loaded.
func (c *Config) CheckExcludeLists(fs afero.Fs) error {
	_, err := c.LoadExcludeLists(fs)
	return err
}

// KeywordOptions returns the parse options matching the keywords section.
func (c *Config) KeywordOptions() []keywords.Option {
	if c.Keywords == nil {
		return nil
	}

	opts := []keywords.Option{keywords.WithNumericKeywords(c.Keywords.AllowNumeric)}
	if len(c.Keywords.Valid) > 0 {
		opts = append(opts, keywords.WithValidKeywords(c.Keywords.Valid...))
	}

	return opts
}

// LoadExcludeLists loads the configured exclude lists, reporting every list
// that fails at once.
func (c *Config) LoadExcludeLists(fs afero.Fs) ([]*filter.ExcludeList, error) {
	var (
		lists []*filter.ExcludeList
		errs  []string
	)

	for _, path := range c.ExcludeLists {
		expandedPath, err := utils.ExpandTildeAbs(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: failed to expand path: %v", path, err))
			continue
		}

		list, err := filter.LoadExcludeList(fs, expandedPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		lists = append(lists, list)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid exclude lists:\n%s", strings.Join(errs, "\n"))
	}

	return lists, nil
}
