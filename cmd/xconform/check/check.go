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
// Package check provides the check subcommand for the xconform tool.
package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	configtypes "github.com/crossplane-contrib/xconform/internal/config"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/spf13/afero"
)

// Cmd represents the check subcommand.
type Cmd struct {
	Config     *configtypes.Config `kong:"-"`
	ConfigPath string              `kong:"-"`
	fs         afero.Fs
}

// AfterApply implements kong.AfterApply.
func (c *Cmd) AfterApply() error {
	c.fs = afero.NewOsFs()
	return nil
}

// Run executes the check subcommand.
func (c *Cmd) Run(_ *kong.Context) error {
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}

	if c.ConfigPath == "" {
		utils.OutputPrintf("No configuration file provided, using detected dependencies\n")
	} else {
		utils.OutputPrintf("Configuration file: %s\n\n", c.ConfigPath)
	}

	if err := Config(c.fs, c.Config); err != nil {
		return err
	}

	utils.OutputPrintf("Configuration check successful\n")

	PrintConfig(c.Config)

	return nil
}

// Config runs every configuration check and combines their errors.
func Config(fs afero.Fs, cfg *configtypes.Config) error {
	// combine all error messages
	var allErrors []string

	if err := cfg.CheckDependencies(); err != nil {
		allErrors = append(allErrors, err.Error())
	}

	if err := cfg.CheckExecution(); err != nil {
		allErrors = append(allErrors, err.Error())
	}

	if err := cfg.CheckKeywords(); err != nil {
		allErrors = append(allErrors, err.Error())
	}

	if err := cfg.CheckExcludeLists(fs); err != nil {
		allErrors = append(allErrors, err.Error())
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("configuration check failed:\n%s", strings.Join(allErrors, "\n"))
	}

	return nil
}

// PrintConfig prints the sections of cfg that are set.
func PrintConfig(cfg *configtypes.Config) {
	utils.OutputPrintf("\nDependencies:\n")
	printMap(cfg.Dependencies)

	if e := cfg.Execution; e != nil && *e != (configtypes.Execution{}) {
		utils.OutputPrintf("\nExecution:\n")

		if e.Concurrency != 0 {
			utils.OutputPrintf("- concurrency: %d\n", e.Concurrency)
		}

		if e.GracePeriod.Duration != 0 {
			utils.OutputPrintf("- gracePeriod: %s\n", e.GracePeriod.Duration)
		}

		if e.ResourceTimeout.Duration != 0 {
			utils.OutputPrintf("- resourceTimeout: %s\n", e.ResourceTimeout.Duration)
		}

		if e.TimeoutFactor != 0 {
			utils.OutputPrintf("- timeoutFactor: %g\n", e.TimeoutFactor)
		}
	}

	if k := cfg.Keywords; k != nil && (len(k.Valid) > 0 || k.AllowNumeric) {
		utils.OutputPrintf("\nKeywords:\n")

		if len(k.Valid) > 0 {
			utils.OutputPrintf("- valid: %s\n", strings.Join(k.Valid, ", "))
		}

		utils.OutputPrintf("- allowNumeric: %t\n", k.AllowNumeric)
	}

	if len(cfg.ExcludeLists) > 0 {
		utils.OutputPrintf("\nExclude lists:\n")

		for _, path := range cfg.ExcludeLists {
			utils.OutputPrintf("- %s\n", path)
		}
	}

	if len(cfg.Environment) > 0 {
		utils.OutputPrintf("\nEnvironment:\n")
		printMap(cfg.Environment)
	}

	if cfg.WorkDir != "" {
		utils.OutputPrintf("\nWork directory: %s\n", cfg.WorkDir)
	}
}

func printMap(m map[string]string) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		utils.OutputPrintf("- %s: %s\n", name, m[name])
	}
}
