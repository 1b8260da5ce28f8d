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
// Package config provides the config subcommand for the xconform tool.
package config

import (
	"github.com/alecthomas/kong"
	"github.com/crossplane-contrib/xconform/cmd/xconform/check"
	internalcfg "github.com/crossplane-contrib/xconform/internal/config"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/spf13/afero"
)

// Cmd represents the config subcommand.
type Cmd struct {
	Check      bool                `help:"Check the configuration before printing it"`
	Config     *internalcfg.Config `kong:"-"`
	ConfigPath string              `kong:"-"`
	fs         afero.Fs
}

// AfterApply implements kong.AfterApply.
func (c *Cmd) AfterApply() error {
	c.fs = afero.NewOsFs()
	return nil
}

// Run executes the config subcommand.
func (c *Cmd) Run(_ *kong.Context) error {
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}

	if c.ConfigPath == "" {
		utils.OutputPrintf("No configuration file provided, using detected dependencies\n")
	} else {
		utils.OutputPrintf("Configuration file: %s\n", c.ConfigPath)
	}

	if c.Check {
		if err := check.Config(c.fs, c.Config); err != nil {
			return err
		}

		utils.OutputPrintf("Configuration check successful\n")
	}

	check.PrintConfig(c.Config)

	return nil
}
