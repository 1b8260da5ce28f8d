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
// Package main is the main package for the xconform-helpers tool.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/crossplane-contrib/xconform/cmd/xconform-helpers/keywords"
	"github.com/crossplane-contrib/xconform/cmd/xconform-helpers/status"
	"github.com/crossplane-contrib/xconform/cmd/xconform-helpers/version"
)

// CLI represents the command-line interface structure.
type CLI struct {
	Keywords keywords.Cmd `cmd:"" help:"List the tests of a corpus file selected by a keyword text."`
	Status   status.Cmd   `cmd:"" help:"Parse status texts and convert them to and from their recorded form."`
	Version  version.Cmd  `cmd:"" help:"Print the version of xconform-helpers"`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("xconform-helpers"),
		kong.Description("Helper utilities for writing and maintaining xconform corpora."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Summary: true,
		}),
	)

	// Run the selected command
	err := ctx.Run()
	if err != nil {
		ctx.Errorf("%v", err)
		os.Exit(1)
	}
}
