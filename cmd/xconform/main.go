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
// Package main is the main package for the xconform tool.
package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	checkCmd "github.com/crossplane-contrib/xconform/cmd/xconform/check"
	configCmd "github.com/crossplane-contrib/xconform/cmd/xconform/config"
	"github.com/crossplane-contrib/xconform/cmd/xconform/test"
	"github.com/crossplane-contrib/xconform/cmd/xconform/version"
	internalConfig "github.com/crossplane-contrib/xconform/internal/config"
	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/spf13/afero"
)

// CLI represents the command-line interface.
type CLI struct {
	ConfigFile string        `default:"~/.config/xconform.yaml" help:"Path to xconform config file"        short:"c" type:"path"`
	LogLevel   string        `default:"warn"                    enum:"debug,info,warn,error"                help:"Minimum level of internal log entries written to stderr."`
	Check      checkCmd.Cmd  `cmd:""                            help:"Check dependencies and configuration"`
	Config     configCmd.Cmd `cmd:""                            help:"Show xconform configuration"`
	Test       test.Cmd      `cmd:""                            help:"Run conformance tests"`
	Version    version.Cmd   `cmd:""                            help:"Print the version of xconform"`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("xconform"),
		kong.Description("A conformance test harness."),
		kong.UsageOnError(),
	)

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logging.InitForCLI(level, os.Stderr)

	configPath := cli.ConfigFile
	fs := afero.NewOsFs()

	cfg, err := internalConfig.Load(fs, configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			configPath = ""

			cfg, err = internalConfig.Fallback()
			if err != nil {
				log.Fatalf("%v", err)
			}
		} else {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	// The first interrupt stops the run after running tests finish, the
	// second aborts it.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	// Set config in the command structs
	cli.Check.Config = cfg
	cli.Check.ConfigPath = configPath
	cli.Config.Config = cfg
	cli.Config.ConfigPath = configPath
	cli.Test.Config = cfg
	cli.Test.Signals = signals

	// Run the selected command
	err = ctx.Run()
	if err != nil {
		signal.Stop(signals)
		log.Fatalf("%v", err)
	}
}
