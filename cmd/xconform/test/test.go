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
// Package test provides the test subcommand for the xconform tool.
package test

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	internalcfg "github.com/crossplane-contrib/xconform/internal/config"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/filter"
	"github.com/crossplane-contrib/xconform/internal/keywords"
	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/crossplane-contrib/xconform/internal/metrics"
	"github.com/crossplane-contrib/xconform/internal/testexecution/processor"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

const subsystem = "cmd.test"

// processTargetsFunc is swapped in tests.
//
//nolint:gochecknoglobals // Global variable for dependency injection in tests
var processTargetsFunc = processor.ProcessTargets

// Cmd represents the test subcommand.
type Cmd struct {
	Targets      []string            `arg:""                                                                                     help:"One or more test targets: individual files (e.g., 'tests/net_xconform.yaml'), directories (e.g., 'tests/net/'), or recursive directories (e.g., 'tests/net/...'). Files must be named 'xconform.yaml' or '*_xconform.yaml'" optional:""`
	Keywords     string              `help:"Only run tests whose keywords match this text."                                    short:"k"`
	KeywordsType string              `default:"expr"                                                                            help:"How --keywords is read: 'all of', 'any of' or 'expr'." name:"keywords-type"`
	URL          []string            `help:"Only run tests at or below these test URLs."                                       name:"url"`
	PriorStatus  []string            `help:"Only run tests whose recorded status is one of these (passed, failed, error, not-run)." name:"prior-status" sep:","`
	LastRunOnly  bool                `help:"Only run tests that finished during the last run."                                 name:"last-run-only"`
	ExcludeList  []string            `help:"Additional exclude list files."                                                    name:"exclude-list" type:"path"`
	Concurrency  int                 `help:"Number of tests to run at once. Overrides execution.concurrency."                   short:"j"`
	WorkDir      string              `help:"Directory holding recorded results. Overrides workDir."                           name:"work-dir" type:"path"`
	ClearResults bool                `help:"Remove recorded results and run history from the work directory before running."  name:"clear-results"`
	PoolRunner   bool                `help:"Run tests on the simpler errgroup pool (no grace period, no worker replacement)." hidden:"" name:"pool-runner"`
	MetricsAddr  string              `help:"Serve Prometheus metrics on this address while tests run (e.g. ':9090')."       name:"metrics-addr"`
	Verbose      bool                `help:"Show verbose test output and results (similar to go test -v)"                       short:"v"`
	Debug        bool                `help:"Show detailed debug information about test discovery, selection, and execution"`
	Config       *internalcfg.Config `kong:"-"`
	Context      context.Context     `kong:"-"`
	Signals      <-chan os.Signal    `kong:"-"`
	fs           afero.Fs
}

// AfterApply implements kong.AfterApply.
func (c *Cmd) AfterApply() error {
	c.fs = afero.NewOsFs()
	return nil
}

// Run executes the test subcommand.
func (c *Cmd) Run(_ *kong.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}

	if c.Config == nil {
		c.Config = &internalcfg.Config{}
	}

	if c.LastRunOnly && c.WorkDir == "" && c.Config.WorkDir == "" {
		utils.WarningPrintf("--last-run-only has no effect without a work directory.\n")
	}

	options, err := c.newOptions(c.Config)
	if err != nil {
		return err
	}

	var opts []processor.Option

	if c.Signals != nil {
		var (
			stop   <-chan struct{}
			cancel context.CancelCauseFunc
		)

		ctx, stop, cancel = watchSignals(ctx, c.Signals)
		defer cancel(nil)

		opts = append(opts, processor.WithStop(stop))
	}

	if c.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, processor.WithObserver(metrics.NewObserver(reg)))

		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			if err := metrics.Serve(metricsCtx, c.MetricsAddr, reg); err != nil {
				logging.Error(subsystem, err, "metrics server failed")
			}
		}()
	}

	// Process targets and run tests
	return processTargetsFunc(ctx, c.fs, c.Targets, options, opts...)
}

// newOptions creates a testexecutionUtils.Options struct from a Command and Config.
func (c *Cmd) newOptions(cfg *internalcfg.Config) (*testexecutionUtils.Options, error) {
	selection, err := c.newSelection(cfg)
	if err != nil {
		return nil, err
	}

	options := &testexecutionUtils.Options{
		Dependencies: cfg.Dependencies,
		Environment:  cfg.Environment,
		WorkDir:      cfg.WorkDir,
		Selection:    selection,
		ClearResults: c.ClearResults,
		PoolRunner:   c.PoolRunner,
		Verbose:      c.Verbose,
		Debug:        c.Debug,
	}

	if cfg.Execution != nil {
		options.Concurrency = cfg.Execution.Concurrency
		options.GracePeriod = cfg.Execution.GracePeriod.Duration
		options.ResourceTimeout = cfg.Execution.ResourceTimeout.Duration
		options.TimeoutFactor = cfg.Execution.TimeoutFactor
	}

	if c.Concurrency > 0 {
		options.Concurrency = c.Concurrency
	}

	if c.WorkDir != "" {
		options.WorkDir = c.WorkDir
	}

	return options, nil
}

// newSelection builds the selection parameters from the flags and the
// configured vocabulary and exclude lists.
func (c *Cmd) newSelection(cfg *internalcfg.Config) (filter.Parameters, error) {
	params := filter.Parameters{
		InitialURLs:    c.URL,
		KeywordsText:   c.Keywords,
		KeywordOptions: cfg.KeywordOptions(),
		LastRunOnly:    c.LastRunOnly,
	}

	if c.Keywords != "" {
		kind, err := keywords.ParseKind(c.KeywordsType)
		if err != nil {
			return params, fmt.Errorf("invalid --keywords-type: %w", err)
		}

		params.KeywordsKind = kind
	}

	for _, s := range c.PriorStatus {
		t, err := engine.ParseStatusType(s)
		if err != nil {
			return params, fmt.Errorf("invalid --prior-status: %w", err)
		}

		params.PriorStatus = append(params.PriorStatus, t)
	}

	lists, err := cfg.LoadExcludeLists(c.fs)
	if err != nil {
		return params, err
	}

	extra := &internalcfg.Config{ExcludeLists: c.ExcludeList}

	more, err := extra.LoadExcludeLists(c.fs)
	if err != nil {
		return params, err
	}

	params.ExcludeLists = append(lists, more...)

	return params, nil
}
