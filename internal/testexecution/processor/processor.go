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

package processor

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/filter"
	"github.com/crossplane-contrib/xconform/internal/resource"
	"github.com/crossplane-contrib/xconform/internal/store"
	"github.com/crossplane-contrib/xconform/internal/testexecution/executor"
	"github.com/crossplane-contrib/xconform/internal/testexecution/runner"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/gertd/go-pluralize"
	"github.com/spf13/afero"
)

// runnerInterface allows dependency injection for test runners (for production and testing).
type runnerInterface interface {
	Run(ctx context.Context, tests iter.Seq[*api.TestDescription]) (bool, error)
	Stop()
	Progress() runner.Progress
}

// ErrStopped is returned by ProcessTargets when a stop was requested before
// every test ran.
var ErrStopped = errors.New("test run stopped")

// resultStore is what the processor needs from a result store.
type resultStore interface {
	filter.RunHistory
	runner.ResultStore
}

// Mockable functions
//
//nolint:gochecknoglobals // Global variables for dependency injection in tests
var (
	newRunnerFunc = func(options *testexecutionUtils.Options, exec runner.Executor, opts ...runner.Option) runnerInterface {
		if options.PoolRunner {
			return runner.NewPoolRunner(options, exec, opts...)
		}

		return runner.NewRunner(options, exec, opts...)
	}
	newExecutorFunc = func(options *testexecutionUtils.Options, table *resource.Table) runner.Executor {
		return executor.NewCommand(options, table)
	}
)

// Option customizes ProcessTargets.
type Option func(*session)

// WithObserver adds an observer that is notified about every run.
func WithObserver(obs runner.Observer) Option {
	return func(s *session) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// WithStop requests a cooperative stop once stop is closed: the current run
// dispatches no further tests, running tests finish and the remaining corpus
// files are skipped.
func WithStop(stop <-chan struct{}) Option {
	return func(s *session) {
		s.stop = stop
	}
}

// session holds what is shared by every corpus file of one invocation.
type session struct {
	fs        afero.Fs
	options   *testexecutionUtils.Options
	selection *filter.Parameter
	store     resultStore
	executor  runner.Executor
	observers []runner.Observer
	stop      <-chan struct{}
}

// ProcessTargets discovers the corpus files named by targets, selects their
// tests and runs them. A target is a directory, a corpus file, or a
// directory followed by "..." to include every directory below it.
//
// Cancelling ctx interrupts the current run and skips the remaining files.
//
//nolint:gocognit // Complex target processing with multiple validation and execution phases
func ProcessTargets(ctx context.Context, fs afero.Fs, targets []string, options *testexecutionUtils.Options, opts ...Option) error {
	s, err := newSession(fs, options, opts...)
	if err != nil {
		return err
	}

	var hasErrors bool

	for _, path := range targets {
		if s.halted(ctx) {
			break
		}

		if strings.HasSuffix(path, "...") {
			root := strings.TrimSuffix(path, "...")
			if strings.HasSuffix(root, string(filepath.Separator)) {
				root = strings.TrimSuffix(root, string(filepath.Separator))
			}

			if root == "" {
				root = "."
			}

			dirs, err := recursiveDirs(fs, root)
			if err != nil {
				_ = reportError(root, "failed to find corpus files", err)
				hasErrors = true

				continue
			}

			for _, dir := range dirs {
				if s.halted(ctx) {
					break
				}

				if err := s.processDirectory(ctx, dir); err != nil {
					hasErrors = true
				}
			}

			continue
		}

		info, err := fs.Stat(path)
		if errors.Is(err, iofs.ErrNotExist) {
			if options.Debug {
				utils.DebugPrintf("Skipping test path %s because it does not exist\n", path)
			}

			continue
		}

		if err != nil {
			_ = reportError(path, "failed to access test path", err)
			hasErrors = true

			continue
		}

		if info.IsDir() {
			if err := s.processDirectory(ctx, path); err != nil {
				hasErrors = true
			}

			continue
		}

		if !isValidCorpusFileName(path) {
			if options.Debug {
				utils.DebugPrintf("Skipping file %s because it is not a valid corpus file. It should be named '%s' or end with '%s'\n", path, corpusFileName, corpusFileSuffix)
			}

			continue
		}

		if err := s.processCorpusFile(ctx, path); err != nil {
			hasErrors = true
		}
	}

	if ctx.Err() != nil {
		utils.OutputPrintf("FAIL\n")
		return fmt.Errorf("%w: %w", runner.ErrInterrupted, context.Cause(ctx))
	}

	if s.stopRequested() {
		utils.OutputPrintf("FAIL\n")
		return ErrStopped
	}

	if hasErrors {
		utils.OutputPrintf("FAIL\n")
		return fmt.Errorf("processing completed with errors")
	}

	return nil
}

// stopRequested reports whether the stop channel is closed.
func (s *session) stopRequested() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// halted reports whether no further corpus files should be processed.
func (s *session) halted(ctx context.Context) bool {
	return ctx.Err() != nil || s.stopRequested()
}

// stopOnRequest stops r when a stop is requested before done is closed.
func (s *session) stopOnRequest(r runnerInterface, done <-chan struct{}) {
	select {
	case <-s.stop:
		p := r.Progress()
		utils.WarningPrintf("Stopping: waiting for %s to finish (%d finished). Interrupt again to abort.\n",
			pluralize.NewClient().Pluralize("running test", p.Dispatched-p.Finished, true), p.Finished)

		r.Stop()
	case <-done:
	}
}

func newSession(fs afero.Fs, options *testexecutionUtils.Options, opts ...Option) (*session, error) {
	if options == nil {
		options = &testexecutionUtils.Options{}
	}

	st, err := openStore(fs, options.WorkDir, options.ClearResults, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	s := &session{
		fs:        fs,
		options:   options,
		selection: filter.NewParameter(st),
		store:     st,
		executor:  newExecutorFunc(options, resource.NewTable()),
	}

	for _, opt := range opts {
		opt(s)
	}

	if options.Debug {
		s.selection.AddObserver(filter.ChangeObserverFunc(func(f filter.TestFilter) {
			utils.DebugPrintf("Selecting tests: %s\n", f.Description())
		}))
	}

	if err := s.selection.Update(options.Selection); err != nil {
		return nil, fmt.Errorf("invalid test selection: %w", err)
	}

	return s, nil
}

// openStore opens the file store under workDir, or an in-memory store when
// workDir is empty, and begins a new run in it. With clear set, recorded
// results are removed first.
func openStore(fs afero.Fs, workDir string, clearResults bool, start time.Time) (resultStore, error) {
	if workDir == "" {
		m := store.NewMemory()
		m.BeginRun(start)

		return m, nil
	}

	dir, err := utils.ExpandTildeAbs(workDir)
	if err != nil {
		return nil, err
	}

	f, err := store.OpenFile(fs, dir)
	if err != nil {
		return nil, err
	}

	if clearResults {
		if err := f.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear results: %w", err)
		}

		utils.OutputPrintf("Cleared recorded results in %s\n", dir)
	}

	if err := f.BeginRun(start); err != nil {
		return nil, err
	}

	return f, nil
}

// processDirectory runs every corpus file found in dir, printing the go test style
// message if none are found.
func (s *session) processDirectory(ctx context.Context, dir string) error {
	if s.options.Debug {
		utils.DebugPrintf("Processing directory %s\n", dir)
	}

	files, err := findCorpusFiles(s.fs, dir)
	if err != nil {
		if strings.HasPrefix(err.Error(), "no corpus files found matching pattern") {
			reportSkipped(dir, "no corpus files")
			return nil
		}

		return reportError(dir, "failed to find corpus files", err)
	}

	if s.options.Debug {
		plural := pluralize.NewClient()
		utils.DebugPrintf("Found %s in directory %s\n", plural.Pluralize("corpus file", len(files), true), dir)
	}

	var hasErrors bool

	for _, corpusFile := range files {
		if s.halted(ctx) {
			break
		}

		if err := s.processCorpusFile(ctx, corpusFile); err != nil {
			hasErrors = true
		}
	}

	if hasErrors {
		return fmt.Errorf("errors occurred processing files in directory %s", dir)
	}

	return nil
}

// processCorpusFile loads a corpus file and runs its selected tests.
func (s *session) processCorpusFile(ctx context.Context, corpusFile string) error {
	if s.options.Debug {
		utils.DebugPrintf("Processing corpus file %s\n", corpusFile)
	}

	tds, err := LoadTests(s.fs, corpusFile)
	if err != nil {
		if errors.Is(err, errNoTestCases) {
			reportSkipped(corpusFile, "no test cases found")
			return nil
		}

		return reportCorpusError(corpusFile, err, "invalid corpus file")
	}

	rep := newReporter(corpusFile, s.options.Verbose)
	observers := append(runner.Observers{rep}, s.observers...)

	testRunner := newRunnerFunc(s.options, s.executor, runner.WithObserver(observers), runner.WithResultStore(s.store))

	runDone := make(chan struct{})
	go s.stopOnRequest(testRunner, runDone)

	allPassed, runErr := testRunner.Run(ctx, s.selected(tds))
	close(runDone)

	rr := rep.result.Complete()

	if runErr == nil && rr.Total() == 0 {
		reportSkipped(corpusFile, "no tests selected")
		return nil
	}

	rr.Print(rep.out)

	if runErr != nil {
		return reportCorpusError(corpusFile, runErr, "corpus file execution error")
	}

	if !allPassed {
		return fmt.Errorf("tests failed in corpus file %s", corpusFile)
	}

	return nil
}

// selected yields the tests accepted by the selection. Tests the selection
// cannot decide on are skipped with a warning.
func (s *session) selected(tds []*api.TestDescription) iter.Seq[*api.TestDescription] {
	var rejections filter.Observer

	if s.options.Debug {
		rejections = filter.ObserverFunc(func(td *api.TestDescription, by filter.TestFilter) {
			utils.DebugPrintf("Skipping test %s: %s (%s)\n", td.URL, by.Reason(), by.Name())
		})
	}

	return func(yield func(*api.TestDescription) bool) {
		for _, td := range tds {
			if s.stopRequested() {
				return
			}

			ok, err := s.selection.AcceptsObserved(td, rejections)
			if err != nil {
				utils.WarningPrintf("Skipping test %s: %v\n", td.URL, err)
				continue
			}

			if ok && !yield(td) {
				return
			}
		}
	}
}
