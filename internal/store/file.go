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

package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/engine"
	"github.com/crossplane-contrib/xconform/internal/logging"
	"github.com/spf13/afero"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"
)

const (
	resultsDir  = "results"
	runFile     = "runs.yaml"
	resultExt   = ".yaml"
	filePerm    = 0o644
	dirPerm     = 0o755
	timeLayout  = time.RFC3339Nano
	traceMaxLen = 64 * 1024
)

// resultDocument is the on-disk form of one result. Status holds the status
// text with its reason encoded as printable ASCII.
type resultDocument struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime,omitempty"`
	Trace     string `json:"trace,omitempty"`
}

type runsDocument struct {
	LastRunStart    string `json:"lastRunStart,omitempty"`
	CurrentRunStart string `json:"currentRunStart,omitempty"`
	Runs            int    `json:"runs"`
}

// File is a Memory store that also writes every result as a YAML document
// under workDir on fs. Existing documents are loaded by OpenFile.
type File struct {
	*Memory

	fs      afero.Fs
	workDir string
}

// OpenFile opens the store rooted at workDir, creating it if needed, and
// loads previously recorded results. Unreadable documents are skipped with a
// warning.
func OpenFile(fs afero.Fs, workDir string) (*File, error) {
	f := &File{Memory: NewMemory(), fs: fs, workDir: workDir}

	if err := fs.MkdirAll(filepath.Join(workDir, resultsDir), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create result directory: %w", err)
	}

	runs, err := f.readRuns()
	if err != nil {
		return nil, err
	}

	results, err := f.readResults()
	if err != nil {
		return nil, err
	}

	f.restore(results, parseTime(runs.LastRunStart), parseTime(runs.CurrentRunStart), runs.Runs)
	logging.Debug(subsystem, "loaded %d results from %s", len(results), workDir)

	return f, nil
}

// BeginRun marks the start of a new run and persists the run history.
func (f *File) BeginRun(start time.Time) error {
	f.Memory.BeginRun(start)

	lastRun, current, count := f.runs()
	doc := runsDocument{Runs: count, CurrentRunStart: formatTime(current)}

	if count > 1 {
		doc.LastRunStart = formatTime(lastRun)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode run history: %w", err)
	}

	if err := afero.WriteFile(f.fs, filepath.Join(f.workDir, runFile), data, filePerm); err != nil {
		return fmt.Errorf("failed to write run history: %w", err)
	}

	return nil
}

// Record implements runner.ResultStore. The result is kept in memory even
// when writing it fails.
func (f *File) Record(result *engine.TestResult) error {
	_ = f.Memory.Record(result)

	doc := resultDocument{
		URL:       result.URL(),
		Status:    encodeStatus(result.Status),
		StartTime: formatTime(result.StartTime),
		EndTime:   formatTime(result.EndTime),
		Trace:     truncate(result.Trace, traceMaxLen),
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode result of %s: %w", doc.URL, err)
	}

	if err := afero.WriteFile(f.fs, f.path(doc.URL), data, filePerm); err != nil {
		return fmt.Errorf("failed to write result of %s: %w", doc.URL, err)
	}

	return nil
}

// Clear removes every recorded result and the run history.
func (f *File) Clear() error {
	var errs []error

	if err := f.fs.RemoveAll(filepath.Join(f.workDir, resultsDir)); err != nil {
		errs = append(errs, err)
	}

	if err := f.fs.Remove(filepath.Join(f.workDir, runFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}

	f.reset()

	if err := f.fs.MkdirAll(filepath.Join(f.workDir, resultsDir), dirPerm); err != nil {
		errs = append(errs, err)
	}

	return utilerrors.NewAggregate(errs)
}

func (f *File) path(testURL string) string {
	return filepath.Join(f.workDir, resultsDir, url.PathEscape(testURL)+resultExt)
}

func (f *File) readRuns() (runsDocument, error) {
	var doc runsDocument

	data, err := afero.ReadFile(f.fs, filepath.Join(f.workDir, runFile))
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}

	if err != nil {
		return doc, fmt.Errorf("failed to read run history: %w", err)
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse run history: %w", err)
	}

	return doc, nil
}

func (f *File) readResults() ([]*engine.TestResult, error) {
	entries, err := afero.ReadDir(f.fs, filepath.Join(f.workDir, resultsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var results []*engine.TestResult

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), resultExt) {
			continue
		}

		path := filepath.Join(f.workDir, resultsDir, entry.Name())

		r, err := f.readResult(path)
		if err != nil {
			logging.Warn(subsystem, "skipping %s: %v", path, err)
			continue
		}

		results = append(results, r)
	}

	return results, nil
}

func (f *File) readResult(path string) (*engine.TestResult, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, err
	}

	var doc resultDocument
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, err
	}

	if doc.URL == "" {
		return nil, errors.New("missing url")
	}

	status, err := decodeStatus(doc.Status)
	if err != nil {
		return nil, err
	}

	r := &engine.TestResult{
		Description: &api.TestDescription{URL: doc.URL},
		Status:      status,
		StartTime:   parseTime(doc.StartTime),
		EndTime:     parseTime(doc.EndTime),
		Trace:       doc.Trace,
	}

	if !r.EndTime.IsZero() {
		r.Duration = r.EndTime.Sub(r.StartTime)
	}

	return r, nil
}

func encodeStatus(s engine.Status) string {
	return engine.Status{Type: s.Type, Reason: engine.EncodeReason(s.Reason)}.String()
}

func decodeStatus(text string) (engine.Status, error) {
	s, err := engine.ParseStatus(text)
	if err != nil {
		return s, err
	}

	return engine.NewStatus(s.Type, engine.DecodeReason(s.Reason)), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
