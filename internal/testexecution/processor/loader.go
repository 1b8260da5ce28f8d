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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/crossplane-contrib/xconform/internal/api"
	testexecutionUtils "github.com/crossplane-contrib/xconform/internal/testexecution/utils"
	"github.com/crossplane-contrib/xconform/internal/utils"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var errNoTestCases = errors.New("no test cases found")

// load loads a single corpus file. Template actions in it are protected so
// that they survive YAML parsing.
func load(fs afero.Fs, path string) (*api.CorpusSpec, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}

	content := testexecutionUtils.ProtectActions(string(data))

	if err := utils.ValidateYAML([]byte(content)); err != nil {
		return nil, fmt.Errorf("invalid YAML in corpus file %s: %w", path, err)
	}

	var corpus api.CorpusSpec
	if err := yaml.UnmarshalStrict([]byte(content), &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}

	if len(corpus.Tests) == 0 {
		return nil, fmt.Errorf("%w in corpus file %s", errNoTestCases, path)
	}

	return &corpus, nil
}

// descriptions builds the test descriptions of a validated corpus file.
// Common settings are merged into every test case and the working
// directory is the directory of the file.
func descriptions(corpusFile string, corpus *api.CorpusSpec) ([]*api.TestDescription, error) {
	dir, err := utils.ExpandAbs(filepath.Dir(corpusFile))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory of %s: %w", corpusFile, err)
	}

	tds := make([]*api.TestDescription, 0, len(corpus.Tests))

	for _, tc := range corpus.Tests {
		if corpus.HasCommon() {
			tc.MergeCommon(corpus.Common)
		}

		tds = append(tds, api.NewTestDescription(tc, dir))
	}

	return tds, nil
}

// LoadTests reads a corpus file and returns the descriptions of its tests in
// file order, before any selection.
func LoadTests(fs afero.Fs, corpusFile string) ([]*api.TestDescription, error) {
	corpus, err := load(fs, corpusFile)
	if err != nil {
		return nil, err
	}

	if err := corpus.CheckValidCorpusFile(); err != nil {
		return nil, err
	}

	return descriptions(corpusFile, corpus)
}
