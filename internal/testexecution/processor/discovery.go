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

// Package processor discovers corpus files, selects their tests and runs them.
package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	corpusFileName   = "xconform.yaml"
	corpusFileSuffix = "_" + corpusFileName
)

// recursiveDirs recursively collects all directories under a root.
func recursiveDirs(fs afero.Fs, root string) ([]string, error) {
	var dirs []string

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			dirs = append(dirs, path)
		}

		return nil
	})

	return dirs, err
}

// findCorpusFiles finds all corpus files matching the given pattern.
func findCorpusFiles(fs afero.Fs, pattern string) ([]string, error) {
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to match pattern %s: %w", pattern, err)
	}

	var files []string

	for _, match := range matches {
		info, err := fs.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file %s: %w", match, err)
		}

		if !info.IsDir() {
			// Files must be named "xconform.yaml" or end with "_xconform.yaml"
			if !isValidCorpusFileName(match) {
				continue
			}

			files = append(files, match)

			continue
		}

		allMatches, err := afero.Glob(fs, filepath.Join(match, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to match pattern in directory %s: %w", match, err)
		}

		for _, fileMatch := range allMatches {
			if isValidCorpusFileName(fileMatch) {
				files = append(files, fileMatch)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no corpus files found matching pattern %s", pattern)
	}

	return files, nil
}

// isValidCorpusFileName reports whether filename is "xconform.yaml" or
// "<name>_xconform.yaml" with a non-empty name.
func isValidCorpusFileName(filename string) bool {
	base := filepath.Base(filename)
	return base == corpusFileName || (strings.HasSuffix(base, corpusFileSuffix) && len(base) > len(corpusFileSuffix))
}
