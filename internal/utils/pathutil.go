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
package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExpandTilde replaces a leading "~" or "~/" with the user's home directory.
// Other paths, including "~user/...", are returned unchanged.
func ExpandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ExpandAbs returns the absolute form of path. It does not expand a tilde.
func ExpandAbs(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}

	return filepath.Abs(path)
}

// ExpandTildeAbs expands a leading tilde and returns the absolute path.
func ExpandTildeAbs(path string) (string, error) {
	expanded, err := ExpandTilde(path)
	if err != nil {
		return "", err
	}

	return ExpandAbs(expanded)
}

// ResolvePath makes a relative path relative to baseDir. Absolute paths,
// paths starting with a tilde and the empty path are returned unchanged, so
// that tilde expansion happens where the path is used.
func ResolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return path
	}

	return filepath.Join(baseDir, path)
}

// ValidateYAML checks that data is a YAML mapping, or empty.
func ValidateYAML(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	return nil
}
