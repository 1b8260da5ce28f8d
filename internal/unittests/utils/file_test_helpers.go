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
// Package utils from internal/unittests provides helper functions for unit tests.
package utils

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTestFile writes content to path with mode perm, creating missing
// parent directories, and returns path.
func WriteTestFile(t *testing.T, path, content string, perm os.FileMode) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}

	// WriteFile leaves the mode of an existing file alone and applies umask.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Failed to set mode of %s: %v", path, err)
	}

	return path
}

// WriteScript writes an executable sh script with body to dir/name and
// returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	return WriteTestFile(t, filepath.Join(dir, name), "#!/bin/sh\n"+body+"\n", 0o755)
}
