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
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestExpandTilde(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		path string
		want string
	}{
		{path: "~/.config/xconform.yaml", want: "/home/tester/.config/xconform.yaml"},
		{path: "~", want: "/home/tester"},
		{path: "~other/lists/known.txt", want: "~other/lists/known.txt"},
		{path: "/var/lib/xconform/~/results", want: "/var/lib/xconform/~/results"},
		{path: "lists/known.txt", want: "lists/known.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ExpandTilde(tt.path)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no home directory", func(t *testing.T) {
		t.Setenv("HOME", "")

		_, err := ExpandTilde("~/.cache/xconform")
		assert.Error(t, err)

		_, err = ExpandTildeAbs("~/.cache/xconform")
		assert.Error(t, err)
	})
}

func TestExpandTildeAbs(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	relative, err := filepath.Abs("corpus/net")
	assert.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "default work directory", path: "~/.cache/xconform", want: "/home/tester/.cache/xconform"},
		{name: "absolute path is cleaned", path: "/srv/corpus/../results", want: "/srv/results"},
		{name: "relative to the working directory", path: "corpus/net", want: relative},
		{name: "empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTildeAbs(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative exclude list", path: "lists/known.txt", want: "/etc/xconform/lists/known.txt"},
		{name: "parent directory", path: "../shared/known.txt", want: "/etc/shared/known.txt"},
		{name: "absolute", path: "/srv/lists/known.txt", want: "/srv/lists/known.txt"},
		{name: "tilde is kept for later expansion", path: "~/lists/known.txt", want: "~/lists/known.txt"},
		{name: "empty", path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath("/etc/xconform", tt.path))
		})
	}
}

func TestValidateYAML(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "corpus file", data: "tests:\n- url: net/Basic.html\n  run: ./basic.sh\n"},
		{name: "empty document", data: ""},
		{name: "unterminated flow sequence", data: "keywords: [network", wantErr: true},
		{name: "top level sequence", data: "- url: net/Basic.html\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYAML([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
