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
	"regexp"
	"strings"
)

// Run commands may hold text/template actions such as {{ .Test.URL }}. An
// unquoted "{{" opens a flow mapping in YAML, so a corpus file has its
// actions swapped for markers before it is parsed. The executor restores
// them before rendering the command.
const (
	actionOpen  = "__XCONFORM_ACTION("
	actionClose = ")__"
)

//nolint:gochecknoglobals // compiled once
var (
	actionPattern  = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)
	actionRestorer = strings.NewReplacer(actionOpen, "{{ ", actionClose, " }}")
)

// ProtectActions replaces every template action in content with a marker
// that YAML reads as plain text.
func ProtectActions(content string) string {
	if !strings.Contains(content, "{{") {
		return content
	}

	return actionPattern.ReplaceAllString(content, actionOpen+"${1}"+actionClose)
}

// RestoreActions turns the markers left by ProtectActions back into actions.
func RestoreActions(command string) string {
	return actionRestorer.Replace(command)
}

// HasActions reports whether command holds template actions, protected or
// not.
func HasActions(command string) bool {
	return strings.Contains(command, actionOpen) || strings.Contains(command, "{{")
}
