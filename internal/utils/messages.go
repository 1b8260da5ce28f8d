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

// Package utils provides helpers shared by the xconform commands and packages.
package utils

import (
	"fmt"
	"os"

	"github.com/gonvenience/bunt"
)

// OutputPrintf prints a message to stdout.
func OutputPrintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...) //nolint:errcheck // output function, error handling not practical
}

// DebugPrintf prints a debug message to stderr, prefixed with "DEBUG: ".
func DebugPrintf(format string, args ...interface{}) {
	printPrefixed(bunt.Sprintf("Gray{DEBUG:}"), format, args...)
}

// WarningPrintf prints a warning message to stderr, prefixed with "WARNING: ".
func WarningPrintf(format string, args ...interface{}) {
	printPrefixed(bunt.Sprintf("Yellow{WARNING:}"), format, args...)
}

// ErrorPrintf prints an error message to stderr, prefixed with "ERROR: ".
func ErrorPrintf(format string, args ...interface{}) {
	printPrefixed(bunt.Sprintf("Red{ERROR:}"), format, args...)
}

// printPrefixed keeps user text out of bunt so markup characters in test names are printed verbatim.
func printPrefixed(prefix, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s", prefix, fmt.Sprintf(format, args...)) //nolint:errcheck // output function, error handling not practical
}
