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
	"fmt"
	"os"
)

// reportError prints a failure for target and returns it for tracking.
func reportError(target, failureReason string, err error) error {
	errorMsg := fmt.Sprintf("%s in %s: %v", failureReason, target, err)
	fmt.Fprintf(os.Stderr, "# %s\n%s\n", target, errorMsg)            //nolint:errcheck // output function
	fmt.Fprintf(os.Stderr, "FAIL\t%s\t[%s]\n", target, failureReason) //nolint:errcheck // output function

	return fmt.Errorf("%s", errorMsg)
}

// reportCorpusError prints a failure of a corpus file with the full error.
func reportCorpusError(corpusFile string, err error, failureReason string) error {
	errMsg := fmt.Sprintf("# %s\n%v", corpusFile, err)
	fmt.Fprintf(os.Stderr, "%s\n", errMsg)                                //nolint:errcheck // output function
	fmt.Fprintf(os.Stderr, "FAIL\t%s\t[%s]\n", corpusFile, failureReason) //nolint:errcheck // output function

	return fmt.Errorf("%s", errMsg)
}

// reportSkipped prints the go test style line for a target without tests.
func reportSkipped(target, reason string) {
	fmt.Fprintf(os.Stderr, "?   \t%s\t[%s]\n", target, reason) //nolint:errcheck // output function
}
