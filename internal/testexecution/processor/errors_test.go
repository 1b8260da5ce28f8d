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
	"testing"

	unittestsUtils "github.com/crossplane-contrib/xconform/internal/unittests/utils"
	"github.com/stretchr/testify/assert" //nolint:depguard // testify is widely used for testing
)

func TestReportError(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		failureReason  string
		originalErr    error
		wantErr        string
		expectedStderr []string
	}{
		{
			name:          "missing target",
			target:        "corpus/net",
			failureReason: "failed to access test path",
			originalErr:   assert.AnError,
			wantErr:       "failed to access test path in corpus/net: assert.AnError general error for testing",
			expectedStderr: []string{
				"# corpus/net",
				"FAIL\tcorpus/net\t[failed to access test path]",
			},
		},
		{
			name:          "nil error",
			target:        "t",
			failureReason: "r",
			wantErr:       "r in t: <nil>",
			expectedStderr: []string{
				"# t\nr in t: <nil>",
				"FAIL\tt\t[r]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := unittestsUtils.CaptureStderr(func() {
				err := reportError(tt.target, tt.failureReason, tt.originalErr)
				assert.EqualError(t, err, tt.wantErr)
			})

			for _, want := range tt.expectedStderr {
				assert.Contains(t, stderr, want)
			}
		})
	}
}

func TestReportCorpusError(t *testing.T) {
	stderr := unittestsUtils.CaptureStderr(func() {
		err := reportCorpusError("net/socket_xconform.yaml", assert.AnError, "invalid corpus file")
		assert.EqualError(t, err, "# net/socket_xconform.yaml\nassert.AnError general error for testing")
	})

	assert.Contains(t, stderr, "# net/socket_xconform.yaml\nassert.AnError general error for testing")
	assert.Contains(t, stderr, "FAIL\tnet/socket_xconform.yaml\t[invalid corpus file]")
}

func TestReportSkipped(t *testing.T) {
	stderr := unittestsUtils.CaptureStderr(func() {
		reportSkipped("corpus/empty", "no corpus files")
	})

	assert.Equal(t, "?   \tcorpus/empty\t[no corpus files]\n", stderr)
}
