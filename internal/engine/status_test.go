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

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"  //nolint:depguard // testify is widely used for testing
	"github.com/stretchr/testify/require" //nolint:depguard // testify is widely used for testing
)

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{"empty", "", ""},
		{"already normal", "exit code 1", "exit code 1"},
		{"leading and trailing whitespace", "  \texit code 1\n", "exit code 1"},
		{"internal runs", "exit   code\t\t1", "exit code 1"},
		{"newlines", "line one\nline two\r\nline three", "line one line two line three"},
		{"control characters", "bad\x01\x02char", "bad char"},
		{"only whitespace", " \n\t ", ""},
		{"non-ascii kept", "café  au lait", "café au lait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReason(tt.reason))
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Passed.", StatusPassed("").String())
	assert.Equal(t, "Failed. exit code 1", StatusFailed("exit  code 1").String())
	assert.Equal(t, "Error. no result", StatusError(" no result ").String())
	assert.Equal(t, "Not run. excluded", StatusNotRun("excluded").String())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Status
		wantErr bool
	}{
		{"passed without reason", "Passed.", StatusPassed(""), false},
		{"failed with reason", "Failed. exit code 1", StatusFailed("exit code 1"), false},
		{"error with padded reason", "  Error.   harness   crashed  ", StatusError("harness crashed"), false},
		{"not run", "Not run. excluded by filter", StatusNotRun("excluded by filter"), false},
		{"unknown prefix", "Exploded. boom", Status{}, true},
		{"prefix without separator", "Passed.yes", Status{}, true},
		{"empty", "", Status{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	reasons := []string{"", "ok", "  spaced   out  ", "multi\nline\treason", "unicode üñî", "emoji \U0001F600", `back\slash`}

	for ty := Passed; ty < NumStatusTypes; ty++ {
		for _, reason := range reasons {
			original := NewStatus(ty, reason)

			parsed, err := ParseStatus(original.String())
			require.NoError(t, err)
			assert.Equal(t, ty, parsed.Type)
			assert.Equal(t, NormalizeReason(reason), parsed.Reason)
		}
	}
}

func TestEncodeDecodeReason(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		encoded string
	}{
		{"plain ascii unchanged", "exit code 1", "exit code 1"},
		{"latin-1", "café", `caf\u00e9`},
		{"backslash", `a\b`, `a\u005cb`},
		{"newline", "a\nb", `a\u000ab`},
		{"supplementary plane", "\U0001F600", `\ud83d\ude00`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeReason(tt.in)
			assert.Equal(t, tt.encoded, enc)

			for _, r := range enc {
				assert.True(t, isPrintableASCII(r), "encoded text contains %q", r)
			}

			assert.Equal(t, tt.in, DecodeReason(enc))
		})
	}

	t.Run("malformed escape kept verbatim", func(t *testing.T) {
		assert.Equal(t, `\uzzzz and \u12`, DecodeReason(`\uzzzz and \u12`))
	})
}

func TestParseStatusType(t *testing.T) {
	for _, in := range []string{"PASSED", "passed", " Passed "} {
		got, err := ParseStatusType(in)
		require.NoError(t, err)
		assert.Equal(t, Passed, got)
	}

	got, err := ParseStatusType("not-run")
	require.NoError(t, err)
	assert.Equal(t, NotRun, got)

	_, err = ParseStatusType("skipped")
	assert.Error(t, err)
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "[✓]", StatusPassed("").Symbol())
	assert.Equal(t, "[x]", StatusFailed("").Symbol())
	assert.Equal(t, "[!]", StatusError("").Symbol())
	assert.Equal(t, "[s]", StatusNotRun("").Symbol())
	assert.Equal(t, "SKIP", StatusNotRun("").Short())
	assert.Equal(t, "StatusType(9)", StatusType(9).String())
	assert.Equal(t, "[?]", Status{Type: StatusType(-1)}.Symbol())
}
