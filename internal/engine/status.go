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
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// StatusType is the outcome classification of a test.
type StatusType int

// The four outcome types, in their canonical order.
const (
	Passed StatusType = iota
	Failed
	Error
	NotRun
)

// NumStatusTypes is the number of status types, for arrays indexed by StatusType.
const NumStatusTypes = 4

var (
	statusTexts   = [NumStatusTypes]string{"Passed.", "Failed.", "Error.", "Not run."}
	statusNames   = [NumStatusTypes]string{"PASSED", "FAILED", "ERROR", "NOT_RUN"}
	statusSymbols = [NumStatusTypes]string{"[✓]", "[x]", "[!]", "[s]"}
	statusShort   = [NumStatusTypes]string{"PASS", "FAIL", "ERROR", "SKIP"}
)

// String returns the upper-case name of the type, e.g. NOT_RUN.
func (t StatusType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("StatusType(%d)", int(t))
	}

	return statusNames[t]
}

// Valid reports whether t is one of the four known types.
func (t StatusType) Valid() bool {
	return t >= Passed && t < NumStatusTypes
}

// ParseStatusType parses a status type name. Both the upper-case names (PASSED, NOT_RUN)
// and lower-case/hyphenated forms (passed, not-run) are accepted.
func ParseStatusType(s string) (StatusType, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for i, name := range statusNames {
		if norm == name {
			return StatusType(i), nil
		}
	}

	return 0, fmt.Errorf("unknown status type %q", s)
}

// Status is the outcome of a test: a type plus a normalized reason.
type Status struct {
	Type   StatusType
	Reason string
}

// NewStatus creates a status, normalizing the reason text.
func NewStatus(t StatusType, reason string) Status {
	return Status{Type: t, Reason: NormalizeReason(reason)}
}

// StatusPassed returns a PASSED status with the given reason.
func StatusPassed(reason string) Status { return NewStatus(Passed, reason) }

// StatusFailed returns a FAILED status with the given reason.
func StatusFailed(reason string) Status { return NewStatus(Failed, reason) }

// StatusError returns an ERROR status with the given reason.
func StatusError(reason string) Status { return NewStatus(Error, reason) }

// StatusNotRun returns a NOT_RUN status with the given reason.
func StatusNotRun(reason string) Status { return NewStatus(NotRun, reason) }

// IsPassed reports whether the status type is PASSED.
func (s Status) IsPassed() bool { return s.Type == Passed }

// Symbol returns the display symbol for the status.
func (s Status) Symbol() string {
	if !s.Type.Valid() {
		return "[?]"
	}

	return statusSymbols[s.Type]
}

// Short returns the go-test style word for the status (PASS, FAIL, ERROR, SKIP).
func (s Status) Short() string {
	if !s.Type.Valid() {
		return "UNKNOWN"
	}

	return statusShort[s.Type]
}

// String implements fmt.Stringer, e.g. "Failed. exit code 1".
func (s Status) String() string {
	text := "Unknown."
	if s.Type.Valid() {
		text = statusTexts[s.Type]
	}

	if s.Reason == "" {
		return text
	}

	return text + " " + s.Reason
}

// ParseStatus parses the output of Status.String.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for i, text := range statusTexts {
		if !strings.HasPrefix(s, text) {
			continue
		}

		rest := s[len(text):]
		if rest != "" && !unicode.IsSpace(rune(rest[0])) {
			continue
		}

		return NewStatus(StatusType(i), rest), nil
	}

	return Status{}, fmt.Errorf("invalid status text %q", s)
}

// NormalizeReason trims the reason, collapses whitespace runs to a single space
// and replaces other control characters with a space.
func NormalizeReason(reason string) string {
	var b strings.Builder

	pendingSpace := false

	for _, r := range reason {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			pendingSpace = b.Len() > 0
			continue
		}

		if pendingSpace {
			b.WriteByte(' ')

			pendingSpace = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

// EncodeReason escapes every character outside printable ASCII, and the backslash,
// as \uXXXX so the text survives transports that only carry ASCII.
func EncodeReason(s string) string {
	if !needsEncoding(s) {
		return s
	}

	var b strings.Builder

	for _, r := range s {
		if isPrintableASCII(r) && r != '\\' {
			b.WriteRune(r)
			continue
		}

		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)

			continue
		}

		fmt.Fprintf(&b, `\u%04x`, r)
	}

	return b.String()
}

// DecodeReason reverses EncodeReason. Malformed escapes are kept verbatim.
func DecodeReason(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}

	var (
		b     strings.Builder
		units []uint16
	)

	flush := func() {
		if len(units) > 0 {
			b.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}

	for i := 0; i < len(s); {
		if i+6 <= len(s) && s[i] == '\\' && s[i+1] == 'u' {
			if v, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
				units = append(units, uint16(v))
				i += 6

				continue
			}
		}

		flush()
		b.WriteByte(s[i])
		i++
	}

	flush()

	return b.String()
}

func needsEncoding(s string) bool {
	for _, r := range s {
		if !isPrintableASCII(r) || r == '\\' {
			return true
		}
	}

	return false
}

func isPrintableASCII(r rune) bool {
	return r >= 0x20 && r < 0x7f
}
