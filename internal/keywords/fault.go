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

package keywords

import "fmt"

// FaultKind identifies why a keyword predicate could not be built.
type FaultKind int

// Fault kinds reported by Parse.
const (
	FaultNoKeywords FaultKind = iota
	FaultInvalidKeyword
	FaultBadChar
	FaultTermExpected
	FaultRightParenExpected
	FaultTrailingToken
	FaultBadKind
)

// Fault is a problem with keyword text supplied by the user. It carries the
// context needed to render a message and is formatted only by Error.
type Fault struct {
	Kind  FaultKind
	Text  string // the full text being parsed
	Pos   int    // byte offset of the offending token, -1 if not applicable
	Token string // offending token or keyword
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultNoKeywords:
		return "no keywords specified"
	case FaultInvalidKeyword:
		return fmt.Sprintf("invalid keyword %q", f.Token)
	case FaultBadChar:
		return fmt.Sprintf("bad character %q at position %d in keyword expression %q", f.Token, f.Pos, f.Text)
	case FaultTermExpected:
		if f.Token == "" {
			return fmt.Sprintf("keyword expression %q ends where a keyword, '!' or '(' was expected", f.Text)
		}

		return fmt.Sprintf("expected a keyword, '!' or '(' at position %d in keyword expression %q, found %q", f.Pos, f.Text, f.Token)
	case FaultRightParenExpected:
		if f.Token == "" {
			return fmt.Sprintf("missing ')' at end of keyword expression %q", f.Text)
		}

		return fmt.Sprintf("expected ')' at position %d in keyword expression %q, found %q", f.Pos, f.Text, f.Token)
	case FaultTrailingToken:
		return fmt.Sprintf("unexpected %q at position %d after complete keyword expression %q", f.Token, f.Pos, f.Text)
	case FaultBadKind:
		return fmt.Sprintf("unknown keywords type %q", f.Token)
	default:
		return fmt.Sprintf("invalid keywords %q", f.Text)
	}
}
