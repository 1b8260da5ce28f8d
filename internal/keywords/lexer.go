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

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokID
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits an expression into tokens. Identifiers are lower-cased.
// The returned slice always ends with a tokEOF token.
func tokenize(text string, allowNumeric bool) ([]token, error) {
	var tokens []token

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '&':
			tokens = append(tokens, token{kind: tokAnd, text: "&", pos: i})
			i += size
		case r == '|':
			tokens = append(tokens, token{kind: tokOr, text: "|", pos: i})
			i += size
		case r == '!':
			tokens = append(tokens, token{kind: tokNot, text: "!", pos: i})
			i += size
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i += size
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i += size
		case isIdentStart(r, allowNumeric):
			start := i
			i += size

			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isIdentPart(r) {
					break
				}

				i += size
			}

			tokens = append(tokens, token{kind: tokID, text: strings.ToLower(text[start:i]), pos: start})
		default:
			return nil, &Fault{Kind: FaultBadChar, Text: text, Pos: i, Token: string(r)}
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(text)}), nil
}

func isIdentStart(r rune, allowNumeric bool) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Nl, r) || (allowNumeric && unicode.IsDigit(r))
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Nl, unicode.Pc, unicode.Mn, unicode.Mc)
}
