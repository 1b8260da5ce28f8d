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

// Package keywords implements keyword predicates used to select tests by
// the keywords declared in their descriptions.
package keywords

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Kind selects how keyword text is interpreted.
type Kind int

const (
	// AllOf accepts a test that declares every listed keyword.
	AllOf Kind = iota
	// AnyOf accepts a test that declares at least one listed keyword.
	AnyOf
	// Expr evaluates a boolean expression built from keywords and the
	// operators '!', '&', '|' and parentheses.
	Expr
)

func (k Kind) String() string {
	switch k {
	case AllOf:
		return "all of"
	case AnyOf:
		return "any of"
	case Expr:
		return "expr"
	default:
		return "unknown"
	}
}

// ParseKind converts a user-supplied kind name. Spaces, hyphens and
// underscores are interchangeable and case is ignored.
func ParseKind(s string) (Kind, error) {
	normalized := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))

	switch normalized {
	case "allof", "all":
		return AllOf, nil
	case "anyof", "any":
		return AnyOf, nil
	case "expr", "expression":
		return Expr, nil
	default:
		return 0, &Fault{Kind: FaultBadKind, Text: s, Pos: -1, Token: s}
	}
}

type options struct {
	valid        sets.Set[string]
	allowNumeric bool
}

// Option configures Parse.
type Option func(*options)

// WithValidKeywords restricts the keywords that may appear in the text.
// Without it any keyword is accepted.
func WithValidKeywords(words ...string) Option {
	return func(o *options) {
		o.valid = sets.New[string]()
		for _, w := range words {
			o.valid.Insert(strings.ToLower(strings.TrimSpace(w)))
		}
	}
}

// WithNumericKeywords allows expression keywords to start with a digit.
func WithNumericKeywords(allow bool) Option {
	return func(o *options) {
		o.allowNumeric = allow
	}
}

// Keywords is an immutable predicate over a test's keyword set.
type Keywords struct {
	kind Kind
	set  sets.Set[string] // AllOf and AnyOf
	expr *node            // Expr
}

// Parse builds a predicate of the given kind from text. For AllOf and AnyOf
// the text is a whitespace-separated list. Keywords are case-insensitive.
// Problems with the text are reported as a *Fault.
func Parse(kind Kind, text string, opts ...Option) (*Keywords, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case AllOf, AnyOf:
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return nil, &Fault{Kind: FaultNoKeywords, Text: text, Pos: -1}
		}

		set := sets.New[string]()

		for _, f := range fields {
			word := strings.ToLower(f)
			if o.valid != nil && !o.valid.Has(word) {
				return nil, &Fault{Kind: FaultInvalidKeyword, Text: text, Pos: strings.Index(text, f), Token: word}
			}

			set.Insert(word)
		}

		return &Keywords{kind: kind, set: set}, nil
	case Expr:
		expr, err := parseExpression(text, o)
		if err != nil {
			return nil, err
		}

		return &Keywords{kind: Expr, expr: expr}, nil
	default:
		return nil, &Fault{Kind: FaultBadKind, Text: text, Pos: -1, Token: kind.String()}
	}
}

// MustParse is like Parse but panics on error. It is intended for tests and
// package-level predicates built from constant text.
func MustParse(kind Kind, text string, opts ...Option) *Keywords {
	k, err := Parse(kind, text, opts...)
	if err != nil {
		panic(err)
	}

	return k
}

// Kind returns the kind the predicate was parsed as.
func (k *Keywords) Kind() Kind {
	return k.kind
}

// Accepts reports whether a test declaring the given keywords satisfies the
// predicate. A nil set is treated as empty.
func (k *Keywords) Accepts(keywords sets.Set[string]) bool {
	switch k.kind {
	case AllOf:
		for word := range k.set {
			if !keywords.Has(word) {
				return false
			}
		}

		return true
	case AnyOf:
		for word := range k.set {
			if keywords.Has(word) {
				return true
			}
		}

		return false
	case Expr:
		return k.expr.eval(keywords)
	default:
		return false
	}
}

// Words returns the sorted distinct keywords referenced by the predicate.
func (k *Keywords) Words() []string {
	if k.kind == Expr {
		set := sets.New[string]()
		k.expr.collect(set)

		return sets.List(set)
	}

	return sets.List(k.set)
}

// Equal reports structural equality. Two AllOf or AnyOf predicates are equal
// when they hold the same keyword set; two expressions are equal when their
// parse trees match, including parentheses.
func (k *Keywords) Equal(other *Keywords) bool {
	if k == nil || other == nil {
		return k == other
	}

	if k.kind != other.kind {
		return false
	}

	if k.kind == Expr {
		return k.expr.equal(other.expr)
	}

	return k.set.Equal(other.set)
}

// String renders the predicate in a canonical form that parses back to an
// equal predicate.
func (k *Keywords) String() string {
	if k.kind == Expr {
		return k.expr.String()
	}

	return strings.Join(sets.List(k.set), " ")
}
