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
	"k8s.io/apimachinery/pkg/util/sets"
)

type nodeKind int

const (
	termNode nodeKind = iota
	notNode
	andNode
	orNode
	parenNode
)

// Binding strength of the binary operators. Terms, '!' and parentheses bind
// tighter than either.
const (
	precOr  = 0
	precAnd = 1
)

// node is an immutable expression tree node.
type node struct {
	kind        nodeKind
	key         string // termNode only
	left, right *node  // notNode and parenNode use left
}

func (n *node) eval(keywords sets.Set[string]) bool {
	switch n.kind {
	case termNode:
		return keywords.Has(n.key)
	case notNode:
		return !n.left.eval(keywords)
	case andNode:
		return n.left.eval(keywords) && n.right.eval(keywords)
	case orNode:
		return n.left.eval(keywords) || n.right.eval(keywords)
	case parenNode:
		return n.left.eval(keywords)
	default:
		return false
	}
}

func (n *node) equal(o *node) bool {
	if n == nil || o == nil {
		return n == o
	}

	return n.kind == o.kind && n.key == o.key && n.left.equal(o.left) && n.right.equal(o.right)
}

func (n *node) String() string {
	switch n.kind {
	case termNode:
		return n.key
	case notNode:
		return "!" + n.left.String()
	case andNode:
		return n.left.String() + " & " + n.right.String()
	case orNode:
		return n.left.String() + " | " + n.right.String()
	case parenNode:
		return "(" + n.left.String() + ")"
	default:
		return ""
	}
}

func (n *node) collect(into sets.Set[string]) {
	if n == nil {
		return
	}

	if n.kind == termNode {
		into.Insert(n.key)
	}

	n.left.collect(into)
	n.right.collect(into)
}

// parser is a precedence-climbing parser over a token slice:
//
//	expr := term (('&' | '|') term)*
//	term := ID | '!' term | '(' expr ')'
type parser struct {
	text   string
	tokens []token
	pos    int
	valid  sets.Set[string]
}

func parseExpression(text string, opts options) (*node, error) {
	tokens, err := tokenize(text, opts.allowNumeric)
	if err != nil {
		return nil, err
	}

	p := &parser{text: text, tokens: tokens, valid: opts.valid}

	if p.peek().kind == tokEOF {
		return nil, &Fault{Kind: FaultNoKeywords, Text: text, Pos: -1}
	}

	expr, err := p.parseExpr(precOr)
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &Fault{Kind: FaultTrailingToken, Text: text, Pos: tok.pos, Token: tok.text}
	}

	return expr, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

// parseExpr parses binary operators binding at least as tightly as minPrec.
// The right operand is parsed at prec+1, so equal precedence associates left.
func (p *parser) parseExpr(minPrec int) (*node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		var (
			kind nodeKind
			prec int
		)

		switch p.peek().kind {
		case tokAnd:
			kind, prec = andNode, precAnd
		case tokOr:
			kind, prec = orNode, precOr
		default:
			return left, nil
		}

		if prec < minPrec {
			return left, nil
		}

		p.next()

		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}

		left = &node{kind: kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (*node, error) {
	tok := p.next()

	switch tok.kind {
	case tokID:
		if p.valid != nil && !p.valid.Has(tok.text) {
			return nil, &Fault{Kind: FaultInvalidKeyword, Text: p.text, Pos: tok.pos, Token: tok.text}
		}

		return &node{kind: termNode, key: tok.text}, nil
	case tokNot:
		operand, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		return &node{kind: notNode, left: operand}, nil
	case tokLParen:
		inner, err := p.parseExpr(precOr)
		if err != nil {
			return nil, err
		}

		if closing := p.next(); closing.kind != tokRParen {
			return nil, &Fault{Kind: FaultRightParenExpected, Text: p.text, Pos: closing.pos, Token: closing.text}
		}

		return &node{kind: parenNode, left: inner}, nil
	default:
		return nil, &Fault{Kind: FaultTermExpected, Text: p.text, Pos: tok.pos, Token: tok.text}
	}
}
