// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// TokenType classifies a lexical token.
type TokenType byte

// Token types produced by the lexer
const (
	Identifier TokenType = iota // mnemonic, label or register name
	Number                      // run of digits
	Comma                       // ,
	Newline                     // end of statement
	Hash                        // # immediate prefix
	Dollar                      // $ hexadecimal prefix
	Colon                       // : label suffix
	Comment                     // ; comment text (only when requested)
)

var tokenTypeNames = [...]string{
	Identifier: "identifier",
	Number:     "number",
	Comma:      "','",
	Newline:    "newline",
	Hash:       "'#'",
	Dollar:     "'$'",
	Colon:      "':'",
	Comment:    "comment",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", byte(t))
}

// A Token is a classified slice of assembly source.
type Token struct {
	Type TokenType
	Text []byte // source bytes matched by the token
	Line int    // 1-based line number
	Col  int    // 1-based column, with tab stops every 8 columns
}

func (t Token) String() string {
	if t.Type == Newline {
		return t.Type.String()
	}
	return fmt.Sprintf("%s %q", t.Type, t.Text)
}

// A lexer scans assembly source one token at a time.
type lexer struct {
	src          []byte
	pos          int
	line         int
	col          int // 0-based
	keepComments bool
	afterDollar  bool
}

// Lex scans assembly source into a token sequence. Bytes that start no
// token are skipped. Comments are dropped unless keepComments is set.
//
// A token starting with a decimal digit, or any token directly following
// '$', consumes a run of hexadecimal digits and is a Number. A token
// starting with a letter or underscore is an Identifier.
func Lex(src []byte, keepComments bool) []Token {
	l := &lexer{src: src, line: 1, keepComments: keepComments}
	var tokens []Token
	for {
		t, ok := l.next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, t)
	}
}

func (l *lexer) next() (Token, bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		afterDollar := l.afterDollar
		l.afterDollar = false

		switch {
		case whitespace(c):
			l.advance(1)

		case c == '\n':
			t := l.emit(Newline, 1)
			l.line++
			l.col = 0
			return t, true

		case comment(c):
			n := l.scanWhile(func(c byte) bool { return c != '\n' })
			if l.keepComments {
				return l.emit(Comment, n), true
			}
			l.advance(n)

		case c == '#':
			return l.emit(Hash, 1), true

		case c == '$':
			l.afterDollar = true
			return l.emit(Dollar, 1), true

		case c == ':':
			return l.emit(Colon, 1), true

		case c == ',':
			return l.emit(Comma, 1), true

		case decimal(c) || (afterDollar && hexadecimal(c)):
			return l.emit(Number, l.scanWhile(hexadecimal)), true

		case identifierStartChar(c):
			return l.emit(Identifier, l.scanWhile(identifierChar)), true

		default:
			l.advance(1)
		}
	}
	return Token{}, false
}

// Emit a token covering the next n bytes and consume them.
func (l *lexer) emit(typ TokenType, n int) Token {
	t := Token{
		Type: typ,
		Text: l.src[l.pos : l.pos+n],
		Line: l.line,
		Col:  l.col + 1,
	}
	l.advance(n)
	return t
}

func (l *lexer) advance(n int) {
	for _, c := range l.src[l.pos : l.pos+n] {
		if c == '\t' {
			l.col += 8 - (l.col % 8)
		} else {
			l.col++
		}
	}
	l.pos += n
}

func (l *lexer) scanWhile(fn func(c byte) bool) int {
	i := l.pos
	for i < len(l.src) && fn(l.src[i]) {
		i++
	}
	return i - l.pos
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return (c >= '0' && c <= '9')
}

func comment(c byte) bool {
	return c == ';'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_'
}

func identifierChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_'
}
