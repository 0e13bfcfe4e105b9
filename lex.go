package main

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

const (
	EOF = "EOF" // synthetic, only produced by Parser lookahead past the end

	// Identifiers + literals
	IDENT = "IDENT" // x, printsum
	INT   = "INT"   // 12345
	TYPE  = "TYPE"  // i8 i16 i32 i64 u8 u16 u32 u64 bool

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LE     = "<="
	GE     = ">="

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	IF    = "IF"
	ELSE  = "ELSE"
	VAR   = "VAR"
	WHILE = "WHILE"
	FN    = "FN"
)

var keywordTokens = map[string]TokenType{
	"if":    IF,
	"else":  ELSE,
	"var":   VAR,
	"while": WHILE,
	"fn":    FN,
	"i8":    TYPE,
	"i16":   TYPE,
	"i32":   TYPE,
	"i64":   TYPE,
	"u8":    TYPE,
	"u16":   TYPE,
	"u32":   TYPE,
	"u64":   TYPE,
	"bool":  TYPE,
}

// Token is one lexed token. Line and Col are 1-based.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Col     int
}

// Lexer scans grapheme clusters, not bytes. The grammar only allows
// ASCII identifiers, but positions must stay correct when comments or
// whitespace contain wider clusters.
type Lexer struct {
	data []string
	pos  int
	line int
	col  int
}

func NewLexer(input string) *Lexer {
	var data []string
	gr := uniseg.NewGraphemes(input)
	for gr.Next() {
		data = append(data, gr.Str())
	}
	return &Lexer{data: data, line: 1, col: 1}
}

func isWhitespaceCluster(g string) bool {
	return g == " " || g == "\t"
}

func isNewlineCluster(g string) bool {
	return g == "\n" || g == "\r\n"
}

func isAlphabeticCluster(g string) bool {
	for _, r := range g {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isNumericCluster(g string) bool {
	for _, r := range g {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.data)
}

func (l *Lexer) peek(offset int) string {
	if l.pos+offset >= len(l.data) {
		return ""
	}
	return l.data[l.pos+offset]
}

func (l *Lexer) consume() string {
	g := l.data[l.pos]
	l.pos++

	if isNewlineCluster(g) {
		l.col = 1
		l.line++
	} else {
		l.col++
	}

	return g
}

func (l *Lexer) consumeWhile(cond func(string) bool) string {
	var sb strings.Builder
	for !l.eof() && cond(l.peek(0)) {
		sb.WriteString(l.consume())
	}
	return sb.String()
}

func (l *Lexer) skipWhitespace() {
	l.consumeWhile(func(g string) bool {
		return isWhitespaceCluster(g) || isNewlineCluster(g)
	})
}

// skipComments eats runs of #-to-end-of-line comments, including the
// whitespace between them, so the next cluster starts a real token.
func (l *Lexer) skipComments() {
	for !l.eof() && l.peek(0) == "#" {
		l.consumeWhile(func(g string) bool { return !isNewlineCluster(g) })
		if !l.eof() {
			l.consume() // the newline itself
		}
		l.skipWhitespace()
	}
}

func (l *Lexer) token(typ TokenType, literal string, line, col int) Token {
	return Token{Type: typ, Literal: literal, Line: line, Col: col}
}

func (l *Lexer) lexSingle(typ TokenType) Token {
	line, col := l.line, l.col
	return l.token(typ, l.consume(), line, col)
}

// lexCompound handles = ! < >, which become their two-character form
// when immediately followed by '='.
func (l *Lexer) lexCompound(single, compound TokenType) Token {
	line, col := l.line, l.col
	lit := l.consume()
	typ := single
	if l.peek(0) == "=" {
		lit += l.consume()
		typ = compound
	}
	return l.token(typ, lit, line, col)
}

func (l *Lexer) lexNumber() Token {
	line, col := l.line, l.col
	lit := l.consumeWhile(isNumericCluster)
	return l.token(INT, lit, line, col)
}

func (l *Lexer) lexIdentOrKeyword() Token {
	line, col := l.line, l.col
	lit := l.consumeWhile(func(g string) bool {
		return isAlphabeticCluster(g) || isNumericCluster(g)
	})

	typ, ok := keywordTokens[lit]
	if !ok {
		typ = IDENT
	}
	return l.token(typ, lit, line, col)
}

// Tokenize scans the whole input eagerly; the parser wants indexed
// lookahead, not a stream.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token

	for !l.eof() {
		l.skipWhitespace()
		l.skipComments()
		if l.eof() {
			break
		}

		g := l.peek(0)
		r := []rune(g)[0]

		switch {
		case r >= '0' && r <= '9':
			tokens = append(tokens, l.lexNumber())
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			tokens = append(tokens, l.lexIdentOrKeyword())
		case g == "+":
			tokens = append(tokens, l.lexSingle(PLUS))
		case g == "-":
			tokens = append(tokens, l.lexSingle(MINUS))
		case g == "*":
			tokens = append(tokens, l.lexSingle(ASTERISK))
		case g == "/":
			tokens = append(tokens, l.lexSingle(SLASH))
		case g == "(":
			tokens = append(tokens, l.lexSingle(LPAREN))
		case g == ")":
			tokens = append(tokens, l.lexSingle(RPAREN))
		case g == "{":
			tokens = append(tokens, l.lexSingle(LBRACE))
		case g == "}":
			tokens = append(tokens, l.lexSingle(RBRACE))
		case g == ";":
			tokens = append(tokens, l.lexSingle(SEMICOLON))
		case g == ":":
			tokens = append(tokens, l.lexSingle(COLON))
		case g == ",":
			tokens = append(tokens, l.lexSingle(COMMA))
		case g == "=":
			tokens = append(tokens, l.lexCompound(ASSIGN, EQ))
		case g == "!":
			tokens = append(tokens, l.lexCompound(BANG, NOT_EQ))
		case g == "<":
			tokens = append(tokens, l.lexCompound(LT, LE))
		case g == ">":
			tokens = append(tokens, l.lexCompound(GT, GE))
		default:
			panic(errorAtPos(l.line, l.col, "unexpected character: %s", g))
		}
	}

	return tokens
}

// FormatTokens renders a token list for -v output.
func FormatTokens(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "%d:%d\t%s\t%s\n", tok.Line, tok.Col, tok.Type, tok.Literal)
	}
	return sb.String()
}
