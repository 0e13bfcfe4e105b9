package main

import (
	"bytes"
	"fmt"
)

// CompileError is a user-facing failure: bad source, not a bad
// compiler. Line/Col are 1-based; zero when no position applies.
type CompileError struct {
	Msg  string
	Line int
	Col  int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return e.Msg
}

func errorAtPos(line, col int, format string, args ...any) *CompileError {
	return &CompileError{Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
}

func errorAt(tok Token, format string, args ...any) *CompileError {
	return errorAtPos(tok.Line, tok.Col, format, args...)
}

// internalError marks a compiler bug (unsupported codegen path, register
// leak). It deliberately does not satisfy the recovery in Compile: a bug
// must not be reported as a source error.
type internalError struct {
	msg string
}

func (e internalError) Error() string {
	return "internal error: " + e.msg
}

func ice(format string, args ...any) {
	panic(internalError{msg: fmt.Sprintf(format, args...)})
}

// recoverCompileError converts a CompileError panic into an error return.
// Compilation is single-pass and halts at the first problem, so the
// lexer/parser/backend raise via panic instead of threading an error
// through every recursion level.
func recoverCompileError(err *error) {
	if r := recover(); r != nil {
		if ce, ok := r.(*CompileError); ok {
			*err = ce
			return
		}
		panic(r)
	}
}

// Compile translates one source file into x86-64 assembly text.
func Compile(source string) (asm string, err error) {
	defer recoverCompileError(&err)

	tokens := NewLexer(source).Tokenize()
	root := NewParser(tokens).Parse()

	var buf bytes.Buffer
	gen := NewCodeGenerator(NewX86Backend(&buf))
	gen.Generate(root)

	return buf.String(), nil
}

// Check runs the front half of the pipeline only: lexing plus the
// combined parse/type-check. No output is produced.
func Check(source string) (err error) {
	defer recoverCompileError(&err)

	tokens := NewLexer(source).Tokenize()
	NewParser(tokens).Parse()
	return nil
}

// ParseProgram exposes the front end for debug dumps and tests.
func ParseProgram(source string) (root *ASTNode, tokens []Token, err error) {
	defer recoverCompileError(&err)

	tokens = NewLexer(source).Tokenize()
	root = NewParser(tokens).Parse()
	return root, tokens, nil
}
