// Package mdtest extracts compiler test cases from Markdown documents.
//
// A test case starts at a heading of the form "Test: <name>" and is
// followed by fenced code blocks: exactly one `zinc` fence holding the
// input program, plus one or more assertion fences (`tokens`, `ast`,
// `asm-contains`, `compile-error`).
package mdtest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssertionType identifies what an assertion fence checks.
type AssertionType string

const (
	AssertionTokens       AssertionType = "tokens"       // exact token dump
	AssertionAST          AssertionType = "ast"          // exact S-expression
	AssertionAsmContains  AssertionType = "asm-contains" // assembly lines, in order
	AssertionCompileError AssertionType = "compile-error"
)

const inputFence = "zinc"

// Assertion is a single assertion fence in a test case.
type Assertion struct {
	Type    AssertionType
	Content string
}

// TestCase is one complete test extracted from Markdown.
type TestCase struct {
	Name       string
	Input      string
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and collects its tests.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)

	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var current *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			if strings.HasPrefix(headingText, "Test: ") {
				if current != nil {
					if err := validateTestCase(current); err != nil {
						return ast.WalkStop, err
					}
					testCases = append(testCases, *current)
				}

				current = &TestCase{
					Name: strings.TrimPrefix(headingText, "Test: "),
				}
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := extractCodeBlockContent(n, source)
			lineNum := getLineNumber(n, source)

			if language == "" {
				// Untyped fences are prose, not assertions.
				return ast.WalkContinue, nil
			}

			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
			}

			if language == inputFence {
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test '%s'", lineNum, current.Name)
				}
				current.Input = strings.TrimRight(content, "\n")
			} else if isAssertionFence(language) {
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(language),
					Content: strings.TrimRight(content, "\n"),
				})
			} else {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, current.Name)
			}
		}

		return ast.WalkContinue, nil
	})

	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if current != nil {
		if err := validateTestCase(current); err != nil {
			return nil, err
		}
		testCases = append(testCases, *current)
	}

	return testCases, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer

	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}

	return buf.String()
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTokens, AssertionAST, AssertionAsmContains, AssertionCompileError:
		return true
	default:
		return false
	}
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(testCase *TestCase) error {
	if testCase.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", testCase.Name)
	}
	if len(testCase.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", testCase.Name)
	}
	return nil
}

// getLineNumber calculates the line number of a given AST node
func getLineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	startPos := node.Lines().At(0).Start
	lineNum := 1
	for i := 0; i < startPos && i < len(source); i++ {
		if source[i] == '\n' {
			lineNum++
		}
	}
	return lineNum
}
