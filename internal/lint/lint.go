// Package lint provides the built-in style collaborator for stored
// Python functions: a syntax gate, a small rule-based linter, and a
// canonical-formatting verdict. It stands in for an external lint
// service; the quality gate only consumes its verdicts.
package lint

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const maxLineLength = 120

// Issue is one lint finding.
type Issue struct {
	Line    int
	Code    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("Line %d [%s]: %s", i.Line, i.Code, i.Message)
}

// Checker parses and style-checks Python source.
type Checker struct {
	parser *sitter.Parser
}

// NewChecker creates a checker with its own parser instance.
func NewChecker() *Checker {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Checker{parser: parser}
}

// CheckSyntax reports whether the source parses without errors.
func (c *Checker) CheckSyntax(code string) bool {
	tree := c.parser.Parse(nil, []byte(code))
	if tree == nil {
		return false
	}
	defer tree.Close()
	root := tree.RootNode()
	return root != nil && !root.HasError()
}

// Lint runs the rule set over the source and returns all findings.
func (c *Checker) Lint(code string) []Issue {
	var issues []Issue
	for i, line := range strings.Split(code, "\n") {
		lineno := i + 1
		stripped := stripComment(line)
		masked := maskStrings(stripped)

		if len(line) > maxLineLength {
			issues = append(issues, Issue{lineno, "E501", fmt.Sprintf("line too long (%d > %d)", len(line), maxLineLength)})
		}
		if strings.Contains(masked, ";") {
			issues = append(issues, Issue{lineno, "E702", "multiple statements on one line (semicolon)"})
		}
		if strings.Contains(masked, "== None") || strings.Contains(masked, "!= None") {
			issues = append(issues, Issue{lineno, "E711", "comparison to None should be 'is None'"})
		}
		if trimmed := strings.TrimSpace(stripped); trimmed == "except:" {
			issues = append(issues, Issue{lineno, "E722", "do not use bare 'except'"})
		}
	}
	return issues
}

// CheckFormat reports whether the source is canonically formatted. The
// rules are a conservative subset of what a formatter would enforce:
// spaces after commas, no inline bodies after a compound statement
// colon, no trailing whitespace, no tab indentation.
func (c *Checker) CheckFormat(code string) (formatted bool, feedback string) {
	for i, line := range strings.Split(code, "\n") {
		lineno := i + 1
		stripped := stripComment(line)

		if strings.TrimRight(line, " \t") != line {
			return false, fmt.Sprintf("line %d: trailing whitespace", lineno)
		}
		if strings.HasPrefix(line, "\t") {
			return false, fmt.Sprintf("line %d: tab indentation", lineno)
		}
		if pos := commaWithoutSpace(stripped); pos >= 0 {
			return false, fmt.Sprintf("line %d: missing space after comma", lineno)
		}
		if inlineBody(stripped) {
			return false, fmt.Sprintf("line %d: statement on same line as block header", lineno)
		}
	}
	return true, "code is formatted correctly"
}

// stripComment removes a trailing # comment, respecting string quotes.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '#':
			return line[:i]
		}
	}
	return line
}

// maskStrings blanks string-literal contents so the substring rules
// never match quoted text. Quote tracking matches stripComment.
func maskStrings(line string) string {
	out := []byte(line)
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
				continue
			}
			out[i] = ' '
			if ch == '\\' && i+1 < len(line) {
				i++
				out[i] = ' '
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
		}
	}
	return string(out)
}

// commaWithoutSpace returns the index of a comma not followed by a
// space, closing bracket, or end of line, outside string literals.
func commaWithoutSpace(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case ',':
			if i+1 < len(line) {
				next := line[i+1]
				if next != ' ' && next != ')' && next != ']' && next != '}' {
					return i
				}
			}
		}
	}
	return -1
}

// inlineBody reports a compound statement with its body on the same
// line, e.g. "def f():return 1".
func inlineBody(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, kw := range []string{"def ", "class ", "if ", "elif ", "else:", "for ", "while ", "try:", "with "} {
		if !strings.HasPrefix(trimmed, kw) {
			continue
		}
		colon := headerColon(trimmed)
		if colon < 0 {
			continue
		}
		rest := strings.TrimSpace(trimmed[colon+1:])
		if rest != "" {
			return true
		}
	}
	return false
}

// headerColon finds the colon terminating a block header, skipping
// colons inside brackets (annotations, dict literals) and strings.
func headerColon(line string) int {
	var quote byte
	depth := 0
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
