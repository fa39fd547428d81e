package validator

import (
	"fmt"
	"strings"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

// checkSyntax performs a structural scan of Python source: bracket balance,
// unterminated string literals, and block headers with no indented body. It
// is deliberately shallow; the sandbox run is the authoritative check.
func checkSyntax(source string) []models.Diagnostic {
	var diags []models.Diagnostic
	lines := strings.Split(source, "\n")

	depth := 0
	openLine := 0
	for i, raw := range lines {
		lineNo := i + 1
		line := stripComment(raw)

		if unterminatedString(line) {
			diags = append(diags, models.Diagnostic{
				Stage:    models.SyntaxCheckStage,
				Severity: models.ErrorSeverity,
				Line:     lineNo,
				Message:  "unterminated string literal",
			})
			continue
		}

		for _, r := range maskStrings(line) {
			switch r {
			case '(', '[', '{':
				if depth == 0 {
					openLine = lineNo
				}
				depth++
			case ')', ']', '}':
				depth--
				if depth < 0 {
					diags = append(diags, models.Diagnostic{
						Stage:    models.SyntaxCheckStage,
						Severity: models.ErrorSeverity,
						Line:     lineNo,
						Message:  fmt.Sprintf("unbalanced closing bracket %q", r),
					})
					depth = 0
				}
			}
		}

		// A block header (ends with ':' outside a continuation) must be
		// followed by a more deeply indented statement.
		if depth == 0 && strings.HasSuffix(strings.TrimSpace(line), ":") {
			if body := nextStatement(lines, i+1); body >= 0 {
				if indentOf(lines[body]) <= indentOf(raw) {
					diags = append(diags, models.Diagnostic{
						Stage:    models.SyntaxCheckStage,
						Severity: models.ErrorSeverity,
						Line:     lineNo,
						Message:  "expected an indented block",
					})
				}
			} else {
				diags = append(diags, models.Diagnostic{
					Stage:    models.SyntaxCheckStage,
					Severity: models.ErrorSeverity,
					Line:     lineNo,
					Message:  "block header at end of file has no body",
				})
			}
		}
	}
	if depth > 0 {
		diags = append(diags, models.Diagnostic{
			Stage:    models.SyntaxCheckStage,
			Severity: models.ErrorSeverity,
			Line:     openLine,
			Message:  "unclosed bracket",
		})
	}
	return diags
}

// stripComment removes a trailing # comment, respecting quoted strings.
func stripComment(line string) string {
	inSingle, inDouble := false, false
	for i, r := range line {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return line[:i]
			}
		}
	}
	return line
}

// maskStrings blanks out quoted regions so bracket counting ignores them.
func maskStrings(line string) string {
	out := []rune(line)
	inSingle, inDouble := false, false
	for i, r := range out {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		default:
			if inSingle || inDouble {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

func unterminatedString(line string) bool {
	// Triple-quoted docstrings span lines; skip lines containing them.
	if strings.Contains(line, `"""`) || strings.Contains(line, "'''") {
		return false
	}
	singles, doubles := 0, 0
	inSingle, inDouble := false, false
	for _, r := range line {
		switch r {
		case '\'':
			if !inDouble {
				singles++
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				doubles++
				inDouble = !inDouble
			}
		}
	}
	return singles%2 != 0 || doubles%2 != 0
}

func nextStatement(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return i
	}
	return -1
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}
