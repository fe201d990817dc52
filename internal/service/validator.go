package service

import (
	"slices"
	"strings"

	"github.com/target/codegen-api/internal/domain/model"
)

const longCodeThreshold = 1000

// Suggestions emitted by ValidateCode.
const (
	suggestUnclosedBrackets = "Check for unclosed brackets"
	suggestTypeAnnotations  = "Consider adding TypeScript type annotations"
	suggestSplitCode        = "Consider breaking this into smaller functions or components"
	suggestComments         = "Add comments to improve code readability"
)

// ValidateCode runs lightweight line-based checks over generated code.
// Only typescript and javascript get syntax checks; every language gets the general suggestions.
func ValidateCode(req model.ValidateCodeRequest) model.ValidateCodeResponse {
	code, language := req.Code, strings.ToLower(strings.TrimSpace(req.Language))
	v := &codeValidator{issues: []model.ValidationIssue{}, suggestions: []string{}}

	if language == "typescript" || language == "javascript" {
		v.checkLines(code)
		if language == "typescript" &&
			!strings.Contains(code, "interface") && !strings.Contains(code, "type") &&
			strings.Contains(code, "function") {
			v.suggest(suggestTypeAnnotations)
		}
		if (strings.Contains(code, "React") || strings.Contains(code, "jsx") || strings.Contains(code, "tsx")) &&
			!strings.Contains(code, "import React") {
			v.fail(1, 1, "Missing React import")
		}
		if strings.Contains(code, "api(") && !strings.Contains(code, "import") &&
			!strings.Contains(code, "encore.dev/api") {
			v.fail(1, 1, "Missing Encore.ts API import")
		}
	}

	if len(code) > longCodeThreshold {
		v.suggest(suggestSplitCode)
	}
	if !strings.Contains(code, "//") && !strings.Contains(code, "/*") {
		v.suggest(suggestComments)
	}

	return model.ValidateCodeResponse{
		Valid:       !v.hasErrors,
		Errors:      v.issues,
		Suggestions: v.suggestions,
	}
}

type codeValidator struct {
	issues      []model.ValidationIssue
	suggestions []string
	hasErrors   bool
}

func (v *codeValidator) checkLines(code string) {
	for i, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if needsSemicolon(line, trimmed) {
			v.issues = append(v.issues, model.ValidationIssue{
				Line:     i + 1,
				Column:   len(line),
				Message:  "Missing semicolon",
				Severity: model.SeverityWarning,
			})
		}
		if strings.Count(line, "{") > strings.Count(line, "}") {
			v.suggest(suggestUnclosedBrackets)
		}
	}
}

func needsSemicolon(line, trimmed string) bool {
	switch {
	case strings.HasSuffix(trimmed, ";"), strings.HasSuffix(trimmed, "{"), strings.HasSuffix(trimmed, "}"):
		return false
	case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "*"):
		return false
	case strings.Contains(line, "import "), strings.Contains(line, "export "):
		return false
	default:
		return true
	}
}

func (v *codeValidator) fail(line, column int, msg string) {
	v.hasErrors = true
	v.issues = append(v.issues, model.ValidationIssue{
		Line:     line,
		Column:   column,
		Message:  msg,
		Severity: model.SeverityError,
	})
}

// suggest records msg once.
func (v *codeValidator) suggest(msg string) {
	if !slices.Contains(v.suggestions, msg) {
		v.suggestions = append(v.suggestions, msg)
	}
}
