// Package validator runs ordered checks (syntax, module currency,
// production-readiness) against an artifact version and produces a
// structured, immutable report.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/synth"
)

// ErrSandboxUnavailable signals that the sandbox executor failed or timed
// out. The stage is treated as failed; no report is committed.
var ErrSandboxUnavailable = errors.New("sandbox executor unavailable")

var (
	importRe      = regexp.MustCompile(`^\s*(?:import\s+([A-Za-z_][\w.]*)|from\s+([A-Za-z_][\w.]*)\s+import)`)
	secretRe      = regexp.MustCompile(`(?i)(password|secret|key|token)\s*=\s*["'][^"']{8,}["']`)
	placeholderRe = regexp.MustCompile(regexp.QuoteMeta(synth.Token) + `[A-Z0-9_]+`)
	dangerousRe   = regexp.MustCompile(`\b(` + strings.Join(dangerousFunctions, "|") + `)\s*\(`)
	sqlInjectRe   = regexp.MustCompile(`(?i)execute\s*\(\s*["'].*%.*["']`)
)

type Validator struct {
	executor       Executor // optional sandbox; nil disables the execution probe
	sandboxTimeout time.Duration
}

func New(executor Executor, sandboxTimeout time.Duration) *Validator {
	return &Validator{executor: executor, sandboxTimeout: sandboxTimeout}
}

// Validate runs all checks against the source and computes the verdict:
// PASS iff no ERROR-severity diagnostic. A syntax failure aborts the later
// checks, which assume a parseable document; otherwise every check runs and
// all diagnostics are collected before the verdict.
func (v *Validator) Validate(ctx context.Context, source string, kind models.ArtifactKind) (models.ValidationReport, error) {
	var diags []models.Diagnostic

	syntaxDiags := checkSyntax(source)
	diags = append(diags, syntaxDiags...)
	if len(syntaxDiags) == 0 {
		diags = append(diags, v.checkCurrency(source)...)
		readinessDiags, err := v.checkReadiness(ctx, source, kind)
		if err != nil {
			return models.ValidationReport{}, err
		}
		diags = append(diags, readinessDiags...)
	}

	report := models.ValidationReport{
		Diagnostics: diags,
		Suggestions: suggestions(source, diags),
		CreatedAt:   time.Now(),
	}
	report.Valid = report.ErrorCount() == 0
	return report, nil
}

// CheckSyntax runs the syntax stage alone, for quick standalone feedback.
func CheckSyntax(source string) []models.Diagnostic {
	return checkSyntax(source)
}

// Rules describes the active rule set per check stage, derived from the
// registries the checks actually consult.
func Rules() map[string][]string {
	deprecated := make([]string, 0, len(deprecatedModules))
	for name := range deprecatedModules {
		deprecated = append(deprecated, name)
	}
	sort.Strings(deprecated)
	return map[string][]string{
		"syntax_rules": {
			"Valid Python syntax required",
			"Balanced brackets and terminated strings",
			"Indented block required after a block header",
		},
		"module_rules": {
			"No deprecated or removed standard-library modules: " + strings.Join(deprecated, ", "),
		},
		"security_rules": {
			"No hardcoded credentials; read secrets from environment variables",
			"No unresolved placeholders in credentialed code",
			"No dangerous function usage (" + strings.Join(dangerousFunctions, ", ") + ")",
			"Parameterized queries only; no string-formatted SQL",
		},
		"production_rules": {
			"No unreachable statements after return",
			"No bare pass stanzas",
			"Logging and request timeouts recommended",
		},
	}
}

// checkCurrency matches every import against the deprecated-module registry.
func (v *Validator) checkCurrency(source string) []models.Diagnostic {
	var diags []models.Diagnostic
	for i, line := range strings.Split(source, "\n") {
		m := importRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		module := m[1]
		if module == "" {
			module = m[2]
		}
		status, ok := deprecatedModules[module]
		if !ok {
			continue
		}
		severity := models.WarningSeverity
		msg := fmt.Sprintf("deprecated module %q: use %s instead", module, status.Replacement)
		if status.Removed {
			severity = models.ErrorSeverity
			msg = fmt.Sprintf("module %q has been removed from the standard library", module)
			if status.Replacement != "" {
				msg += fmt.Sprintf("; use %s instead", status.Replacement)
			}
		}
		diags = append(diags, models.Diagnostic{
			Stage:    models.CurrencyCheckStage,
			Severity: severity,
			Line:     i + 1,
			Message:  msg,
		})
	}
	return diags
}

// checkReadiness scans for unresolved placeholders, hardcoded secrets and
// dead stanzas, then (when an executor is configured and the artifact is
// credentialed) probes the code in the sandbox.
func (v *Validator) checkReadiness(ctx context.Context, source string, kind models.ArtifactKind) ([]models.Diagnostic, error) {
	var diags []models.Diagnostic
	lines := strings.Split(source, "\n")

	for i, line := range lines {
		if kind == models.CredentialedArtifactKind {
			for _, token := range placeholderRe.FindAllString(line, -1) {
				diags = append(diags, models.Diagnostic{
					Stage:    models.ReadinessCheckStage,
					Severity: models.ErrorSeverity,
					Line:     i + 1,
					Message:  fmt.Sprintf("unresolved placeholder %s in credentialed artifact", token),
				})
			}
		}
		if secretRe.MatchString(line) && !strings.Contains(line, "os.getenv") {
			diags = append(diags, models.Diagnostic{
				Stage:    models.ReadinessCheckStage,
				Severity: models.ErrorSeverity,
				Line:     i + 1,
				Message:  "potential hardcoded credential; use environment variables instead",
			})
		}
		if m := dangerousRe.FindStringSubmatch(line); m != nil && !(m[1] == "open" && readOnlyOpen(line)) {
			diags = append(diags, models.Diagnostic{
				Stage:    models.ReadinessCheckStage,
				Severity: models.WarningSeverity,
				Line:     i + 1,
				Message:  fmt.Sprintf("potentially dangerous function %q; review for security implications", m[1]),
			})
		}
		if sqlInjectRe.MatchString(line) {
			diags = append(diags, models.Diagnostic{
				Stage:    models.ReadinessCheckStage,
				Severity: models.ErrorSeverity,
				Line:     i + 1,
				Message:  "potential SQL injection; use parameterized queries",
			})
		}
	}

	diags = append(diags, checkUnreachable(lines)...)

	if v.executor != nil && kind == models.CredentialedArtifactKind {
		execCtx, cancel := context.WithTimeout(ctx, v.sandboxTimeout)
		defer cancel()
		result, err := v.executor.Run(execCtx, source)
		if err != nil {
			return nil, errors.Wrapf(ErrSandboxUnavailable, "sandbox run failed: %v", err)
		}
		if result.ExitCode != 0 {
			diags = append(diags, models.Diagnostic{
				Stage:    models.ReadinessCheckStage,
				Severity: models.ErrorSeverity,
				Line:     0,
				Message:  fmt.Sprintf("sandbox execution exited with code %d", result.ExitCode),
			})
		}
	}
	return diags, nil
}

// readOnlyOpen reports whether an open() call on the line passes a read mode.
func readOnlyOpen(line string) bool {
	return strings.Contains(line, "open(") &&
		(strings.Contains(line, `r'`) || strings.Contains(line, `r"`))
}

// checkUnreachable flags statements that follow a return at the same indent
// within the same block, and step stanzas with no statements.
func checkUnreachable(lines []string) []models.Diagnostic {
	var diags []models.Diagnostic
	returnIndent := -1
	for i, raw := range lines {
		trimmed := strings.TrimSpace(stripComment(raw))
		if trimmed == "" {
			continue
		}
		indent := indentOf(raw)
		if returnIndent >= 0 {
			if indent >= returnIndent && !strings.HasPrefix(trimmed, "except") &&
				!strings.HasPrefix(trimmed, "else") && !strings.HasPrefix(trimmed, "elif") &&
				!strings.HasPrefix(trimmed, "finally") {
				diags = append(diags, models.Diagnostic{
					Stage:    models.ReadinessCheckStage,
					Severity: models.WarningSeverity,
					Line:     i + 1,
					Message:  "unreachable statement after return",
				})
			}
			returnIndent = -1
		}
		if strings.HasPrefix(trimmed, "return") {
			returnIndent = indent
		}
		if trimmed == "pass" {
			diags = append(diags, models.Diagnostic{
				Stage:    models.ReadinessCheckStage,
				Severity: models.WarningSeverity,
				Line:     i + 1,
				Message:  "incomplete stanza: body is a bare pass",
			})
		}
	}
	return diags
}

// suggestions produces non-blocking improvement hints alongside the report.
func suggestions(source string, diags []models.Diagnostic) []models.Suggestion {
	var out []models.Suggestion
	if !strings.Contains(source, "import logging") {
		out = append(out, models.Suggestion{
			Type:    "improvement",
			Message: "Consider adding logging for better monitoring and debugging.",
			Example: "import logging\nlogging.basicConfig(level=logging.INFO)",
		})
	}
	if strings.Contains(source, "requests") && !strings.Contains(source, "timeout") {
		out = append(out, models.Suggestion{
			Type:    "performance",
			Message: "Add timeout parameters to HTTP requests for better reliability.",
			Example: "response = requests.get(url, timeout=30)",
		})
	}
	for _, d := range diags {
		if d.Severity == models.ErrorSeverity {
			out = append(out, models.Suggestion{
				Type:    "critical",
				Message: "Fix all error-level issues before deploying to production.",
			})
			break
		}
	}
	return out
}
