package validator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

type stubExecutor struct {
	result ExecResult
	err    error
}

func (s stubExecutor) Run(_ context.Context, _ string) (ExecResult, error) {
	return s.result, s.err
}

const cleanSource = `import os

def main():
    value = os.getenv('VALUE', 'default')
    return {'status': 'success'}

if __name__ == '__main__':
    main()
`

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("CleanSourcePasses", func(t *testing.T) {
		v := New(nil, 0)
		report, err := v.Validate(ctx, cleanSource, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Diagnostics)
	})

	t.Run("DeprecatedModuleIsWarningOnly", func(t *testing.T) {
		v := New(nil, 0)
		source := "import imp\n\ndef main():\n    return 1\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Len(t, report.Diagnostics, 1)
		assert.Equal(t, models.CurrencyCheckStage, report.Diagnostics[0].Stage)
		assert.Equal(t, models.WarningSeverity, report.Diagnostics[0].Severity)
		assert.Equal(t, 1, report.Diagnostics[0].Line)
	})

	t.Run("RemovedModuleIsError", func(t *testing.T) {
		v := New(nil, 0)
		source := "import distutils\n\ndef main():\n    return 1\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, models.ErrorSeverity, report.Diagnostics[0].Severity)
	})

	t.Run("SyntaxErrorAbortsLaterChecks", func(t *testing.T) {
		v := New(nil, 0)
		source := "import distutils\n\ndef main(:\n    return (1\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		for _, d := range report.Diagnostics {
			assert.Equal(t, models.SyntaxCheckStage, d.Stage)
		}
	})

	t.Run("UnresolvedPlaceholderOnlyFlaggedWhenCredentialed", func(t *testing.T) {
		v := New(nil, 0)
		source := "import os\n\ndef main():\n    k = os.getenv('K', 'PLACEHOLDER_SLACK_API_KEY')\n    return k\n"

		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)

		report, err = v.Validate(ctx, source, models.CredentialedArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Contains(t, report.Diagnostics[0].Message, "PLACEHOLDER_SLACK_API_KEY")
	})

	t.Run("HardcodedSecret", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    password = \"hunter2hunter2\"\n    return password\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, models.ReadinessCheckStage, report.Diagnostics[0].Stage)
		assert.Equal(t, 2, report.Diagnostics[0].Line)
	})

	t.Run("GetenvIsNotASecret", func(t *testing.T) {
		v := New(nil, 0)
		source := "import os\n\ndef main():\n    password = os.getenv('PASSWORD', 'fallbackvalue')\n    return password\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
	})

	t.Run("DangerousFunctionIsWarningOnly", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    return eval('1 + 1')\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Len(t, report.Diagnostics, 1)
		assert.Equal(t, models.WarningSeverity, report.Diagnostics[0].Severity)
		assert.Contains(t, report.Diagnostics[0].Message, `"eval"`)
		assert.Equal(t, 2, report.Diagnostics[0].Line)
	})

	t.Run("ReadOnlyOpenIsExempt", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    f = open('data.txt', 'r')\n    return f.read()\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Diagnostics)
	})

	t.Run("WritableOpenIsFlagged", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    f = open('data.txt', 'w')\n    f.write('x')\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.Len(t, report.Diagnostics, 1)
		assert.Contains(t, report.Diagnostics[0].Message, `"open"`)
	})

	t.Run("ExecuteIsNotExec", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    cursor.execute(\"SELECT 1\")\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Diagnostics)
	})

	t.Run("StringFormattedQueryIsError", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    cursor.execute(\"SELECT * FROM users WHERE id = %s\" % user_id)\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, models.ErrorSeverity, report.Diagnostics[0].Severity)
		assert.Contains(t, report.Diagnostics[0].Message, "SQL injection")
	})

	t.Run("EveryPlaceholderOnALineIsReported", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    url = 'PLACEHOLDER_SLACK_API_KEY' + 'PLACEHOLDER_GMAIL_API_KEY'\n"
		report, err := v.Validate(ctx, source, models.CredentialedArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Len(t, report.Diagnostics, 2)
		assert.Contains(t, report.Diagnostics[0].Message, "PLACEHOLDER_SLACK_API_KEY")
		assert.Contains(t, report.Diagnostics[1].Message, "PLACEHOLDER_GMAIL_API_KEY")
	})

	t.Run("UnreachableAfterReturn", func(t *testing.T) {
		v := New(nil, 0)
		source := "def main():\n    return 1\n    print('never')\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid) // warning only
		assert.Len(t, report.Diagnostics, 1)
		assert.Equal(t, models.WarningSeverity, report.Diagnostics[0].Severity)
	})

	t.Run("SandboxFailureProducesError", func(t *testing.T) {
		v := New(stubExecutor{result: ExecResult{ExitCode: 1}}, time.Second)
		report, err := v.Validate(ctx, cleanSource, models.CredentialedArtifactKind)
		assert.NoError(t, err)
		assert.False(t, report.Valid)
	})

	t.Run("SandboxSkippedForSkeletons", func(t *testing.T) {
		v := New(stubExecutor{result: ExecResult{ExitCode: 1}}, time.Second)
		report, err := v.Validate(ctx, cleanSource, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		assert.True(t, report.Valid)
	})

	t.Run("SandboxUnavailable", func(t *testing.T) {
		v := New(stubExecutor{err: context.DeadlineExceeded}, time.Second)
		_, err := v.Validate(ctx, cleanSource, models.CredentialedArtifactKind)
		assert.ErrorIs(t, err, ErrSandboxUnavailable)
	})

	t.Run("Suggestions", func(t *testing.T) {
		v := New(nil, 0)
		source := "import requests\n\ndef main():\n    return requests.get('http://example.com')\n"
		report, err := v.Validate(ctx, source, models.SkeletonArtifactKind)
		assert.NoError(t, err)
		types := make([]string, 0, len(report.Suggestions))
		for _, s := range report.Suggestions {
			types = append(types, s.Type)
		}
		assert.Contains(t, types, "improvement") // no logging
		assert.Contains(t, types, "performance") // requests without timeout
	})
}

func TestRules(t *testing.T) {
	rules := Rules()
	assert.Len(t, rules, 4)
	assert.Contains(t, rules["module_rules"][0], "distutils")
	assert.Contains(t, rules["module_rules"][0], "telnetlib")
	joined := strings.Join(rules["security_rules"], " ")
	assert.Contains(t, joined, "eval")
	assert.Contains(t, joined, "exec")
}

func TestCheckSyntax(t *testing.T) {
	t.Run("UnbalancedClosingBracket", func(t *testing.T) {
		diags := checkSyntax("def main():\n    return 1)\n")
		assert.NotEmpty(t, diags)
	})

	t.Run("UnclosedBracket", func(t *testing.T) {
		diags := checkSyntax("def main():\n    return (1\n")
		assert.NotEmpty(t, diags)
	})

	t.Run("UnterminatedString", func(t *testing.T) {
		diags := checkSyntax("x = 'oops\n")
		assert.NotEmpty(t, diags)
	})

	t.Run("MissingIndentedBlock", func(t *testing.T) {
		diags := checkSyntax("def main():\nreturn 1\n")
		assert.NotEmpty(t, diags)
	})

	t.Run("BracketsInsideStringsIgnored", func(t *testing.T) {
		diags := checkSyntax("x = '(((['\n")
		assert.Empty(t, diags)
	})

	t.Run("DocstringsAccepted", func(t *testing.T) {
		diags := checkSyntax("def main():\n    \"\"\"doc\"\"\"\n    return 1\n")
		assert.Empty(t, diags)
	})
}
