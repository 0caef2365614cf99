package tools

import "testing"

func issueWithCode(issues []*LintIssue, code string) *LintIssue {
	for _, issue := range issues {
		if issue.Code == code {
			return issue
		}
	}
	return nil
}

func TestLint_CleanProgramHasNoIssues(t *testing.T) {
	source := ".entry main\nmain:\n  load[u64] %0 10\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestLint_UndefinedLabelOnCall(t *testing.T) {
	source := ".entry main\nmain:\n  call missing\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNDEF_LABEL") == nil {
		t.Errorf("expected UNDEF_LABEL issue, got %v", issues)
	}
}

func TestLint_UndefinedEntry(t *testing.T) {
	source := ".entry missing\nmain:\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNDEF_LABEL") == nil {
		t.Errorf("expected UNDEF_LABEL issue for missing entry target, got %v", issues)
	}
}

func TestLint_UnusedLabelWarning(t *testing.T) {
	source := ".entry main\nmain:\n  hult\nunused:\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	issue := issueWithCode(issues, "UNUSED_LABEL")
	if issue == nil {
		t.Fatalf("expected UNUSED_LABEL issue, got %v", issues)
	}
	if issue.Level != LintWarning {
		t.Errorf("expected UNUSED_LABEL to be a warning, got %v", issue.Level)
	}
}

func TestLint_EntryLabelNeverFlaggedUnused(t *testing.T) {
	source := ".entry main\nmain:\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNUSED_LABEL") != nil {
		t.Errorf("entry label should never be reported unused, got %v", issues)
	}
}

func TestLint_UnreachableCodeAfterHult(t *testing.T) {
	source := ".entry main\nmain:\n  hult\n  load[u64] %0 1\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNREACHABLE_CODE") == nil {
		t.Errorf("expected UNREACHABLE_CODE issue, got %v", issues)
	}
}

func TestLint_LabelAfterHultIsReachableAgain(t *testing.T) {
	source := ".entry main\nmain:\n  hult\nother:\n  hult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNREACHABLE_CODE") != nil {
		t.Errorf("a labeled instruction is reachable via branch, should not be flagged, got %v", issues)
	}
}

func TestLint_UnreachableCheckCanBeDisabled(t *testing.T) {
	source := ".entry main\nmain:\n  hult\n  load[u64] %0 1\n"
	linter := NewLinter(&LintOptions{CheckUnused: true, CheckUnreachable: false})
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "UNREACHABLE_CODE") != nil {
		t.Errorf("expected unreachable check disabled, got %v", issues)
	}
}

func TestLint_ParseErrorsReportedAsIssues(t *testing.T) {
	source := "load[u64] %0 10\nhult\n"
	linter := NewLinter(nil)
	issues := linter.Lint(source, "test.bb")
	if issueWithCode(issues, "PARSE_ERROR") == nil {
		t.Errorf("expected PARSE_ERROR for missing entry directive, got %v", issues)
	}
}

func TestLint_HasErrorsReflectsSeverity(t *testing.T) {
	source := ".entry main\nmain:\n  hult\nunused:\n  hult\n"
	linter := NewLinter(nil)
	linter.Lint(source, "test.bb")
	if linter.HasErrors() {
		t.Error("a warning-only result should not report HasErrors in non-strict mode")
	}

	strict := NewLinter(&LintOptions{Strict: true, CheckUnused: true})
	strict.Lint(source, "test.bb")
	if !strict.HasErrors() {
		t.Error("expected HasErrors to be true in strict mode with a warning present")
	}
}
