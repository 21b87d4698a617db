package quality

import (
	"testing"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/lint"
)

// Stub collaborators so scores are deterministic regardless of the
// real rule sets.
type stubLinter struct{ issues []lint.Issue }

func (s stubLinter) Lint(code string) []lint.Issue { return s.issues }

type stubFormatter struct {
	formatted bool
	note      string
}

func (s stubFormatter) CheckFormat(code string) (bool, string) { return s.formatted, s.note }

type stubAuditor struct {
	safe   bool
	reason string
}

func (s stubAuditor) CheckSecurity(code string) (bool, string) { return s.safe, s.reason }

func cleanGate() *Gate {
	return NewGate(stubLinter{}, stubFormatter{formatted: true}, stubAuditor{safe: true})
}

func TestGateScore(t *testing.T) {
	t.Run("Given clean formatted safe code When Score Then 100 and high", func(t *testing.T) {
		report := cleanGate().Score("def add(a, b):\n    return a + b\n")
		if report.FinalScore != 100 {
			t.Errorf("expected 100, got %d", report.FinalScore)
		}
		if report.Reliability != ReliabilityHigh {
			t.Errorf("expected high, got %s", report.Reliability)
		}
	})

	t.Run("Given unformatted code with no lint errors When Score Then 70 and medium", func(t *testing.T) {
		gate := NewGate(stubLinter{}, stubFormatter{note: "line 1: missing space after comma"}, stubAuditor{safe: true})

		report := gate.Score("def add(a,b):return a+b")
		if report.FinalScore != 70 {
			t.Errorf("expected 70, got %d", report.FinalScore)
		}
		if report.Reliability != ReliabilityMedium {
			t.Errorf("expected medium, got %s", report.Reliability)
		}
		if report.Formatted {
			t.Error("expected formatted=false")
		}
	})

	t.Run("Given an audit violation When Score Then 50-point penalty applies", func(t *testing.T) {
		gate := NewGate(stubLinter{}, stubFormatter{formatted: true}, stubAuditor{reason: "import of 'os' is forbidden"})

		report := gate.Score("import os\n")
		if report.FinalScore != 50 {
			t.Errorf("expected 50, got %d", report.FinalScore)
		}
		if report.AuditSafe {
			t.Error("expected audit_safe=false")
		}
	})

	t.Run("Given dense lint errors When Score Then penalty capped at 70", func(t *testing.T) {
		issues := []lint.Issue{
			{Line: 1, Code: "E702", Message: "multiple statements"},
			{Line: 1, Code: "E711", Message: "comparison to None"},
		}
		gate := NewGate(stubLinter{issues: issues}, stubFormatter{formatted: true}, stubAuditor{safe: true})

		// Two errors on a one-line function is maximal density.
		report := gate.Score("a = 1; b = a == None")
		if report.FinalScore != 30 {
			t.Errorf("expected 30 (100 - capped 70), got %d", report.FinalScore)
		}
		if report.Reliability != ReliabilityLow {
			t.Errorf("expected low, got %s", report.Reliability)
		}
	})

	t.Run("Given every penalty at once When Score Then floored at 0", func(t *testing.T) {
		issues := []lint.Issue{{Line: 1, Code: "E702", Message: "m"}, {Line: 1, Code: "E711", Message: "m"}}
		gate := NewGate(stubLinter{issues: issues}, stubFormatter{}, stubAuditor{})

		report := gate.Score("bad")
		if report.FinalScore != 0 {
			t.Errorf("expected 0, got %d", report.FinalScore)
		}
	})
}

func TestGateFinalize(t *testing.T) {
	t.Run("Given a parseable verdict When Finalize Then scores averaged 50/50", func(t *testing.T) {
		gate := cleanGate()
		report := gate.Score("def f():\n    return 1\n") // 100

		report = gate.Finalize(report, `{"score": 60, "feedback": "decent"}`)
		if report.FinalScore != 80 {
			t.Errorf("expected 80, got %d", report.FinalScore)
		}
		if report.Feedback != "decent" {
			t.Errorf("expected feedback recorded, got %q", report.Feedback)
		}
		if report.Reliability != ReliabilityHigh {
			t.Errorf("expected high, got %s", report.Reliability)
		}
	})

	t.Run("Given a verdict wrapped in prose and fences When Finalize Then JSON still extracted", func(t *testing.T) {
		gate := cleanGate()
		report := gate.Score("def f():\n    return 1\n")

		output := "Here is my assessment:\n```json\n{\"score\": 40, \"feedback\": \"needs work\"}\n```\nThanks."
		report = gate.Finalize(report, output)
		if report.FinalScore != 70 {
			t.Errorf("expected 70, got %d", report.FinalScore)
		}
	})

	t.Run("Given unparseable output When Finalize Then static score kept", func(t *testing.T) {
		gate := cleanGate()
		report := gate.Score("def f():\n    return 1\n")

		report = gate.Finalize(report, "I cannot score this.")
		if report.FinalScore != 100 {
			t.Errorf("expected static 100 kept, got %d", report.FinalScore)
		}
	})

	t.Run("Given JSON without a score field When Finalize Then static score kept", func(t *testing.T) {
		gate := cleanGate()
		report := gate.Score("def f():\n    return 1\n")

		report = gate.Finalize(report, `{"feedback": "no score here"}`)
		if report.FinalScore != 100 {
			t.Errorf("expected static 100 kept, got %d", report.FinalScore)
		}
	})

	t.Run("Given a blended score crossing a tier boundary When Finalize Then tier recomputed", func(t *testing.T) {
		gate := cleanGate()
		report := gate.Score("def f():\n    return 1\n") // 100, high

		report = gate.Finalize(report, `{"score": 0, "feedback": "broken"}`)
		if report.FinalScore != 50 {
			t.Errorf("expected 50, got %d", report.FinalScore)
		}
		if report.Reliability != ReliabilityMedium {
			t.Errorf("expected medium after blend, got %s", report.Reliability)
		}
	})
}
