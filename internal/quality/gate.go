// Package quality scores stored functions. Scoring is synchronous and
// on-demand; it never gates a save. The gate combines a lint error
// density penalty, a flat formatting penalty, and a security audit
// penalty, and can blend its static score with an externally supplied
// qualitative score.
package quality

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/lint"
)

const (
	lintDensityFactor    = 500.0
	lintPenaltyCap       = 70.0
	formattingPenalty    = 30
	auditPenalty         = 50
	reliabilityHighMin   = 80
	reliabilityMediumMin = 50
)

// Reliability tiers.
const (
	ReliabilityHigh   = "high"
	ReliabilityMedium = "medium"
	ReliabilityLow    = "low"
)

// Linter produces style findings for a piece of source.
type Linter interface {
	Lint(code string) []lint.Issue
}

// FormatChecker reports whether source is canonically formatted.
type FormatChecker interface {
	CheckFormat(code string) (formatted bool, feedback string)
}

// SecurityAuditor reports whether source violates the static policy.
type SecurityAuditor interface {
	CheckSecurity(code string) (safe bool, reason string)
}

// Report is the result of a quality evaluation.
type Report struct {
	FinalScore  int      `json:"final_score"`
	Reliability string   `json:"reliability"`
	LintPassed  bool     `json:"lint_passed"`
	LintErrors  []string `json:"lint_errors,omitempty"`
	Formatted   bool     `json:"formatted"`
	FormatNote  string   `json:"format_note,omitempty"`
	AuditSafe   bool     `json:"audit_safe"`
	AuditReason string   `json:"audit_reason,omitempty"`
	Feedback    string   `json:"feedback,omitempty"`
}

// Gate evaluates function quality from injected collaborators.
type Gate struct {
	linter    Linter
	formatter FormatChecker
	auditor   SecurityAuditor
}

// NewGate creates a quality gate.
func NewGate(linter Linter, formatter FormatChecker, auditor SecurityAuditor) *Gate {
	return &Gate{linter: linter, formatter: formatter, auditor: auditor}
}

// Score runs the static evaluation only.
func (g *Gate) Score(code string) *Report {
	report := &Report{LintPassed: true, Formatted: true, AuditSafe: true}

	issues := g.linter.Lint(code)
	if len(issues) > 0 {
		report.LintPassed = false
		for _, issue := range issues {
			report.LintErrors = append(report.LintErrors, issue.String())
		}
	}

	// Lint penalty scales with error density, not raw count, so a long
	// function is not punished harder than a short one.
	lineCount := strings.Count(code, "\n") + 1
	if lineCount < 1 {
		lineCount = 1
	}
	density := float64(len(issues)) / float64(lineCount)
	lintPenalty := density * lintDensityFactor
	if lintPenalty > lintPenaltyCap {
		lintPenalty = lintPenaltyCap
	}

	formatPenalty := 0
	formatted, feedback := g.formatter.CheckFormat(code)
	report.Formatted = formatted
	report.FormatNote = feedback
	if !formatted {
		formatPenalty = formattingPenalty
	}

	securityPenalty := 0
	safe, reason := g.auditor.CheckSecurity(code)
	report.AuditSafe = safe
	report.AuditReason = reason
	if !safe {
		securityPenalty = auditPenalty
	}

	score := 100 - int(lintPenalty) - formatPenalty - securityPenalty
	if score < 0 {
		score = 0
	}
	report.FinalScore = score
	report.Reliability = tier(score)
	return report
}

// Finalize blends the static score 50/50 with a qualitative score
// extracted from raw LLM output. Unparseable output leaves the static
// report untouched.
func (g *Gate) Finalize(report *Report, llmOutput string) *Report {
	score, feedback, ok := extractVerdict(llmOutput)
	if !ok {
		log.Printf("Warning: could not parse qualitative verdict; keeping static score")
		return report
	}

	report.FinalScore = (report.FinalScore + score) / 2
	if feedback != "" {
		report.Feedback = feedback
	}
	report.Reliability = tier(report.FinalScore)
	return report
}

func tier(score int) string {
	switch {
	case score >= reliabilityHighMin:
		return ReliabilityHigh
	case score >= reliabilityMediumMin:
		return ReliabilityMedium
	default:
		return ReliabilityLow
	}
}

var jsonBlobRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractVerdict pulls {"score": N, "feedback": "..."} out of raw LLM
// output, tolerating surrounding prose and markdown fences.
func extractVerdict(output string) (score int, feedback string, ok bool) {
	blob := jsonBlobRe.FindString(output)
	if blob == "" {
		return 0, "", false
	}
	var verdict struct {
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(blob), &verdict); err != nil || verdict.Score == nil {
		return 0, "", false
	}
	return int(*verdict.Score), verdict.Feedback, true
}
