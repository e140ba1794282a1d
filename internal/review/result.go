// internal/review/result.go
package review

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Severity grades a single rule finding.
type Severity string

const (
	SeverityBlocker Severity = "BLOCKER"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

const (
	VerdictApprove = "APPROVE"
	VerdictReject  = "REJECT"
)

// InvalidJSONSummary is the summary of the fallback result.
const InvalidJSONSummary = "AI returned invalid JSON"

// RuleResult is the model's assessment of one rule.
type RuleResult struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Comment  string   `json:"comment"`
}

// Result is the structured review answer.
type Result struct {
	Score        float64      `json:"score"`
	Rules        []RuleResult `json:"rules"`
	FinalVerdict string       `json:"final_verdict"`
	Summary      string       `json:"summary"`
}

// Approved reports whether the verdict is APPROVE.
func (r Result) Approved() bool {
	return r.FinalVerdict == VerdictApprove
}

// Fallback is the result used when the model's answer cannot be decoded.
func Fallback() Result {
	return Result{Score: 0, Rules: []RuleResult{}, FinalVerdict: VerdictReject, Summary: InvalidJSONSummary}
}

// Parse decodes a model answer. Surrounding markdown fences and chatter
// outside the outermost braces are tolerated. On failure it returns the
// Fallback result together with the decode error.
func Parse(raw string) (Result, error) {
	body := extractJSON(raw)
	if body == "" {
		return Fallback(), errors.New("no JSON object in model answer")
	}

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return Fallback(), fmt.Errorf("decoding model answer: %w", err)
	}
	if res.Rules == nil {
		res.Rules = []RuleResult{}
	}
	for i := range res.Rules {
		if res.Rules[i].Severity == "" {
			res.Rules[i].Severity = SeverityInfo
		}
	}
	if res.FinalVerdict == "" {
		res.FinalVerdict = VerdictReject
	}
	return res, nil
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (it may carry a language tag).
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
