// internal/review/prompt.go
package review

import (
	"strings"
	"unicode/utf8"
)

// MaxCodeFallback is used when no positive code length limit is configured.
const MaxCodeFallback = 12000

// Rules lists the review criteria in the order the model must answer them.
var Rules = []string{
	"Test reliability and stability",
	"Assertions and verifiability",
	"Readability and intent",
	"Hardcoding and test data",
	"Repetition and DRY",
	"Test architecture",
}

const promptTemplate = `You are a Senior QA Automation Engineer.

Review the following fragment of automated test code.
Answer in English only.

Evaluate the code STRICTLY against the 6 rules below.
For every rule give:
- severity: BLOCKER | WARNING | INFO
- a short, concrete comment

ANSWER FORMAT: STRICT JSON, nothing else:

{
  "score": 0-10,
  "rules": [
{{RULES}}
  ],
  "final_verdict": "APPROVE|REJECT",
  "summary": "Short conclusion and the single most important action"
}

CODE:
` + "```" + `
{{CODE}}
` + "```" + `
`

// BuildPrompt embeds code into the review prompt.
func BuildPrompt(code string) string {
	lines := make([]string, len(Rules))
	for i, rule := range Rules {
		line := `    {"rule": "` + rule + `", "severity": "BLOCKER|WARNING|INFO", "comment": "..."}`
		if i < len(Rules)-1 {
			line += ","
		}
		lines[i] = line
	}
	r := strings.NewReplacer("{{RULES}}", strings.Join(lines, "\n"), "{{CODE}}", code)
	return r.Replace(promptTemplate)
}

// Truncate cuts code to at most max runes and reports whether it did.
func Truncate(code string, max int) (string, bool) {
	if max <= 0 {
		max = MaxCodeFallback
	}
	if utf8.RuneCountInString(code) <= max {
		return code, false
	}
	n := 0
	for i := range code {
		if n == max {
			return code[:i], true
		}
		n++
	}
	return code, false
}
