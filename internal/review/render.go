// internal/review/render.go
package review

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	header    = "================ AI CODE REVIEW ================"
	separator = "------------------------------------------------"
)

var severityIcons = map[Severity]string{
	SeverityBlocker: "🔴",
	SeverityWarning: "🟡",
	SeverityInfo:    "🔵",
}

// Icon returns the marker printed in front of a rule.
func (s Severity) Icon() string {
	if icon, ok := severityIcons[s]; ok {
		return icon
	}
	return "⚪"
}

// Render writes the human readable review to w.
func Render(w io.Writer, rep Report) error {
	var b strings.Builder
	res := rep.Result

	fmt.Fprintf(&b, "\n%s\n\n", header)
	fmt.Fprintf(&b, "TOTAL SCORE: %s/10\n\n", strconv.FormatFloat(res.Score, 'f', -1, 64))
	for _, rule := range res.Rules {
		fmt.Fprintf(&b, "%s %s\n", rule.Severity.Icon(), rule.Rule)
		fmt.Fprintf(&b, "   Severity: %s\n", rule.Severity)
		fmt.Fprintf(&b, "   %s\n\n", rule.Comment)
	}

	verdictIcon := "❌"
	if res.Approved() {
		verdictIcon = "✅"
	}
	fmt.Fprintln(&b, separator)
	fmt.Fprintf(&b, "%s VERDICT: %s\n", verdictIcon, res.FinalVerdict)
	fmt.Fprintf(&b, "SUMMARY: %s\n", res.Summary)
	fmt.Fprintf(&b, "\n⏱ Analysis time: %.2f s\n", rep.Elapsed.Round(time.Millisecond).Seconds())

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the parsed result as indented JSON.
func RenderJSON(w io.Writer, rep Report) error {
	out, err := json.MarshalIndent(rep.Result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
