// File: cmd/review.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/review"
)

// newReviewCmd creates and configures the `review` command.
func newReviewCmd(a *app) *cobra.Command {
	var asJSON bool

	reviewCmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Asks an LLM to review a fragment of test code",
		Long: `Sends test code to the configured LLM provider and prints a scored review
against six QA automation rules. The code is read from the file argument, or
from stdin when no file is given (editor integrations pipe the selection in).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReview(cmd, args, asJSON)
		},
	}

	flags := reviewCmd.Flags()
	flags.String("provider", "", "LLM provider: openai, gemini or mistral")
	flags.Int("max-code-length", 0, "truncate the code to this many characters")
	flags.BoolVar(&asJSON, "json", false, "print the parsed result as JSON")

	a.bindFlag(reviewCmd, "review.provider", "provider")
	a.bindFlag(reviewCmd, "review.max_code_length", "max-code-length")

	return reviewCmd
}

func (a *app) runReview(cmd *cobra.Command, args []string, asJSON bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cfg := a.cfg.Review
	logger := a.logger

	code, err := readCode(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		writeLine(cmd.ErrOrStderr(), "❌ Error: no code supplied")
		return review.ErrEmptyCode
	}

	client, err := a.deps.llmClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reviewer := review.NewReviewer(client, cfg.MaxCodeLength, logger)

	rep, err := reviewer.Review(ctx, code)
	if err != nil {
		writeLine(cmd.ErrOrStderr(), "⚠️ AI request failed")
		writeLine(cmd.ErrOrStderr(), "%v", err)
		return err
	}
	logger.Info("Code review finished",
		zap.String("provider", string(cfg.Provider)),
		zap.Bool("truncated", rep.Truncated),
		zap.Duration("elapsed", rep.Elapsed))

	if asJSON {
		return review.RenderJSON(out, rep)
	}
	return review.Render(out, rep)
}

func readCode(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
