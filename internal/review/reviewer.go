// internal/review/reviewer.go
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/llmclient"
)

// ErrEmptyCode is returned when there is nothing to review.
var ErrEmptyCode = errors.New("no code supplied")

// Report is a finished review.
type Report struct {
	Result    Result
	Elapsed   time.Duration
	Truncated bool
	// Raw is the unmodified model answer.
	Raw string
}

// Reviewer sends code to an LLM and interprets the answer.
type Reviewer struct {
	client        llmclient.Client
	maxCodeLength int
	logger        *zap.Logger
	now           func() time.Time
}

// NewReviewer creates a Reviewer. maxCodeLength is measured in runes.
func NewReviewer(client llmclient.Client, maxCodeLength int, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{
		client:        client,
		maxCodeLength: maxCodeLength,
		logger:        logger.Named("review"),
		now:           time.Now,
	}
}

// Review asks the model to assess code. An answer that is not valid JSON
// still yields a Report carrying the Fallback result; only empty input and
// provider failures return an error.
func (r *Reviewer) Review(ctx context.Context, code string) (Report, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Report{}, ErrEmptyCode
	}

	code, truncated := Truncate(code, r.maxCodeLength)
	if truncated {
		r.logger.Warn("Code exceeds the review limit and was truncated", zap.Int("max_runes", r.maxCodeLength))
	}

	start := r.now()
	raw, err := r.client.Generate(ctx, llmclient.GenerationRequest{
		UserPrompt: BuildPrompt(code),
		ForceJSON:  true,
	})
	if err != nil {
		return Report{}, fmt.Errorf("requesting review: %w", err)
	}
	elapsed := r.now().Sub(start)

	res, perr := Parse(raw)
	if perr != nil {
		r.logger.Warn("Model answer was not valid JSON, using fallback result", zap.Error(perr))
	}
	r.logger.Debug("Review complete",
		zap.Float64("score", res.Score),
		zap.String("verdict", res.FinalVerdict),
		zap.Duration("elapsed", elapsed))

	return Report{Result: res, Elapsed: elapsed, Truncated: truncated, Raw: raw}, nil
}
