// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qaforge/sauceprobe/internal/browser/launch"
	"github.com/qaforge/sauceprobe/internal/config"
	"github.com/qaforge/sauceprobe/internal/observability"
	"github.com/qaforge/sauceprobe/internal/pages"
	"github.com/qaforge/sauceprobe/internal/report"
)

// ScreenshotOnFailure names the attachment captured when a scenario fails.
const ScreenshotOnFailure = "screenshot_on_failure"

const failureCaptureTimeout = 10 * time.Second

// Result is the outcome of one scenario run.
type Result struct {
	Name     string
	Status   report.Status
	Err      error
	Duration time.Duration
}

// Passed reports whether the scenario succeeded.
func (r Result) Passed() bool { return r.Err == nil }

// Runner executes scenarios, each in a browser session of its own.
type Runner struct {
	// Open starts a browser session. Every session is closed after its scenario.
	Open  launch.Factory
	Pages config.PagesConfig
	Smoke config.SmokeConfig
	// Reports receives one result per scenario; nil disables reporting.
	Reports *report.Writer
	Logger  *zap.Logger
	// Seed makes generated customer data reproducible; zero picks a random seed.
	Seed uint64
}

// Run executes sc. Failures are reported in the Result, never returned.
func (r *Runner) Run(ctx context.Context, sc Scenario) (res Result) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("scenario", sc.Name))

	start := time.Now()
	res.Name = sc.Name
	defer func() {
		res.Duration = time.Since(start)
		res.Status = report.Classify(res.Err)
	}()

	var tc *report.TestCase
	if r.Reports != nil {
		tc = r.Reports.StartTest(sc.Name, sc.FullName,
			report.Label{Name: "feature", Value: Feature},
			report.Label{Name: "story", Value: sc.Story})
		defer func() {
			if err := tc.Finish(res.Err); err != nil {
				logger.Warn("Could not write report result.", zap.Error(err))
			}
		}()
	}

	logger.Info("Scenario started.")
	driver, err := r.Open(ctx)
	if err != nil {
		res.Err = fmt.Errorf("opening browser: %w", err)
		logger.Error("Scenario could not start.", zap.Error(res.Err))
		return res
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("Browser did not close cleanly.", zap.Error(err))
		}
	}()

	tracer := observability.NewTracer(logger, nil)
	opts := []pages.Option{
		pages.WithTimeout(r.Pages.DefaultTimeout),
		pages.WithPollInterval(r.Pages.PollInterval),
	}
	if tc != nil {
		tracer = tracer.WithSteps(tc)
		opts = append(opts, pages.WithSink(tc))
	}
	opts = append(opts, pages.WithTracer(tracer))

	env := Env{
		Site:  pages.Site{Driver: driver, BaseURL: r.Pages.BaseURL, Options: opts},
		Smoke: r.Smoke,
		Faker: gofakeit.New(r.Seed),
	}

	res.Err = sc.Run(ctx, env)
	if res.Err == nil {
		logger.Info("Scenario passed.", zap.Duration("elapsed", time.Since(start)))
		return res
	}

	logger.Error("Scenario failed.", zap.Error(res.Err))
	if tc != nil && !errors.Is(res.Err, context.Canceled) {
		captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureCaptureTimeout)
		defer cancel()
		png, err := driver.Screenshot(captureCtx)
		if err != nil {
			logger.Warn("Could not capture failure screenshot.", zap.Error(err))
			return res
		}
		if err := tc.Attach(ScreenshotOnFailure, pages.MIMEPNG, png); err != nil {
			logger.Warn("Could not attach failure screenshot.", zap.Error(err))
		}
	}
	return res
}

// RunAll runs scenarios with at most parallel sessions at once and returns
// their results in input order. The error is non-nil only when ctx ended
// before every scenario could start.
func RunAll(ctx context.Context, runner *Runner, scenarios []Scenario, parallel int) ([]Result, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]Result, len(scenarios))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				results[i] = Result{Name: sc.Name, Status: report.StatusBroken, Err: err}
				return err
			}
			results[i] = runner.Run(groupCtx, sc)
			return nil
		})
	}
	return results, g.Wait()
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed() {
			n++
		}
	}
	return n
}
