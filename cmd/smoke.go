// File: cmd/smoke.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/report"
	"github.com/qaforge/sauceprobe/internal/scenario"
)

// errScenariosFailed makes the process exit non-zero without repeating the summary.
var errScenariosFailed = errors.New("smoke scenarios failed")

// newSmokeCmd creates and configures the `smoke` command.
func newSmokeCmd(a *app) *cobra.Command {
	var names []string

	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "Runs the storefront scenarios in a real browser",
		Long: `Runs the storefront scenarios (login, cart, checkout, failed login) against
pages.base_url. Each scenario gets a browser session of its own and, when
reporting is enabled, an Allure result in report.results_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSmoke(cmd, names)
		},
	}

	flags := smokeCmd.Flags()
	flags.String("driver", "", "browser backend: cdp, playwright or selenium")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("remote-url", "", "WebDriver endpoint for the selenium backend")
	flags.String("base-url", "", "storefront root URL")
	flags.String("results-dir", "", "directory for Allure result files")
	flags.Int("parallel", 1, "number of scenarios to run at once")
	flags.StringSliceVar(&names, "scenario", nil, "run only the named scenarios (repeatable)")

	a.bindFlag(smokeCmd, "browser.driver", "driver")
	a.bindFlag(smokeCmd, "browser.headless", "headless")
	a.bindFlag(smokeCmd, "browser.remote_url", "remote-url")
	a.bindFlag(smokeCmd, "pages.base_url", "base-url")
	a.bindFlag(smokeCmd, "report.results_dir", "results-dir")
	a.bindFlag(smokeCmd, "smoke.parallel", "parallel")

	return smokeCmd
}

func (a *app) runSmoke(cmd *cobra.Command, names []string) error {
	cfg := a.cfg
	logger := a.logger.Named("smoke")

	scenarios, unknown := scenario.Select(scenario.Catalog(), names)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
	}

	var writer *report.Writer
	if cfg.Report.Enabled {
		w, err := report.NewWriter(cfg.Report.ResultsDir)
		if err != nil {
			return err
		}
		writer = w
	}

	runner := &scenario.Runner{
		Open:    a.deps.browserFactory(cfg.Browser, logger),
		Pages:   cfg.Pages,
		Smoke:   cfg.Smoke,
		Reports: writer,
		Logger:  logger,
	}

	logger.Info("Starting smoke run",
		zap.String("driver", string(cfg.Browser.Driver)),
		zap.String("base_url", cfg.Pages.BaseURL),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("parallel", cfg.Smoke.Parallel))

	start := time.Now()
	results, err := scenario.RunAll(cmd.Context(), runner, scenarios, cfg.Smoke.Parallel)
	printSummary(cmd.OutOrStdout(), results, time.Since(start))
	if writer != nil {
		writeLine(cmd.OutOrStdout(), "Allure results: %s", writer.Dir())
	}
	if err != nil {
		return err
	}

	if failed := scenario.Failed(results); failed > 0 {
		return fmt.Errorf("%w: %d of %d", errScenariosFailed, failed, len(results))
	}
	return nil
}

func printSummary(w io.Writer, results []scenario.Result, elapsed time.Duration) {
	for _, r := range results {
		mark := "PASS"
		if !r.Passed() {
			mark = strings.ToUpper(string(r.Status))
		}
		writeLine(w, "%-7s %-20s %s", mark, r.Name, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			writeLine(w, "        %v", r.Err)
		}
	}
	failed := scenario.Failed(results)
	writeLine(w, "%d passed, %d failed in %s", len(results)-failed, failed, elapsed.Round(time.Millisecond))
}
