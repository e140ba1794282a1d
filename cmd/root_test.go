// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/browser/browsertest"
	"github.com/qaforge/sauceprobe/internal/browser/launch"
	"github.com/qaforge/sauceprobe/internal/config"
	"github.com/qaforge/sauceprobe/internal/llmclient"
	"github.com/qaforge/sauceprobe/internal/review"
)

const testConfig = `
logger:
  level: debug
  log_file: ""
pages:
  base_url: https://shop.test/
  default_timeout: 200ms
  poll_interval: 10ms
report:
  results_dir: results
review:
  openai:
    api_key: test-key
`

// -- Test Setup Helpers --

type stubLLM struct {
	answer string
	err    error
	prompt string
}

func (s *stubLLM) Generate(_ context.Context, req llmclient.GenerationRequest) (string, error) {
	s.prompt = req.UserPrompt
	return s.answer, s.err
}

type harness struct {
	mu      sync.Mutex
	drivers []*browsertest.FakeDriver
	openErr error
	llm     *stubLLM
	dir     string
}

// newHarness moves the test into a scratch directory holding config.yaml.
func newHarness(t *testing.T, cfgYAML string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0o600))
	return &harness{llm: &stubLLM{}, dir: dir}
}

func (h *harness) deps() dependencies {
	return dependencies{
		browserFactory: func(cfg config.BrowserConfig, _ *zap.Logger) launch.Factory {
			return func(context.Context) (browser.Driver, error) {
				if h.openErr != nil {
					return nil, h.openErr
				}
				h.mu.Lock()
				defer h.mu.Unlock()
				d, _ := browsertest.NewDriver("https://shop.test/")
				h.drivers = append(h.drivers, d)
				return d, nil
			}
		},
		llmClient: func(context.Context, config.ReviewConfig, *zap.Logger) (llmclient.Client, error) {
			return h.llm, nil
		},
		console: zapcore.AddSync(io.Discard),
	}
}

func (h *harness) execute(stdin string, args ...string) (stdout, stderr string, err error) {
	root := newRootCmd(h.deps())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// -- Root --

func TestRoot_InvalidConfigIsReported(t *testing.T) {
	h := newHarness(t, testConfig+"smoke:\n  parallel: 0\n")

	_, _, err := h.execute("", "smoke")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoke.parallel must be a positive integer")
}

func TestRoot_ExplicitConfigFile(t *testing.T) {
	h := newHarness(t, testConfig)
	custom := filepath.Join(h.dir, "custom.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(testConfig+"browser:\n  driver: firefox\n"), 0o600))

	_, _, err := h.execute("", "--config", custom, "smoke")

	assert.ErrorContains(t, err, `browser.driver "firefox"`)
}

func TestRoot_DotEnvSuppliesSecrets(t *testing.T) {
	h := newHarness(t, strings.Replace(testConfig, "    api_key: test-key\n", "    model: gpt-test\n", 1))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, ".env"), []byte("OPENAI_API_KEY=from-dotenv\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "")
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))

	var seen config.ReviewConfig
	root := newRootCmd(dependencies{
		browserFactory: h.deps().browserFactory,
		llmClient: func(_ context.Context, cfg config.ReviewConfig, _ *zap.Logger) (llmclient.Client, error) {
			seen = cfg
			return &stubLLM{answer: `{"score": 10, "final_verdict": "APPROVE"}`}, nil
		},
		console: zapcore.AddSync(io.Discard),
	})
	root.SetOut(io.Discard)
	root.SetIn(strings.NewReader("code"))
	root.SetArgs([]string{"review"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "from-dotenv", seen.OpenAI.APIKey)
	assert.Equal(t, "gpt-test", seen.OpenAI.Model)
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t, "pages: [this is not valid yaml")

	out, _, err := h.execute("", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "sauceprobe "+Version)
}

// -- Smoke --

func TestSmoke_AllScenariosPass(t *testing.T) {
	h := newHarness(t, testConfig)

	out, _, err := h.execute("", "smoke", "--parallel", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "4 passed, 0 failed")
	assert.Contains(t, out, "Allure results: results")

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.drivers, 4)
	for _, d := range h.drivers {
		assert.True(t, d.Closed)
	}

	files, err := filepath.Glob(filepath.Join(h.dir, "results", "*-result.json"))
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestSmoke_SelectedScenario(t *testing.T) {
	h := newHarness(t, testConfig)

	out, _, err := h.execute("", "smoke", "--scenario", "failed login", "--results-dir", "custom")

	require.NoError(t, err)
	assert.Contains(t, out, "Failed login")
	assert.Contains(t, out, "1 passed, 0 failed")
	assert.DirExists(t, filepath.Join(h.dir, "custom"))
}

func TestSmoke_UnknownScenario(t *testing.T) {
	h := newHarness(t, testConfig)

	_, _, err := h.execute("", "smoke", "--scenario", "logout")

	assert.ErrorContains(t, err, "unknown scenario(s): logout")
}

func TestSmoke_BrowserFailureFailsTheRun(t *testing.T) {
	h := newHarness(t, strings.Replace(testConfig, "report:\n", "report:\n  enabled: false\n", 1))
	h.openErr = errors.New("chrome not found")

	out, _, err := h.execute("", "smoke", "--scenario", "Successful login")

	require.ErrorIs(t, err, errScenariosFailed)
	assert.Contains(t, out, "BROKEN")
	assert.Contains(t, out, "chrome not found")
	assert.NotContains(t, out, "Allure results")
	assert.NoDirExists(t, filepath.Join(h.dir, "results"))
}

// -- Review --

const approvedAnswer = "```json\n" + `{"score": 9, "rules": [{"rule": "Test architecture", "severity": "INFO", "comment": "Clean."}], "final_verdict": "APPROVE", "summary": "Ship it."}` + "\n```"

func TestReview_Stdin(t *testing.T) {
	h := newHarness(t, testConfig)
	h.llm.answer = approvedAnswer

	out, _, err := h.execute("func TestLogin(t *testing.T) {}\n", "review")

	require.NoError(t, err)
	assert.Contains(t, h.llm.prompt, "func TestLogin(t *testing.T) {}")
	assert.Contains(t, out, "TOTAL SCORE: 9/10")
	assert.Contains(t, out, "🔵 Test architecture")
	assert.Contains(t, out, "✅ VERDICT: APPROVE")
	assert.Contains(t, out, "⏱ Analysis time:")
}

func TestReview_FileArgumentAsJSON(t *testing.T) {
	h := newHarness(t, testConfig)
	h.llm.answer = "not json at all"
	src := filepath.Join(h.dir, "login_test.go")
	require.NoError(t, os.WriteFile(src, []byte("package login"), 0o600))

	out, _, err := h.execute("", "review", src, "--json")

	require.NoError(t, err)
	assert.Contains(t, h.llm.prompt, "package login")
	assert.Contains(t, out, `"final_verdict": "REJECT"`)
	assert.Contains(t, out, review.InvalidJSONSummary)
}

func TestReview_EmptyInput(t *testing.T) {
	h := newHarness(t, testConfig)

	_, stderr, err := h.execute("   \n", "review")

	assert.ErrorIs(t, err, review.ErrEmptyCode)
	assert.Contains(t, stderr, "no code supplied")
}

func TestReview_EmptyInputSkipsProviderSetup(t *testing.T) {
	h := newHarness(t, testConfig)

	built := false
	root := newRootCmd(dependencies{
		browserFactory: h.deps().browserFactory,
		llmClient: func(context.Context, config.ReviewConfig, *zap.Logger) (llmclient.Client, error) {
			built = true
			return nil, errors.New("openai API key is required")
		},
		console: zapcore.AddSync(io.Discard),
	})
	var errOut bytes.Buffer
	root.SetOut(io.Discard)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader("\n\t \n"))
	root.SetArgs([]string{"review"})

	err := root.ExecuteContext(context.Background())

	assert.ErrorIs(t, err, review.ErrEmptyCode)
	assert.Contains(t, errOut.String(), "no code supplied")
	assert.NotContains(t, errOut.String(), "API key")
	assert.False(t, built, "no client is built for empty input")
}

func TestReview_ProviderFailure(t *testing.T) {
	h := newHarness(t, testConfig)
	h.llm.err = errors.New("openai API error: status 401")

	_, stderr, err := h.execute("code", "review")

	require.Error(t, err)
	assert.Contains(t, stderr, "AI request failed")
	assert.Contains(t, stderr, "status 401")
}

func TestReview_UnknownProviderFlag(t *testing.T) {
	h := newHarness(t, testConfig)

	_, _, err := h.execute("code", "review", "--provider", "claude")

	assert.ErrorContains(t, err, `review.provider "claude"`)
}
