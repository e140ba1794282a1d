// internal/scenario/scenario_test.go
package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/browser/browsertest"
	"github.com/qaforge/sauceprobe/internal/config"
	"github.com/qaforge/sauceprobe/internal/pages"
	"github.com/qaforge/sauceprobe/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const shopURL = "https://shop.test/"

// -- Helpers --

type fleet struct {
	mu      sync.Mutex
	drivers []*browsertest.FakeDriver
	shops   []*browsertest.Storefront
}

func (f *fleet) open(context.Context) (browser.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, shop := browsertest.NewDriver(shopURL)
	f.drivers = append(f.drivers, d)
	f.shops = append(f.shops, shop)
	return d, nil
}

func (f *fleet) allClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drivers {
		if !d.Closed {
			return false
		}
	}
	return true
}

func newRunner(t *testing.T, f *fleet) *Runner {
	t.Helper()
	return &Runner{
		Open: f.open,
		Pages: config.PagesConfig{
			BaseURL:        shopURL,
			DefaultTimeout: 50 * time.Millisecond,
			PollInterval:   5 * time.Millisecond,
		},
		Smoke: config.SmokeConfig{
			Username:    "standard_user",
			Password:    browsertest.Password,
			BadPassword: "wrong_password",
		},
		Logger: zaptest.NewLogger(t),
		Seed:   7,
	}
}

type resultDoc struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Attachments []struct {
		Name string `json:"name"`
	} `json:"attachments"`
}

func readResults(t *testing.T, dir string) []resultDoc {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*-result.json"))
	require.NoError(t, err)
	docs := make([]resultDoc, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		var doc resultDoc
		require.NoError(t, jsoniter.Unmarshal(data, &doc))
		docs = append(docs, doc)
	}
	return docs
}

// -- Tests --

func TestCatalog_PassesAgainstStorefront(t *testing.T) {
	f := &fleet{}
	runner := newRunner(t, f)
	w, err := report.NewWriter(t.TempDir())
	require.NoError(t, err)
	runner.Reports = w

	results, err := RunAll(context.Background(), runner, Catalog(), 2)

	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, sc := range Catalog() {
		assert.Equal(t, sc.Name, results[i].Name, "results keep catalog order")
		assert.NoError(t, results[i].Err, sc.Name)
		assert.Equal(t, report.StatusPassed, results[i].Status)
	}
	assert.Zero(t, Failed(results))
	assert.Len(t, f.drivers, 4, "one session per scenario")
	assert.True(t, f.allClosed())

	docs := readResults(t, w.Dir())
	require.Len(t, docs, 4)
	for _, doc := range docs {
		assert.Equal(t, "passed", doc.Status, doc.Name)
	}
}

func TestRunner_CheckoutPlacesOrderWithGeneratedCustomer(t *testing.T) {
	f := &fleet{}
	runner := newRunner(t, f)
	checkout, _ := Select(Catalog(), []string{"checkout"})
	require.Len(t, checkout, 1)

	res := runner.Run(context.Background(), checkout[0])

	require.NoError(t, res.Err)
	first, last, zip := f.shops[0].Customer()
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, last)
	assert.NotEmpty(t, zip)
	assert.Equal(t, 1, f.shops[0].ScriptClicks)
}

func TestRunner_FailureIsReportedWithScreenshot(t *testing.T) {
	f := &fleet{}
	runner := newRunner(t, f)
	runner.Smoke.Password = "not_the_password"
	dir := t.TempDir()
	w, err := report.NewWriter(dir)
	require.NoError(t, err)
	runner.Reports = w

	res := runner.Run(context.Background(), Catalog()[0])

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, pages.ErrElementTimeout)
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.True(t, f.allClosed())
	assert.Equal(t, 2, f.drivers[0].Screenshots, "one on the timeout, one for the failure")

	docs := readResults(t, dir)
	require.Len(t, docs, 1)
	assert.Equal(t, "failed", docs[0].Status)
	require.Len(t, docs[0].Attachments, 1)
	assert.Equal(t, ScreenshotOnFailure, docs[0].Attachments[0].Name)
}

func TestRunner_AssertionFailure(t *testing.T) {
	f := &fleet{}
	runner := newRunner(t, f)
	failing := Scenario{
		Name: "never true",
		Run: func(ctx context.Context, env Env) error {
			return expect(false, "cart holds %d items, want 1", 0)
		},
	}

	res := runner.Run(context.Background(), failing)

	assert.ErrorIs(t, res.Err, report.ErrAssertion)
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Contains(t, res.Err.Error(), "cart holds 0 items")
}

func TestRunner_BrowserThatWillNotStartIsBroken(t *testing.T) {
	runner := newRunner(t, &fleet{})
	runner.Open = func(context.Context) (browser.Driver, error) {
		return nil, errors.New("chrome failed to start")
	}

	res := runner.Run(context.Background(), Catalog()[0])

	assert.ErrorContains(t, res.Err, "opening browser")
	assert.Equal(t, report.StatusBroken, res.Status)
	assert.False(t, res.Passed())
}

func TestRunAll_CancelledContext(t *testing.T) {
	f := &fleet{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunAll(ctx, newRunner(t, f), Catalog(), 0)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 4)
	assert.Equal(t, 4, Failed(results))
	assert.Empty(t, f.drivers, "no session is opened after cancellation")
}

func TestSelect(t *testing.T) {
	selected, unknown := Select(Catalog(), []string{"Failed Login", "saucedemo.cart.add_item", "refund"})

	require.Len(t, selected, 2)
	assert.Equal(t, "Failed login", selected[0].Name)
	assert.Equal(t, "Add item to cart", selected[1].Name)
	assert.Equal(t, []string{"refund"}, unknown)

	all, none := Select(Catalog(), nil)
	assert.Len(t, all, 4)
	assert.Empty(t, none)
}

func TestNewCheckoutData(t *testing.T) {
	data, err := NewCheckoutData(gofakeit.New(42))

	require.NoError(t, err)
	assert.NoError(t, data.Validate())
	assert.NotEmpty(t, strings.TrimSpace(data.PostalCode()))
}
