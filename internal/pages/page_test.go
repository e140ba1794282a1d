// internal/pages/page_test.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/browser/browsertest"
	"github.com/qaforge/sauceprobe/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// -- Mocks --

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Attach(name, mimeType string, data []byte) error {
	args := m.Called(name, mimeType, data)
	return args.Error(0)
}

// -- Helpers --

var target = browser.CSS("div.target")

const (
	testTimeout = 60 * time.Millisecond
	testPoll    = 5 * time.Millisecond
)

func node(label string) *browsertest.Node {
	return &browsertest.Node{Tag: "div", Label: label, Locators: []browser.Locator{target}}
}

func setupPage(t *testing.T, nodes ...*browsertest.Node) (*Page, *browsertest.FakeDriver, *MockSink, *observer.ObservedLogs) {
	t.Helper()
	doc := &browsertest.StaticDocument{Address: "https://shop.test/inventory.html", Nodes: nodes}
	driver := browsertest.NewFakeDriver(doc)
	sink := &MockSink{}
	core, logs := observer.New(zap.DebugLevel)
	page := NewPage(driver, "https://shop.test/", WithTimeout(testTimeout), WithPollInterval(testPoll),
		WithSink(sink), WithTracer(observability.NewTracer(zap.New(core), nil)))
	return page, driver, sink, logs
}

// -- FindElement --

func TestPage_FindElement(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the first visible match", func(t *testing.T) {
		hidden, shown := node("hidden"), node("shown")
		hidden.Hidden = true
		page, _, sink, _ := setupPage(t, hidden, shown)

		el, err := page.FindElement(ctx, target)

		require.NoError(t, err)
		assert.Same(t, shown, el)
		sink.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("polls until the element renders", func(t *testing.T) {
		page, driver, _, _ := setupPage(t, node("late"))
		driver.HiddenPolls = 3

		el, err := page.FindElement(ctx, target)

		require.NoError(t, err)
		assert.NotNil(t, el)
		assert.Equal(t, 4, driver.FindCalls)
	})

	t.Run("times out with exactly one screenshot", func(t *testing.T) {
		hidden := node("never")
		hidden.Hidden = true
		page, driver, sink, _ := setupPage(t, hidden)
		sink.On("Attach", ScreenshotOnError, MIMEPNG, browsertest.PNG).Return(nil).Once()

		start := time.Now()
		_, err := page.FindElement(ctx, target)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrElementTimeout)
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, target, te.Locator)
		assert.Equal(t, testTimeout, te.Timeout)
		assert.GreaterOrEqual(t, time.Since(start), testTimeout)
		assert.Equal(t, 1, driver.Screenshots)
		sink.AssertExpectations(t)
	})

	t.Run("Within overrides the default timeout", func(t *testing.T) {
		page, driver, sink, _ := setupPage(t)
		sink.On("Attach", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := page.FindElement(ctx, target, Within(0))

		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, time.Duration(0), te.Timeout)
		assert.Equal(t, 1, driver.FindCalls, "a zero timeout still checks once")
	})

	t.Run("screenshot failures do not mask the timeout", func(t *testing.T) {
		page, driver, sink, logs := setupPage(t)
		driver.ScreenshotErr = errors.New("no top-level browsing context")

		_, err := page.FindElement(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Equal(t, 1, driver.Screenshots)
		sink.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1, logs.FilterMessage("Could not capture screenshot after timeout").Len())
	})

	t.Run("attachment failures do not mask the timeout", func(t *testing.T) {
		page, _, sink, logs := setupPage(t)
		sink.On("Attach", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := page.FindElement(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Equal(t, 1, logs.FilterMessage("Could not attach screenshot").Len())
		sink.AssertExpectations(t)
	})

	t.Run("infrastructure errors propagate immediately and unchanged", func(t *testing.T) {
		page, driver, sink, _ := setupPage(t, node("x"))
		crash := errors.New("invalid session id")
		driver.FindErr = crash

		_, err := page.FindElement(ctx, target)

		assert.Same(t, crash, err)
		assert.Equal(t, 1, driver.FindCalls)
		assert.Zero(t, driver.Screenshots)
		sink.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing elements keep the wait alive", func(t *testing.T) {
		page, driver, sink, _ := setupPage(t)
		driver.FindErr = browser.ErrNoSuchElement
		sink.On("Attach", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := page.FindElement(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Greater(t, driver.FindCalls, 1)
	})

	t.Run("cancellation ends the wait without a screenshot", func(t *testing.T) {
		page, driver, _, _ := setupPage(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := page.FindElement(cctx, target, Within(time.Minute))

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, driver.Screenshots)
	})
}

// -- FindElements --

func TestPage_FindElements(t *testing.T) {
	ctx := context.Background()

	t.Run("returns every match when all are visible", func(t *testing.T) {
		a, b := node("a"), node("b")
		page, _, _, _ := setupPage(t, a, b)

		els, err := page.FindElements(ctx, target)

		require.NoError(t, err)
		require.Len(t, els, 2)
		assert.Same(t, a, els[0])
		assert.Same(t, b, els[1])
	})

	t.Run("a hidden match keeps the wait alive", func(t *testing.T) {
		hidden := node("b")
		hidden.Hidden = true
		page, driver, sink, _ := setupPage(t, node("a"), hidden)
		sink.On("Attach", ScreenshotOnError, MIMEPNG, mock.Anything).Return(nil).Once()

		_, err := page.FindElements(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Equal(t, 1, driver.Screenshots)
		sink.AssertExpectations(t)
	})

	t.Run("an empty result never satisfies the wait", func(t *testing.T) {
		page, driver, sink, _ := setupPage(t)
		sink.On("Attach", ScreenshotOnError, MIMEPNG, mock.Anything).Return(nil).Once()

		_, err := page.FindElements(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Equal(t, 1, driver.Screenshots)
	})
}

// -- Interaction primitives --

func TestPage_ClickElement(t *testing.T) {
	ctx := context.Background()

	t.Run("clicks a visible enabled element", func(t *testing.T) {
		clicked := 0
		n := node("button")
		n.OnClick = func() error { clicked++; return nil }
		page, _, _, _ := setupPage(t, n)

		require.NoError(t, page.ClickElement(ctx, target))
		assert.Equal(t, 1, clicked)
	})

	t.Run("waits for the element to become enabled and never captures", func(t *testing.T) {
		n := node("button")
		n.Disabled = true
		page, driver, sink, _ := setupPage(t, n)

		err := page.ClickElement(ctx, target)

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Zero(t, driver.Screenshots)
		sink.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPage_EnterText(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces existing content", func(t *testing.T) {
		n := node("")
		n.Value = "old"
		page, _, _, _ := setupPage(t, n)

		require.NoError(t, page.EnterText(ctx, target, "new"))
		assert.Equal(t, "new", n.Value)
	})

	t.Run("never captures on timeout", func(t *testing.T) {
		page, driver, _, _ := setupPage(t)

		err := page.EnterText(ctx, target, "text")

		assert.ErrorIs(t, err, ErrElementTimeout)
		assert.Zero(t, driver.Screenshots)
	})

	t.Run("secrets are masked in logs", func(t *testing.T) {
		n := node("")
		page, _, _, logs := setupPage(t, n)

		require.NoError(t, page.EnterSecret(ctx, target, "secret_sauce"))
		assert.Equal(t, "secret_sauce", n.Value)
		for _, entry := range logs.All() {
			assert.NotContains(t, fmt.Sprint(entry.ContextMap()), "secret_sauce")
		}
	})
}

func TestPage_GetTextAndJSClick(t *testing.T) {
	ctx := context.Background()
	clicked := 0
	n := node("Finish")
	n.OnClick = func() error { clicked++; return nil }
	page, driver, _, _ := setupPage(t, n)

	text, err := page.GetText(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "Finish", text)

	require.NoError(t, page.JSClickElement(ctx, target))
	assert.Equal(t, []string{browser.ClickScript}, driver.Scripts)
	assert.Equal(t, 1, clicked)
}

func TestPage_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("navigates to a fixed address", func(t *testing.T) {
		page, driver, _, _ := setupPage(t)

		require.NoError(t, page.Open(ctx))
		assert.Equal(t, []string{"https://shop.test/"}, driver.Navigations)
	})

	t.Run("pages without an address reload the current document", func(t *testing.T) {
		doc := &browsertest.StaticDocument{Address: "https://shop.test/cart.html"}
		driver := browsertest.NewFakeDriver(doc)
		page := NewPage(driver, "")

		require.NoError(t, page.Open(ctx))
		assert.Equal(t, []string{"https://shop.test/cart.html"}, driver.Navigations)
	})
}

func TestPage_Instrumentation(t *testing.T) {
	page, _, _, logs := setupPage(t, node("x"))

	_, err := page.FindElement(context.Background(), target)
	require.NoError(t, err)

	entering := logs.FilterMessage("Entering").All()
	require.NotEmpty(t, entering)
	assert.Equal(t, "BasePage.FindElement", entering[0].ContextMap()["method"])
	assert.Equal(t, 1, logs.FilterMessage("Exiting").Len())
}
