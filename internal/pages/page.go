// internal/pages/page.go
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/observability"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every wait unless overridden.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is how often a wait re-checks its condition.
	DefaultPollInterval = 500 * time.Millisecond

	// ScreenshotOnError names the attachment captured when a lookup times out.
	ScreenshotOnError = "screenshot_on_error"
	// MIMEPNG is the media type of screenshot attachments.
	MIMEPNG = "image/png"
)

// DiagnosticSink receives named binary attachments, usually for a test report.
type DiagnosticSink interface {
	Attach(name, mimeType string, data []byte) error
}

type nopSink struct{}

func (nopSink) Attach(string, string, []byte) error { return nil }

// Page holds a driver handle and a page address and provides the bounded-wait
// interaction primitives every screen is built from. Concrete pages embed
// nothing from it; they hold a *Page and call its methods.
//
// Lookups poll the driver until their condition holds or the timeout elapses.
// A driver report of a missing or stale element only means "not yet"; any
// other driver error ends the wait immediately and is returned unchanged.
type Page struct {
	name    string
	driver  browser.Driver
	url     string
	timeout time.Duration
	poll    time.Duration
	sink    DiagnosticSink
	tracer  *observability.Tracer
}

// Option configures a Page.
type Option func(*Page)

// WithTimeout sets the default wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Page) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollInterval sets how often waits re-check their condition.
func WithPollInterval(d time.Duration) Option {
	return func(p *Page) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithSink sets where timeout screenshots are attached.
func WithSink(s DiagnosticSink) Option {
	return func(p *Page) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithTracer instruments every page operation.
func WithTracer(t *observability.Tracer) Option {
	return func(p *Page) { p.tracer = t }
}

func named(name string) Option {
	return func(p *Page) { p.name = name }
}

// NewPage creates a page bound to driver. An empty url binds the page to
// whatever document the driver shows when Open is called.
func NewPage(driver browser.Driver, url string, opts ...Option) *Page {
	p := &Page{
		name:    "BasePage",
		driver:  driver,
		url:     url,
		timeout: DefaultTimeout,
		poll:    DefaultPollInterval,
		sink:    nopSink{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Driver returns the page's driver handle.
func (p *Page) Driver() browser.Driver { return p.driver }

// URL returns the page address, resolving it from the driver for pages that
// have no fixed address.
func (p *Page) URL(ctx context.Context) (string, error) {
	if p.url != "" {
		return p.url, nil
	}
	return p.driver.CurrentURL(ctx)
}

// WaitOption adjusts a single wait.
type WaitOption func(*time.Duration)

// Within overrides the timeout of one call.
func Within(d time.Duration) WaitOption {
	return func(t *time.Duration) { *t = d }
}

func (p *Page) timeoutFor(opts []WaitOption) time.Duration {
	t := p.timeout
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (p *Page) method(name string) string { return p.name + "." + name }

// -- Primitives --

// Open navigates the driver to the page's address.
func (p *Page) Open(ctx context.Context) error {
	return p.tracer.Do(p.method("Open"), nil, "Open page", func() error {
		url, err := p.URL(ctx)
		if err != nil {
			return err
		}
		return p.driver.Navigate(ctx, url)
	})
}

// FindElement waits until an element matching loc is visible and returns the
// first visible match. On timeout a screenshot is attached before the
// *TimeoutError is returned.
func (p *Page) FindElement(ctx context.Context, loc browser.Locator, opts ...WaitOption) (browser.Element, error) {
	timeout := p.timeoutFor(opts)
	return observability.Call(p.tracer, p.method("FindElement"), []any{loc.String(), timeout.String()},
		fmt.Sprintf("Find visible element %s", loc),
		func() (browser.Element, error) {
			els, err := p.await(ctx, loc, timeout, visibilityOfAny)
			if err != nil {
				p.captureOnTimeout(ctx, err)
				return nil, err
			}
			return els[0], nil
		})
}

// FindElements waits until at least one element matches loc and every match
// is visible, then returns them in document order. Timeouts are captured as
// in FindElement.
func (p *Page) FindElements(ctx context.Context, loc browser.Locator, opts ...WaitOption) ([]browser.Element, error) {
	timeout := p.timeoutFor(opts)
	return observability.Call(p.tracer, p.method("FindElements"), []any{loc.String(), timeout.String()},
		fmt.Sprintf("Find all visible elements %s", loc),
		func() ([]browser.Element, error) {
			els, err := p.await(ctx, loc, timeout, visibilityOfAll)
			if err != nil {
				p.captureOnTimeout(ctx, err)
				return nil, err
			}
			return els, nil
		})
}

// ClickElement waits for a visible, enabled element and clicks it natively.
// No screenshot is taken on timeout.
func (p *Page) ClickElement(ctx context.Context, loc browser.Locator, opts ...WaitOption) error {
	timeout := p.timeoutFor(opts)
	return p.tracer.Do(p.method("ClickElement"), []any{loc.String(), timeout.String()},
		fmt.Sprintf("Click element %s", loc),
		func() error {
			els, err := p.await(ctx, loc, timeout, elementToBeClickable)
			if err != nil {
				return err
			}
			return els[0].Click(ctx)
		})
}

// EnterText waits for a visible, enabled element, clears it and types text.
// No screenshot is taken on timeout.
func (p *Page) EnterText(ctx context.Context, loc browser.Locator, text string, opts ...WaitOption) error {
	return p.enterText(ctx, loc, text, text, opts)
}

// EnterSecret behaves like EnterText but keeps text out of logs and reports.
func (p *Page) EnterSecret(ctx context.Context, loc browser.Locator, text string, opts ...WaitOption) error {
	return p.enterText(ctx, loc, text, observability.Masked, opts)
}

func (p *Page) enterText(ctx context.Context, loc browser.Locator, text, shown string, opts []WaitOption) error {
	timeout := p.timeoutFor(opts)
	return p.tracer.Do(p.method("EnterText"), []any{loc.String(), shown, timeout.String()},
		fmt.Sprintf("Enter text '%s' into element %s", shown, loc),
		func() error {
			els, err := p.await(ctx, loc, timeout, elementToBeClickable)
			if err != nil {
				return err
			}
			if err := els[0].Clear(ctx); err != nil {
				return err
			}
			return els[0].SendKeys(ctx, text)
		})
}

// GetText resolves loc through FindElement and returns the element's rendered text.
func (p *Page) GetText(ctx context.Context, loc browser.Locator, opts ...WaitOption) (string, error) {
	return observability.Call(p.tracer, p.method("GetText"), []any{loc.String()},
		fmt.Sprintf("Get text of element %s", loc),
		func() (string, error) {
			el, err := p.FindElement(ctx, loc, opts...)
			if err != nil {
				return "", err
			}
			return el.Text(ctx)
		})
}

// JSClickElement resolves loc through FindElement and clicks it by script
// rather than by a native input event.
func (p *Page) JSClickElement(ctx context.Context, loc browser.Locator, opts ...WaitOption) error {
	return p.tracer.Do(p.method("JSClickElement"), []any{loc.String()},
		fmt.Sprintf("Click element %s with JavaScript", loc),
		func() error {
			el, err := p.FindElement(ctx, loc, opts...)
			if err != nil {
				return err
			}
			_, err = p.driver.ExecuteScript(ctx, browser.ClickScript, el)
			return err
		})
}

// -- Waiting --

// condition inspects a lookup snapshot. It returns the elements to hand back
// and whether the wait is over.
type condition struct {
	name  string
	check func(ctx context.Context, els []browser.Element) ([]browser.Element, bool, error)
}

var visibilityOfAny = condition{
	name: "visible",
	check: func(ctx context.Context, els []browser.Element) ([]browser.Element, bool, error) {
		for _, el := range els {
			ok, err := el.IsDisplayed(ctx)
			if err != nil {
				if browser.IsTransient(err) {
					continue
				}
				return nil, false, err
			}
			if ok {
				return []browser.Element{el}, true, nil
			}
		}
		return nil, false, nil
	},
}

var visibilityOfAll = condition{
	name: "all visible",
	check: func(ctx context.Context, els []browser.Element) ([]browser.Element, bool, error) {
		if len(els) == 0 {
			return nil, false, nil
		}
		for _, el := range els {
			ok, err := el.IsDisplayed(ctx)
			if err != nil {
				if browser.IsTransient(err) {
					return nil, false, nil
				}
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
		}
		return els, true, nil
	},
}

var elementToBeClickable = condition{
	name: "clickable",
	check: func(ctx context.Context, els []browser.Element) ([]browser.Element, bool, error) {
		found, ok, err := visibilityOfAny.check(ctx, els)
		if !ok || err != nil {
			return nil, false, err
		}
		enabled, err := found[0].IsEnabled(ctx)
		if err != nil {
			if browser.IsTransient(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return found, enabled, nil
	},
}

// await polls until cond holds, timeout elapses or ctx is done. The
// condition is always evaluated at least once.
func (p *Page) await(ctx context.Context, loc browser.Locator, timeout time.Duration, cond condition) ([]browser.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		els, err := p.driver.FindElements(ctx, loc)
		switch {
		case err == nil:
			found, ok, cerr := cond.check(ctx, els)
			if cerr != nil {
				return nil, cerr
			}
			if ok {
				return found, nil
			}
		case !browser.IsTransient(err):
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Locator: loc, Timeout: timeout, Condition: cond.name}
		}
		wait := min(p.poll, remaining)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// captureOnTimeout attaches exactly one screenshot when err is a wait
// timeout. Capture problems are logged and never replace err.
func (p *Page) captureOnTimeout(ctx context.Context, err error) {
	if _, ok := err.(*TimeoutError); !ok {
		return
	}
	logger := p.tracer.Logger()
	png, serr := p.driver.Screenshot(ctx)
	if serr != nil {
		logger.Warn("Could not capture screenshot after timeout", zap.String("page", p.name), zap.Error(serr))
		return
	}
	if aerr := p.sink.Attach(ScreenshotOnError, MIMEPNG, png); aerr != nil {
		logger.Warn("Could not attach screenshot", zap.String("page", p.name), zap.Error(aerr))
	}
}
