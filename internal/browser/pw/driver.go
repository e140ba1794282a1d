// internal/browser/pw/driver.go
package pw

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/config"
)

const installTimeout = 5 * time.Minute

// evalWithElement runs a script body with the element as arguments[0].
const evalWithElement = "(el, src) => new Function(src).apply(null, [el])"

// Driver runs Chromium through the Playwright driver.
//
// Playwright calls are synchronous and carry their own timeouts, so ctx is
// checked before each call and its deadline is forwarded where the API
// accepts one.
type Driver struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	page      playwright.Page
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New starts the Playwright driver, launches Chromium and opens one page.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("playwright")

	if cfg.Install {
		if err := ensureInstallation(ctx, log); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	b, err := pw.Chromium.Launch(launchOptions(cfg))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		pageOpts.Viewport = &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight}
	}
	page, err := b.NewPage(pageOpts)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	log.Info("Playwright session started.", zap.String("browser_version", b.Version()))
	return &Driver{pw: pw, browser: b, page: page, logger: log}, nil
}

func launchOptions(cfg config.BrowserConfig) playwright.BrowserTypeLaunchOptions {
	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = config.DefaultLaunchTimeout
	}
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     append([]string{}, cfg.Args...),
		Timeout:  playwright.Float(float64(timeout.Milliseconds())),
	}
}

func ensureInstallation(ctx context.Context, log *zap.Logger) error {
	log.Info("Verifying Playwright browser installation...")
	return awaitInstall(ctx, installTimeout, func() error {
		return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	})
}

// awaitInstall runs install in the background and waits at most timeout for
// it. The installer cannot be cancelled; after a timeout it keeps running
// and its result lands in the buffered channel, so the goroutine still exits.
func awaitInstall(ctx context.Context, timeout time.Duration, install func() error) error {
	installCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- install()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to install playwright browsers: %w", err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for playwright installation: %w", installCtx.Err())
	}
}

// timeoutFrom converts ctx's remaining time to the millisecond timeout
// Playwright options expect, or nil to keep Playwright's default.
func timeoutFrom(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debug("Navigating.", zap.String("url", url))
	if _, err := d.page.Goto(url, playwright.PageGotoOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := selectorFor(loc, false)
	if err != nil {
		return nil, err
	}
	handles, err := d.page.QuerySelectorAll(sel)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]browser.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &element{d: d, h: h})
	}
	return out, nil
}

// selectorFor renders loc in Playwright's engine-prefixed selector syntax.
// Scoped XPath would resolve against the document root, so nested lookups
// only accept CSS-expressible locators.
func selectorFor(loc browser.Locator, nested bool) (string, error) {
	if css, err := loc.CSSSelector(); err == nil {
		return "css=" + css, nil
	}
	if nested {
		return "", fmt.Errorf("%w: nested %s lookup", browser.ErrUnsupportedLocator, loc.Strategy)
	}
	xp, err := loc.XPathExpr()
	if err != nil {
		return "", err
	}
	return "xpath=" + xp, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, el browser.Element) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if el == nil {
		out, err := d.page.Evaluate("src => new Function(src)()", script)
		return out, mapError(err)
	}
	e, ok := el.(*element)
	if !ok {
		return nil, fmt.Errorf("playwright: element of type %T does not belong to this driver", el)
	}
	return e.eval(ctx, script)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := d.page.Screenshot(playwright.PageScreenshotOptions{Timeout: timeoutFrom(ctx)})
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the browser and stops the driver process.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		if err := d.browser.Close(); err != nil {
			d.logger.Warn("Failed to close browser.", zap.Error(err))
			d.closeErr = err
		}
		if err := d.pw.Stop(); err != nil && d.closeErr == nil {
			d.closeErr = err
		}
		d.logger.Debug("Playwright session closed.")
	})
	return d.closeErr
}

// -- Elements --

type element struct {
	d *Driver
	h playwright.ElementHandle
}

var _ browser.Element = (*element)(nil)

func (e *element) eval(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := e.h.Evaluate(evalWithElement, script)
	return out, mapError(err)
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Click(playwright.ElementHandleClickOptions{Timeout: timeoutFrom(ctx)}))
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Fill("", playwright.ElementHandleFillOptions{Timeout: timeoutFrom(ctx)}))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.h.Type(text, playwright.ElementHandleTypeOptions{Timeout: timeoutFrom(ctx)}))
}

func (e *element) Submit(ctx context.Context) error {
	_, err := e.eval(ctx, browser.SubmitScript)
	return err
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.h.InnerText()
	return text, mapError(err)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.h.IsVisible()
	return ok, mapError(err)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.h.IsEnabled()
	return ok, mapError(err)
}

func (e *element) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := selectorFor(loc, true)
	if err != nil {
		return nil, err
	}
	h, err := e.h.QuerySelector(sel)
	if err != nil {
		return nil, mapError(err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
	}
	return &element{d: e.d, h: h}, nil
}

// -- Errors --

var staleMarkers = []string{
	"not attached to the DOM",
	"Element is not attached",
	"Execution context was destroyed",
	"JSHandle is disposed",
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", browser.ErrStaleElement, msg)
		}
	}
	return err
}
