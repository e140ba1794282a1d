// internal/browser/sel/driver.go
package sel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/config"
)

// Driver drives Chrome through a remote WebDriver endpoint such as
// chromedriver or a Selenium Grid.
type Driver struct {
	wd        selenium.WebDriver
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New opens a WebDriver session at cfg.RemoteURL.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("selenium")
	if cfg.RemoteURL == "" {
		return nil, errors.New("selenium driver requires browser.remote_url")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wd, err := selenium.NewRemote(capabilities(cfg), cfg.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open webdriver session at %s: %w", cfg.RemoteURL, err)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		if err := wd.ResizeWindow("", cfg.WindowWidth, cfg.WindowHeight); err != nil {
			log.Debug("Window resize rejected by the remote end.", zap.Error(err))
		}
	}

	log.Info("WebDriver session started.", zap.String("remote_url", cfg.RemoteURL))
	return &Driver{wd: wd, logger: log}, nil
}

func capabilities(cfg config.BrowserConfig) selenium.Capabilities {
	args := append([]string{}, cfg.Args...)
	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	return caps
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debug("Navigating.", zap.String("url", url))
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.CurrentURL()
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := wireLocator(loc, false)
	if err != nil {
		return nil, err
	}
	found, err := d.wd.FindElements(by, value)
	if err != nil {
		// Some remote ends answer an empty query with "no such element".
		mapped := mapError(err)
		if errors.Is(mapped, browser.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, mapped
	}
	out := make([]browser.Element, 0, len(found))
	for _, we := range found {
		out = append(out, &element{d: d, we: we})
	}
	return out, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, el browser.Element) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var args []interface{}
	if el != nil {
		e, ok := el.(*element)
		if !ok {
			return nil, fmt.Errorf("selenium: element of type %T does not belong to this driver", el)
		}
		args = []interface{}{e.we}
	}
	out, err := d.wd.ExecuteScript(script, args)
	return out, mapError(err)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := d.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close ends the WebDriver session.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.wd.Quit()
		d.logger.Debug("WebDriver session closed.")
	})
	return d.closeErr
}

// -- Elements --

type element struct {
	d  *Driver
	we selenium.WebElement
}

var _ browser.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.Click())
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.Clear())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.SendKeys(text))
}

// Submit goes through script because W3C WebDriver has no submit command.
func (e *element) Submit(ctx context.Context) error {
	_, err := e.d.ExecuteScript(ctx, browser.SubmitScript, e)
	return err
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	return text, mapError(err)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.we.IsDisplayed()
	return ok, mapError(err)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := e.we.IsEnabled()
	return ok, mapError(err)
}

func (e *element) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := wireLocator(loc, true)
	if err != nil {
		return nil, err
	}
	we, err := e.we.FindElement(by, value)
	if err != nil {
		return nil, mapError(err)
	}
	return &element{d: e.d, we: we}, nil
}

// wireLocator rewrites loc into one of the strategies a W3C remote end
// accepts. Lookups scoped to an element get a relative XPath so they do
// not escape to the document root.
func wireLocator(loc browser.Locator, scoped bool) (by, value string, err error) {
	switch loc.Strategy {
	case browser.ByCSSSelector, browser.ByXPath, browser.ByLinkText, browser.ByPartialLinkText:
		return string(loc.Strategy), loc.Value, nil
	}
	if css, cssErr := loc.CSSSelector(); cssErr == nil {
		return selenium.ByCSSSelector, css, nil
	}
	expr, err := loc.XPathExpr()
	if err != nil {
		return "", "", err
	}
	if scoped && strings.HasPrefix(expr, "/") {
		expr = "." + expr
	}
	return selenium.ByXPATH, expr, nil
}

// -- Errors --

// mapError translates W3C error codes into the browser package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var werr *selenium.Error
	if !errors.As(err, &werr) {
		return err
	}
	switch werr.Err {
	case "no such element":
		return fmt.Errorf("%w: %s", browser.ErrNoSuchElement, werr.Message)
	case "stale element reference":
		return fmt.Errorf("%w: %s", browser.ErrStaleElement, werr.Message)
	}
	return err
}
