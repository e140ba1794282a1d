// internal/browser/cdp/driver.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Driver runs a local Chrome over the DevTools protocol.
type Driver struct {
	ctx         context.Context // tab context, carries the CDP target
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
	closeOnce   sync.Once
	closeErr    error
}

var _ browser.Driver = (*Driver)(nil)

// New starts Chrome and opens one tab. The browser lives until Close is
// called; cancelling ctx only aborts startup.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("cdp")

	// The allocator must outlive ctx, so detach it from ctx's cancellation.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))

	d := &Driver{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, logger: log}

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	launchTimeout := cfg.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = config.DefaultLaunchTimeout
	}
	startCtx, cancel := context.WithTimeout(ctx, launchTimeout)
	defer cancel()

	select {
	case err := <-started:
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-startCtx.Done():
		_ = d.Close()
		return nil, fmt.Errorf("chrome did not start: %w", startCtx.Err())
	}

	log.Info("Chrome session started.", zap.Bool("headless", cfg.Headless))
	return d, nil
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// run executes actions bound to the tab but cancelled by either the tab or ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(d.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return mapError(err)
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating.", zap.String("url", url))
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	return d.query(ctx, loc, nil)
}

func (d *Driver) query(ctx context.Context, loc browser.Locator, from *cdpproto.Node) ([]browser.Element, error) {
	sel, by, err := selectorFor(loc, from != nil)
	if err != nil {
		return nil, err
	}
	opts := []chromedp.QueryOption{by, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}

	var nodes []*cdpproto.Node
	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{d: d, node: n})
	}
	return out, nil
}

// selectorFor picks the query form chromedp evaluates for loc. DOM.performSearch
// has no notion of a context node, so nested lookups only accept CSS-expressible
// locators.
func selectorFor(loc browser.Locator, nested bool) (string, chromedp.QueryOption, error) {
	if css, err := loc.CSSSelector(); err == nil {
		return css, chromedp.ByQueryAll, nil
	}
	if nested {
		return "", nil, fmt.Errorf("%w: nested %s lookup", browser.ErrUnsupportedLocator, loc.Strategy)
	}
	xp, err := loc.XPathExpr()
	if err != nil {
		return "", nil, err
	}
	return xp, chromedp.BySearch, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, el browser.Element) (any, error) {
	if el == nil {
		var out any
		src := "(function(){" + script + "\n})()"
		if err := d.run(ctx, chromedp.Evaluate(src, &out)); err != nil {
			return nil, err
		}
		return out, nil
	}
	e, ok := el.(*element)
	if !ok {
		return nil, fmt.Errorf("cdp: element of type %T does not belong to this driver", el)
	}
	var out any
	if err := e.call(ctx, script, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		if err := chromedp.Cancel(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.closeErr = err
		}
		d.cancelTab()
		d.cancelAlloc()
		d.logger.Debug("Chrome session closed.")
	})
	return d.closeErr
}

// -- Elements --

type element struct {
	d    *Driver
	node *cdpproto.Node
}

var _ browser.Element = (*element)(nil)

// call runs script against the element with arguments[0] bound to it and
// decodes the returned value into out when out is non-nil.
func (e *element) call(ctx context.Context, script string, out any) error {
	fn := "function(){ return (function(){" + script + "\n}).apply(this, [this]); }"
	return e.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return mapError(err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return mapError(err)
		}
		if exc != nil {
			return fmt.Errorf("script raised: %w", exc)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}

func (e *element) Click(ctx context.Context) error {
	return e.d.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) Clear(ctx context.Context) error {
	return e.call(ctx, browser.ClearScript, nil)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *element) Submit(ctx context.Context) error {
	return e.call(ctx, browser.SubmitScript, nil)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, browser.TextScript, &text)
	return text, err
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var shown bool
	err := e.call(ctx, browser.DisplayedScript, &shown)
	return shown, err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.call(ctx, browser.EnabledScript, &enabled)
	return enabled, err
}

func (e *element) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	els, err := e.d.query(ctx, loc, e.node)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
	}
	return els[0], nil
}

// -- Errors --

var staleMarkers = []string{
	"No node with given id",
	"does not belong to the document",
	"Could not find node with given id",
	"Could not compute content quads",
	"Node is detached from document",
}

// mapError translates protocol errors about vanished nodes into
// browser.ErrStaleElement so that waits keep polling.
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
