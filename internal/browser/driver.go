// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
)

var (
	// ErrNoSuchElement is returned when a lookup matched nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement is returned when an element handle no longer refers to
	// a node attached to the document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrUnsupportedLocator is returned when a backend cannot evaluate a locator strategy.
	ErrUnsupportedLocator = errors.New("unsupported locator")
)

// IsTransient reports whether err only means "the element is not there yet",
// which callers that wait for an element should treat as a reason to poll again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}

// Driver is the capability surface the page layer needs from a browser
// automation engine. A Driver drives one browser session and is not safe for
// concurrent use.
type Driver interface {
	// Navigate loads url in the current tab.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the address of the loaded document.
	CurrentURL(ctx context.Context) (string, error)
	// FindElements returns a snapshot of every element currently matching loc,
	// in document order. It never waits; an empty result is not an error.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// ExecuteScript runs script as the body of a function whose arguments[0]
	// is el, and returns its result.
	ExecuteScript(ctx context.Context, script string, el Element) (any, error)
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close ends the browser session and releases every resource it holds.
	Close() error
}

// Element is a handle to a node in the current document.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	// Submit submits the form owning the element.
	Submit(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	// FindElement returns the first descendant matching loc, or ErrNoSuchElement.
	FindElement(ctx context.Context, loc Locator) (Element, error)
}

// ClickScript clicks the element passed as the first script argument.
const ClickScript = "arguments[0].click();"
