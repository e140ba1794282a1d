// internal/browser/browsertest/driver.go
package browsertest

import (
	"context"
	"errors"
	"fmt"

	"github.com/qaforge/sauceprobe/internal/browser"
)

// Document is the page model a FakeDriver renders.
type Document interface {
	Navigate(url string) error
	URL() string
	Roots() []*Node
}

// StaticDocument is a fixed tree served at a fixed URL.
type StaticDocument struct {
	Address string
	Nodes   []*Node
}

func (d *StaticDocument) Navigate(url string) error {
	d.Address = url
	return nil
}

func (d *StaticDocument) URL() string    { return d.Address }
func (d *StaticDocument) Roots() []*Node { return d.Nodes }

// PNG is the payload returned by FakeDriver.Screenshot unless overridden.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// FakeDriver is an in-memory browser.Driver over a Document. Like a real
// session it is meant for a single goroutine.
type FakeDriver struct {
	Doc Document

	// HiddenPolls makes the first n FindElements calls return nothing,
	// simulating a document that is still rendering.
	HiddenPolls int
	// FindErr, when set, is returned by every FindElements call.
	FindErr error
	// ScreenshotErr, when set, makes Screenshot fail.
	ScreenshotErr error

	Navigations []string
	Scripts     []string
	FindCalls   int
	Screenshots int
	Closed      bool
}

var _ browser.Driver = (*FakeDriver)(nil)

// NewFakeDriver returns a driver rendering doc.
func NewFakeDriver(doc Document) *FakeDriver {
	return &FakeDriver{Doc: doc}
}

var errClosed = errors.New("invalid session id: session deleted")

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	if d.Closed {
		return errClosed
	}
	d.Navigations = append(d.Navigations, url)
	return d.Doc.Navigate(url)
}

func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) {
	if d.Closed {
		return "", errClosed
	}
	return d.Doc.URL(), nil
}

func (d *FakeDriver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if d.Closed {
		return nil, errClosed
	}
	d.FindCalls++
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if d.HiddenPolls > 0 {
		d.HiddenPolls--
		return nil, nil
	}
	var found []*Node
	for _, root := range d.Doc.Roots() {
		collect(root, loc, &found)
	}
	out := make([]browser.Element, len(found))
	for i, n := range found {
		out[i] = n
	}
	return out, nil
}

// ExecuteScript understands browser.ClickScript only.
func (d *FakeDriver) ExecuteScript(ctx context.Context, script string, el browser.Element) (any, error) {
	if d.Closed {
		return nil, errClosed
	}
	d.Scripts = append(d.Scripts, script)
	if script != browser.ClickScript {
		return nil, fmt.Errorf("javascript error: unsupported script %q", script)
	}
	n, ok := el.(*Node)
	if !ok {
		return nil, fmt.Errorf("javascript error: argument is not a fake node")
	}
	if err := n.alive(); err != nil {
		return nil, err
	}
	return nil, n.activate(true)
}

func (d *FakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.Screenshots++
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	if d.Closed {
		return nil, errClosed
	}
	return PNG, nil
}

func (d *FakeDriver) Close() error {
	d.Closed = true
	return nil
}
