// internal/browser/browsertest/node.go
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/qaforge/sauceprobe/internal/browser"
)

// ErrNotInteractable mirrors the driver error raised when a native input
// event targets an element that cannot receive it.
var ErrNotInteractable = errors.New("element not interactable")

// Node is an in-memory element. It answers to the locators listed in
// Locators and implements browser.Element.
type Node struct {
	Tag      string
	Label    string
	Value    string
	Hidden   bool
	Disabled bool
	Locators []browser.Locator
	Children []*Node

	// OnClick runs for native and scripted clicks on an enabled node.
	OnClick func() error
	// Observe, when set, sees every activation and whether it came from script.
	Observe func(scripted bool)
	// OnSubmit runs when the node's owning form is submitted.
	OnSubmit func() error

	stale bool
}

var _ browser.Element = (*Node)(nil)

// Matches reports whether the node answers to loc.
func (n *Node) Matches(loc browser.Locator) bool {
	return slices.Contains(n.Locators, loc)
}

// IsStale reports whether the node was detached by a re-render.
func (n *Node) IsStale() bool { return n.stale }

// Detach marks the node and its subtree as no longer attached to the document.
func (n *Node) Detach() {
	n.stale = true
	for _, c := range n.Children {
		c.Detach()
	}
}

func (n *Node) alive() error {
	if n.stale {
		return fmt.Errorf("%s: %w", n.Tag, browser.ErrStaleElement)
	}
	return nil
}

func (n *Node) Click(ctx context.Context) error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.Hidden {
		return fmt.Errorf("click %s: %w", n.Tag, ErrNotInteractable)
	}
	return n.activate(false)
}

// activate fires the click handler. Disabled controls swallow the event the
// way a browser does.
func (n *Node) activate(scripted bool) error {
	if n.Observe != nil {
		n.Observe(scripted)
	}
	if n.Disabled || n.OnClick == nil {
		return nil
	}
	return n.OnClick()
}

func (n *Node) Clear(ctx context.Context) error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.Hidden || n.Disabled {
		return fmt.Errorf("clear %s: %w", n.Tag, ErrNotInteractable)
	}
	n.Value = ""
	return nil
}

func (n *Node) SendKeys(ctx context.Context, text string) error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.Hidden || n.Disabled {
		return fmt.Errorf("send keys to %s: %w", n.Tag, ErrNotInteractable)
	}
	n.Value += text
	return nil
}

func (n *Node) Submit(ctx context.Context) error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.OnSubmit == nil {
		return fmt.Errorf("submit %s: element is not inside a form", n.Tag)
	}
	return n.OnSubmit()
}

// Text returns the rendered text, which is empty for hidden nodes.
func (n *Node) Text(ctx context.Context) (string, error) {
	if err := n.alive(); err != nil {
		return "", err
	}
	if n.Hidden {
		return "", nil
	}
	return n.Label, nil
}

func (n *Node) IsDisplayed(ctx context.Context) (bool, error) {
	if err := n.alive(); err != nil {
		return false, err
	}
	return !n.Hidden, nil
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	if err := n.alive(); err != nil {
		return false, err
	}
	return !n.Disabled, nil
}

func (n *Node) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	if err := n.alive(); err != nil {
		return nil, err
	}
	var found []*Node
	for _, c := range n.Children {
		collect(c, loc, &found)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s under %s: %w", loc, n.Tag, browser.ErrNoSuchElement)
	}
	return found[0], nil
}

// collect appends every node of the subtree rooted at n matching loc, in document order.
func collect(n *Node, loc browser.Locator, out *[]*Node) {
	if n.Matches(loc) {
		*out = append(*out, n)
	}
	for _, c := range n.Children {
		collect(c, loc, out)
	}
}
