// internal/pages/cart.go
package pages

import (
	"context"
	"fmt"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/observability"
)

var (
	cartCheckoutButton = browser.ID("checkout")
	cartItems          = browser.ClassName("cart_item")
	cartItemName       = browser.ClassName("inventory_item_name")
)

// CartPage lists the products added to the cart.
type CartPage struct {
	page *Page
}

func NewCartPage(d browser.Driver, opts ...Option) *CartPage {
	return &CartPage{page: NewPage(d, "", append([]Option{named("CartPage")}, opts...)...)}
}

func (c *CartPage) Page() *Page { return c.page }

// ItemsCount returns the number of cart rows. An empty cart never satisfies
// the wait, so it surfaces as a timeout.
func (c *CartPage) ItemsCount(ctx context.Context) (int, error) {
	return observability.Call(c.page.tracer, "CartPage.ItemsCount", nil, "Count the items in the cart",
		func() (int, error) {
			rows, err := c.page.FindElements(ctx, cartItems)
			if err != nil {
				return 0, err
			}
			return len(rows), nil
		})
}

// ItemNames returns the product name of each cart row, in display order.
//
// The rows are awaited; the name inside each row is then read once, without
// waiting, since it renders together with its row.
func (c *CartPage) ItemNames(ctx context.Context) ([]string, error) {
	return observability.Call(c.page.tracer, "CartPage.ItemNames", nil, "Read the names of the items in the cart",
		func() ([]string, error) {
			rows, err := c.page.FindElements(ctx, cartItems)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(rows))
			for i, row := range rows {
				el, err := row.FindElement(ctx, cartItemName)
				if err != nil {
					return nil, fmt.Errorf("cart row %d: %s: %w", i, cartItemName, err)
				}
				name, err := el.Text(ctx)
				if err != nil {
					return nil, fmt.Errorf("cart row %d: reading name: %w", i, err)
				}
				names = append(names, name)
			}
			return names, nil
		})
}

// ProceedToCheckout clicks the checkout button.
func (c *CartPage) ProceedToCheckout(ctx context.Context) error {
	return c.page.tracer.Do("CartPage.ProceedToCheckout", nil, "Proceed to checkout",
		func() error { return c.page.ClickElement(ctx, cartCheckoutButton) })
}
