// internal/pages/inventory.go
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/observability"
)

// InventoryTitle is the marker text of the catalog screen's title.
const InventoryTitle = "Products"

var (
	inventoryAddToCartButton = browser.XPath("//button[text()='Add to cart']")
	inventoryCartIcon        = browser.ID("shopping_cart_container")
	inventoryTitle           = browser.ClassName("title")
)

// InventoryPage is the product catalog shown after login.
type InventoryPage struct {
	page *Page
}

// NewInventoryPage binds the catalog screen to whatever document d shows.
func NewInventoryPage(d browser.Driver, opts ...Option) *InventoryPage {
	return &InventoryPage{page: NewPage(d, "", append([]Option{named("InventoryPage")}, opts...)...)}
}

func (i *InventoryPage) Page() *Page { return i.page }

// IsOpen reports whether the title contains InventoryTitle.
func (i *InventoryPage) IsOpen(ctx context.Context) (bool, error) {
	return observability.Call(i.page.tracer, "InventoryPage.IsOpen", nil, "Check that the catalog is open",
		func() (bool, error) {
			text, err := i.page.GetText(ctx, inventoryTitle)
			if err != nil {
				return false, err
			}
			return strings.Contains(text, InventoryTitle), nil
		})
}

// AddItemToCartByIndex clicks the index-th "Add to cart" button, counting
// from zero among products not yet in the cart. An index outside the list
// fails with *IndexError before anything is clicked.
func (i *InventoryPage) AddItemToCartByIndex(ctx context.Context, index int) error {
	return i.page.tracer.Do("InventoryPage.AddItemToCartByIndex", []any{index},
		fmt.Sprintf("Add item to cart by index: %d", index),
		func() error {
			buttons, err := i.page.FindElements(ctx, inventoryAddToCartButton)
			if err != nil {
				return err
			}
			if index < 0 || index >= len(buttons) {
				return &IndexError{Index: index, Size: len(buttons)}
			}
			return buttons[index].Click(ctx)
		})
}

// GoToCart clicks the cart icon.
func (i *InventoryPage) GoToCart(ctx context.Context) error {
	return i.page.tracer.Do("InventoryPage.GoToCart", nil, "Go to the cart",
		func() error { return i.page.ClickElement(ctx, inventoryCartIcon) })
}
