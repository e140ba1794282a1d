// internal/scenario/catalog.go
package scenario

import (
	"context"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/qaforge/sauceprobe/internal/config"
	"github.com/qaforge/sauceprobe/internal/pages"
)

const (
	// Feature is the report label shared by the storefront scenarios.
	Feature = "SauceDemo E2E"

	orderConfirmation = "Thank you for your order!"
	badCredentials    = "Epic sadface: Username and password do not match any user in this service"
)

// Env is what a scenario body gets to work with.
type Env struct {
	Site  pages.Site
	Smoke config.SmokeConfig
	Faker *gofakeit.Faker
}

// Scenario is a named end-to-end flow.
type Scenario struct {
	Name     string
	FullName string
	Story    string
	Run      func(ctx context.Context, env Env) error
}

// Catalog returns the storefront smoke scenarios in their canonical order.
func Catalog() []Scenario {
	return []Scenario{
		{
			Name:     "Successful login",
			FullName: "saucedemo.login.successful",
			Story:    "Login",
			Run:      successfulLogin,
		},
		{
			Name:     "Add item to cart",
			FullName: "saucedemo.cart.add_item",
			Story:    "Cart",
			Run:      addItemToCart,
		},
		{
			Name:     "Checkout",
			FullName: "saucedemo.checkout.complete",
			Story:    "Checkout",
			Run:      completeCheckout,
		},
		{
			Name:     "Failed login",
			FullName: "saucedemo.login.failed",
			Story:    "Login",
			Run:      failedLogin,
		},
	}
}

// Select filters the catalog by name, case-insensitively. An empty filter
// keeps everything. Unknown names are returned separately.
func Select(all []Scenario, names []string) (selected []Scenario, unknown []string) {
	if len(names) == 0 {
		return all, nil
	}
	for _, name := range names {
		found := false
		for _, sc := range all {
			if strings.EqualFold(sc.Name, name) || strings.EqualFold(sc.FullName, name) {
				selected = append(selected, sc)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return selected, unknown
}

func successfulLogin(ctx context.Context, env Env) error {
	if err := Login(ctx, env.Site, env.Smoke.Username, env.Smoke.Password); err != nil {
		return err
	}
	open, err := env.Site.Inventory().IsOpen(ctx)
	if err != nil {
		return err
	}
	return expect(open, "inventory page is not displayed after login")
}

func addItemToCart(ctx context.Context, env Env) error {
	if err := Login(ctx, env.Site, env.Smoke.Username, env.Smoke.Password); err != nil {
		return err
	}
	if err := AddFirstItemToCart(ctx, env.Site); err != nil {
		return err
	}
	count, err := env.Site.Cart().ItemsCount(ctx)
	if err != nil {
		return err
	}
	return expect(count == 1, "cart holds %d items, want 1", count)
}

func completeCheckout(ctx context.Context, env Env) error {
	if err := Login(ctx, env.Site, env.Smoke.Username, env.Smoke.Password); err != nil {
		return err
	}
	if err := AddFirstItemToCart(ctx, env.Site); err != nil {
		return err
	}
	data, err := NewCheckoutData(env.Faker)
	if err != nil {
		return err
	}
	msg, err := Checkout(ctx, env.Site, data)
	if err != nil {
		return err
	}
	return expect(strings.Contains(msg, orderConfirmation), "confirmation %q does not contain %q", msg, orderConfirmation)
}

func failedLogin(ctx context.Context, env Env) error {
	login := env.Site.Login()
	if err := login.Login(ctx, env.Smoke.Username, env.Smoke.BadPassword); err != nil {
		return err
	}
	msg, err := login.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	return expect(strings.Contains(msg, badCredentials), "error banner %q does not contain %q", msg, badCredentials)
}
