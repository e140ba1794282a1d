// internal/scenario/flows.go
package scenario

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/qaforge/sauceprobe/internal/pages"
	"github.com/qaforge/sauceprobe/internal/report"
)

// Login opens the storefront and signs in. It does not check the outcome;
// callers assert on the screen that follows.
func Login(ctx context.Context, site pages.Site, username, password string) error {
	return site.Login().Login(ctx, username, password)
}

// AddFirstItemToCart adds the first listed product and opens the cart.
func AddFirstItemToCart(ctx context.Context, site pages.Site) error {
	inventory := site.Inventory()
	if err := inventory.AddItemToCartByIndex(ctx, 0); err != nil {
		return fmt.Errorf("adding first item: %w", err)
	}
	if err := inventory.GoToCart(ctx); err != nil {
		return fmt.Errorf("opening cart: %w", err)
	}
	return nil
}

// Checkout walks from the cart to the confirmation screen and returns the
// confirmation header.
func Checkout(ctx context.Context, site pages.Site, data pages.CheckoutUserData) (string, error) {
	if err := site.Cart().ProceedToCheckout(ctx); err != nil {
		return "", fmt.Errorf("starting checkout: %w", err)
	}

	stepOne := site.CheckoutStepOne()
	if err := stepOne.FillUserInformation(ctx, data); err != nil {
		return "", fmt.Errorf("filling customer information: %w", err)
	}
	if err := stepOne.Continue(ctx); err != nil {
		return "", fmt.Errorf("continuing to overview: %w", err)
	}

	stepTwo := site.CheckoutStepTwo()
	open, err := stepTwo.IsOpen(ctx)
	if err != nil {
		return "", fmt.Errorf("checking overview: %w", err)
	}
	if err := expect(open, "checkout overview is not displayed"); err != nil {
		return "", err
	}
	if err := stepTwo.Finish(ctx); err != nil {
		return "", fmt.Errorf("finishing order: %w", err)
	}

	msg, err := site.CheckoutComplete().CompleteMessage(ctx)
	if err != nil {
		return "", fmt.Errorf("reading confirmation: %w", err)
	}
	return msg, nil
}

// NewCheckoutData generates a plausible customer.
func NewCheckoutData(faker *gofakeit.Faker) (pages.CheckoutUserData, error) {
	return pages.NewCheckoutUserData(faker.FirstName(), faker.LastName(), faker.Zip())
}

func expect(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", report.ErrAssertion, fmt.Sprintf(format, args...))
}
