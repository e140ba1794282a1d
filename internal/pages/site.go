// internal/pages/site.go
package pages

import "github.com/qaforge/sauceprobe/internal/browser"

// Site builds page objects that share one driver handle and one set of options.
type Site struct {
	Driver  browser.Driver
	BaseURL string
	Options []Option
}

func (s Site) Login() *LoginPage         { return NewLoginPage(s.Driver, s.BaseURL, s.Options...) }
func (s Site) Inventory() *InventoryPage { return NewInventoryPage(s.Driver, s.Options...) }
func (s Site) Cart() *CartPage           { return NewCartPage(s.Driver, s.Options...) }

func (s Site) CheckoutStepOne() *CheckoutStepOnePage {
	return NewCheckoutStepOnePage(s.Driver, s.Options...)
}

func (s Site) CheckoutStepTwo() *CheckoutStepTwoPage {
	return NewCheckoutStepTwoPage(s.Driver, s.Options...)
}

func (s Site) CheckoutComplete() *CheckoutCompletePage {
	return NewCheckoutCompletePage(s.Driver, s.Options...)
}
