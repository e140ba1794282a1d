// internal/pages/checkout.go
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/observability"
)

// OverviewTitle is the marker text of the second checkout step's title.
const OverviewTitle = "Checkout: Overview"

var (
	stepOneFirstName  = browser.ID("first-name")
	stepOneLastName   = browser.ID("last-name")
	stepOnePostalCode = browser.ID("postal-code")
	stepOneContinue   = browser.ID("continue")

	stepTwoFinish = browser.ID("finish")
	stepTwoTitle  = browser.ClassName("title")

	completeHeader = browser.ClassName("complete-header")
)

// -- Step one: customer information --

// CheckoutStepOnePage collects the customer's name and postal code.
type CheckoutStepOnePage struct {
	page *Page
}

func NewCheckoutStepOnePage(d browser.Driver, opts ...Option) *CheckoutStepOnePage {
	return &CheckoutStepOnePage{page: NewPage(d, "", append([]Option{named("CheckoutStepOnePage")}, opts...)...)}
}

func (s *CheckoutStepOnePage) Page() *Page { return s.page }

// FillUserInformation validates data again and types the three fields.
// Invalid data returns a *ValidationError without touching the browser.
func (s *CheckoutStepOnePage) FillUserInformation(ctx context.Context, data CheckoutUserData) error {
	return s.page.tracer.Do("CheckoutStepOnePage.FillUserInformation", []any{data.String()},
		fmt.Sprintf("Fill in user information: %s", data),
		func() error {
			if err := data.Validate(); err != nil {
				return err
			}
			if err := s.page.EnterText(ctx, stepOneFirstName, data.FirstName()); err != nil {
				return err
			}
			if err := s.page.EnterText(ctx, stepOneLastName, data.LastName()); err != nil {
				return err
			}
			return s.page.EnterText(ctx, stepOnePostalCode, data.PostalCode())
		})
}

// Continue submits the form through the postal code field instead of
// clicking the continue button.
func (s *CheckoutStepOnePage) Continue(ctx context.Context) error {
	return s.page.tracer.Do("CheckoutStepOnePage.Continue", nil, "Submit the user information form",
		func() error {
			el, err := s.page.FindElement(ctx, stepOnePostalCode)
			if err != nil {
				return err
			}
			return el.Submit(ctx)
		})
}

// -- Step two: overview --

// CheckoutStepTwoPage shows the order overview.
type CheckoutStepTwoPage struct {
	page *Page
}

func NewCheckoutStepTwoPage(d browser.Driver, opts ...Option) *CheckoutStepTwoPage {
	return &CheckoutStepTwoPage{page: NewPage(d, "", append([]Option{named("CheckoutStepTwoPage")}, opts...)...)}
}

func (s *CheckoutStepTwoPage) Page() *Page { return s.page }

// IsOpen reports whether the title contains OverviewTitle.
func (s *CheckoutStepTwoPage) IsOpen(ctx context.Context) (bool, error) {
	return observability.Call(s.page.tracer, "CheckoutStepTwoPage.IsOpen", nil, "Check that the overview is open",
		func() (bool, error) {
			text, err := s.page.GetText(ctx, stepTwoTitle)
			if err != nil {
				return false, err
			}
			return strings.Contains(text, OverviewTitle), nil
		})
}

// Finish presses the finish button by script; the button does not reliably
// take native clicks.
func (s *CheckoutStepTwoPage) Finish(ctx context.Context) error {
	return s.page.tracer.Do("CheckoutStepTwoPage.Finish", nil, "Click 'Finish'",
		func() error { return s.page.JSClickElement(ctx, stepTwoFinish) })
}

// -- Complete --

// CheckoutCompletePage confirms a placed order.
type CheckoutCompletePage struct {
	page *Page
}

func NewCheckoutCompletePage(d browser.Driver, opts ...Option) *CheckoutCompletePage {
	return &CheckoutCompletePage{page: NewPage(d, "", append([]Option{named("CheckoutCompletePage")}, opts...)...)}
}

func (s *CheckoutCompletePage) Page() *Page { return s.page }

// CompleteMessage returns the confirmation header text.
func (s *CheckoutCompletePage) CompleteMessage(ctx context.Context) (string, error) {
	return observability.Call(s.page.tracer, "CheckoutCompletePage.CompleteMessage", nil, "Read the confirmation message",
		func() (string, error) { return s.page.GetText(ctx, completeHeader) })
}
