// internal/browser/browsertest/storefront.go
package browsertest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qaforge/sauceprobe/internal/browser"
)

// Messages shown by the storefront, verbatim.
const (
	MsgUsernameRequired = "Epic sadface: Username is required"
	MsgPasswordRequired = "Epic sadface: Password is required"
	MsgBadCredentials   = "Epic sadface: Username and password do not match any user in this service"
	MsgLockedOut        = "Epic sadface: Sorry, this user has been locked out."
	MsgOrderComplete    = "Thank you for your order!"
)

// Accounts accepted by the storefront. Every account shares one password.
var Accounts = map[string]bool{
	"standard_user":           true,
	"locked_out_user":         false,
	"problem_user":            true,
	"performance_glitch_user": true,
}

// Password is the shared storefront password.
const Password = "secret_sauce"

// Products lists the inventory in display order.
var Products = []string{
	"Sauce Labs Backpack",
	"Sauce Labs Bike Light",
	"Sauce Labs Bolt T-Shirt",
	"Sauce Labs Fleece Jacket",
	"Sauce Labs Onesie",
	"Test.allTheThings() T-Shirt (Red)",
}

type screen int

const (
	screenLogin screen = iota
	screenInventory
	screenCart
	screenStepOne
	screenStepTwo
	screenComplete
)

var screenPaths = map[string]screen{
	"":                       screenLogin,
	"inventory.html":         screenInventory,
	"cart.html":              screenCart,
	"checkout-step-one.html": screenStepOne,
	"checkout-step-two.html": screenStepTwo,
	"checkout-complete.html": screenComplete,
}

// Storefront simulates the six screens of the demo shop closely enough for
// page objects to drive it through a FakeDriver. Every state change
// re-renders the screen, detaching previously returned nodes.
type Storefront struct {
	BaseURL string

	// Orders counts completed checkouts.
	Orders int
	// ScriptClicks and NativeClicks count how the finish button was pressed.
	ScriptClicks, NativeClicks int
	// Submits counts checkout form submissions.
	Submits int

	screen   screen
	user     string
	loginErr string
	formErr  string
	cart     []int
	customer [3]string
	roots    []*Node
}

// NewStorefront returns a storefront showing its login screen.
func NewStorefront(baseURL string) *Storefront {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	s := &Storefront{BaseURL: baseURL}
	s.render()
	return s
}

// NewDriver is a shortcut for a FakeDriver over a fresh storefront.
func NewDriver(baseURL string) (*FakeDriver, *Storefront) {
	s := NewStorefront(baseURL)
	return NewFakeDriver(s), s
}

// Cart returns the product names currently in the cart.
func (s *Storefront) Cart() []string {
	names := make([]string, len(s.cart))
	for i, p := range s.cart {
		names[i] = Products[p]
	}
	return names
}

// Customer returns the first name, last name and postal code of the last
// accepted checkout form.
func (s *Storefront) Customer() (string, string, string) {
	return s.customer[0], s.customer[1], s.customer[2]
}

func (s *Storefront) URL() string {
	for path, sc := range screenPaths {
		if sc == s.screen {
			return s.BaseURL + path
		}
	}
	return s.BaseURL
}

func (s *Storefront) Roots() []*Node { return s.roots }

func (s *Storefront) Navigate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if raw+"/" == s.BaseURL {
		raw = s.BaseURL
	}
	if !strings.HasPrefix(raw, s.BaseURL) {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", u.Host)
	}
	path := strings.TrimPrefix(strings.TrimPrefix(raw, s.BaseURL), "/")
	target, ok := screenPaths[path]
	if !ok {
		return fmt.Errorf("navigate: no route for /%s", path)
	}

	s.loginErr, s.formErr = "", ""
	switch {
	case target == screenLogin:
		s.user = ""
	case s.user == "":
		s.loginErr = fmt.Sprintf("Epic sadface: You can only access '/%s' when you are logged in.", path)
		target = screenLogin
	}
	s.screen = target
	s.render()
	return nil
}

func (s *Storefront) goTo(sc screen) error {
	s.screen = sc
	s.render()
	return nil
}

// -- Rendering --

func (s *Storefront) render() {
	for _, r := range s.roots {
		r.Detach()
	}
	switch s.screen {
	case screenLogin:
		s.roots = s.loginScreen()
	case screenInventory:
		s.roots = s.inventoryScreen()
	case screenCart:
		s.roots = s.cartScreen()
	case screenStepOne:
		s.roots = s.stepOneScreen()
	case screenStepTwo:
		s.roots = s.stepTwoScreen()
	case screenComplete:
		s.roots = s.completeScreen()
	}
}

func title(text string) *Node {
	return &Node{Tag: "span", Label: text, Locators: []browser.Locator{browser.ClassName("title")}}
}

func input(id string) *Node {
	return &Node{Tag: "input", Locators: []browser.Locator{browser.ID(id), browser.Name(id)}}
}

func (s *Storefront) header() *Node {
	cart := &Node{Tag: "div", Locators: []browser.Locator{browser.ID("shopping_cart_container")}}
	cart.OnClick = func() error { return s.goTo(screenCart) }
	if n := len(s.cart); n > 0 {
		cart.Children = append(cart.Children, &Node{
			Tag:      "span",
			Label:    strconv.Itoa(n),
			Locators: []browser.Locator{browser.ClassName("shopping_cart_badge")},
		})
	}
	return cart
}

func (s *Storefront) loginScreen() []*Node {
	user, pass := input("user-name"), input("password")
	button := &Node{Tag: "input", Label: "Login", Locators: []browser.Locator{browser.ID("login-button")}}
	button.OnClick = func() error {
		return s.login(user.Value, pass.Value)
	}
	roots := []*Node{user, pass, button}
	if s.loginErr != "" {
		roots = append(roots, &Node{
			Tag:      "h3",
			Label:    s.loginErr,
			Locators: []browser.Locator{browser.CSS("h3[data-test='error']")},
		})
	}
	return roots
}

func (s *Storefront) login(user, pass string) error {
	switch allowed, known := Accounts[user]; {
	case user == "":
		s.loginErr = MsgUsernameRequired
	case pass == "":
		s.loginErr = MsgPasswordRequired
	case !known || pass != Password:
		s.loginErr = MsgBadCredentials
	case !allowed:
		s.loginErr = MsgLockedOut
	default:
		s.user, s.loginErr = user, ""
		return s.goTo(screenInventory)
	}
	s.render()
	return nil
}

func (s *Storefront) inCart(p int) bool {
	for _, c := range s.cart {
		if c == p {
			return true
		}
	}
	return false
}

func (s *Storefront) inventoryScreen() []*Node {
	roots := []*Node{s.header(), title("Products")}
	for i, name := range Products {
		p := i
		button := &Node{Tag: "button"}
		if s.inCart(p) {
			button.Label = "Remove"
			button.OnClick = func() error {
				s.removeFromCart(p)
				s.render()
				return nil
			}
		} else {
			button.Label = "Add to cart"
			button.Locators = []browser.Locator{browser.XPath("//button[text()='Add to cart']")}
			button.OnClick = func() error {
				s.cart = append(s.cart, p)
				s.render()
				return nil
			}
		}
		roots = append(roots, &Node{
			Tag:      "div",
			Locators: []browser.Locator{browser.ClassName("inventory_item")},
			Children: []*Node{
				{Tag: "div", Label: name, Locators: []browser.Locator{browser.ClassName("inventory_item_name")}},
				button,
			},
		})
	}
	return roots
}

func (s *Storefront) removeFromCart(p int) {
	for i, c := range s.cart {
		if c == p {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return
		}
	}
}

func (s *Storefront) cartScreen() []*Node {
	roots := []*Node{s.header(), title("Your Cart")}
	for _, p := range s.cart {
		roots = append(roots, &Node{
			Tag:      "div",
			Locators: []browser.Locator{browser.ClassName("cart_item")},
			Children: []*Node{
				{Tag: "div", Label: "1", Locators: []browser.Locator{browser.ClassName("cart_quantity")}},
				{Tag: "div", Label: Products[p], Locators: []browser.Locator{browser.ClassName("inventory_item_name")}},
			},
		})
	}
	checkout := &Node{Tag: "button", Label: "Checkout", Locators: []browser.Locator{browser.ID("checkout")}}
	checkout.OnClick = func() error { return s.goTo(screenStepOne) }
	back := &Node{Tag: "button", Label: "Continue Shopping", Locators: []browser.Locator{browser.ID("continue-shopping")}}
	back.OnClick = func() error { return s.goTo(screenInventory) }
	return append(roots, checkout, back)
}

func (s *Storefront) stepOneScreen() []*Node {
	first, last, zip := input("first-name"), input("last-name"), input("postal-code")
	submit := func() error {
		s.Submits++
		switch {
		case first.Value == "":
			s.formErr = "Error: First Name is required"
		case last.Value == "":
			s.formErr = "Error: Last Name is required"
		case zip.Value == "":
			s.formErr = "Error: Postal Code is required"
		default:
			s.formErr = ""
			s.customer = [3]string{first.Value, last.Value, zip.Value}
			return s.goTo(screenStepTwo)
		}
		s.render()
		return nil
	}
	first.OnSubmit, last.OnSubmit, zip.OnSubmit = submit, submit, submit
	cont := &Node{Tag: "input", Label: "Continue", Locators: []browser.Locator{browser.ID("continue")}, OnClick: submit, OnSubmit: submit}

	roots := []*Node{s.header(), title("Checkout: Your Information"), first, last, zip, cont}
	if s.formErr != "" {
		roots = append(roots, &Node{Tag: "h3", Label: s.formErr, Locators: []browser.Locator{browser.CSS("h3[data-test='error']")}})
	}
	return roots
}

func (s *Storefront) stepTwoScreen() []*Node {
	roots := []*Node{s.header(), title("Checkout: Overview")}
	for _, p := range s.cart {
		roots = append(roots, &Node{
			Tag:      "div",
			Locators: []browser.Locator{browser.ClassName("cart_item")},
			Children: []*Node{{Tag: "div", Label: Products[p], Locators: []browser.Locator{browser.ClassName("inventory_item_name")}}},
		})
	}
	finish := &Node{Tag: "button", Label: "Finish", Locators: []browser.Locator{browser.ID("finish")}}
	finish.OnClick = func() error {
		s.Orders++
		s.cart = nil
		return s.goTo(screenComplete)
	}
	finish.Observe = func(scripted bool) {
		if scripted {
			s.ScriptClicks++
		} else {
			s.NativeClicks++
		}
	}
	return append(roots, finish)
}

func (s *Storefront) completeScreen() []*Node {
	return []*Node{
		s.header(),
		title("Checkout: Complete!"),
		{Tag: "h2", Label: MsgOrderComplete, Locators: []browser.Locator{browser.ClassName("complete-header")}},
		{Tag: "div", Label: "Your order has been dispatched, and will arrive just as fast as the pony can get there!", Locators: []browser.Locator{browser.ClassName("complete-text")}},
	}
}
