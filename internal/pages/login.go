// internal/pages/login.go
package pages

import (
	"context"
	"fmt"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/observability"
)

// DefaultBaseURL is the storefront's login address.
const DefaultBaseURL = "https://www.saucedemo.com/"

var (
	loginUsernameInput = browser.ID("user-name")
	loginPasswordInput = browser.ID("password")
	loginButton        = browser.ID("login-button")
	loginErrorMessage  = browser.CSS("h3[data-test='error']")
)

// LoginPage is the storefront's authentication screen.
type LoginPage struct {
	page *Page
}

// NewLoginPage binds the login screen at baseURL (DefaultBaseURL when empty).
func NewLoginPage(d browser.Driver, baseURL string, opts ...Option) *LoginPage {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LoginPage{page: NewPage(d, baseURL, append([]Option{named("LoginPage")}, opts...)...)}
}

// Page exposes the underlying primitives.
func (l *LoginPage) Page() *Page { return l.page }

// Open navigates to the login screen.
func (l *LoginPage) Open(ctx context.Context) error { return l.page.Open(ctx) }

func (l *LoginPage) EnterUsername(ctx context.Context, username string) error {
	return l.page.tracer.Do("LoginPage.EnterUsername", []any{username},
		fmt.Sprintf("Enter username: %s", username),
		func() error { return l.page.EnterText(ctx, loginUsernameInput, username) })
}

func (l *LoginPage) EnterPassword(ctx context.Context, password string) error {
	return l.page.tracer.Do("LoginPage.EnterPassword", []any{observability.Masked}, "Enter password",
		func() error { return l.page.EnterSecret(ctx, loginPasswordInput, password) })
}

func (l *LoginPage) ClickLoginButton(ctx context.Context) error {
	return l.page.tracer.Do("LoginPage.ClickLoginButton", nil, "Click the 'Login' button",
		func() error { return l.page.ClickElement(ctx, loginButton) })
}

// Login opens the screen, types both credentials and presses the button.
// The first failing step aborts the rest.
func (l *LoginPage) Login(ctx context.Context, username, password string) error {
	return l.page.tracer.Do("LoginPage.Login", []any{username, observability.Masked},
		fmt.Sprintf("Log in as '%s'", username),
		func() error {
			if err := l.Open(ctx); err != nil {
				return err
			}
			if err := l.EnterUsername(ctx, username); err != nil {
				return err
			}
			if err := l.EnterPassword(ctx, password); err != nil {
				return err
			}
			return l.ClickLoginButton(ctx)
		})
}

// ErrorMessage returns the text of the error banner.
func (l *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return observability.Call(l.page.tracer, "LoginPage.ErrorMessage", nil, "Read the login error message",
		func() (string, error) { return l.page.GetText(ctx, loginErrorMessage) })
}
