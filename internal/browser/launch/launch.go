// internal/browser/launch/launch.go
package launch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/browser"
	"github.com/qaforge/sauceprobe/internal/browser/cdp"
	"github.com/qaforge/sauceprobe/internal/browser/pw"
	"github.com/qaforge/sauceprobe/internal/browser/sel"
	"github.com/qaforge/sauceprobe/internal/config"
)

// Factory opens a fresh browser session.
type Factory func(ctx context.Context) (browser.Driver, error)

// New starts the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	var (
		d   browser.Driver
		err error
	)
	switch cfg.Driver {
	case config.DriverCDP, "":
		d, err = unwrap(cdp.New(ctx, cfg, logger))
	case config.DriverPlaywright:
		d, err = unwrap(pw.New(ctx, cfg, logger))
	case config.DriverSelenium:
		d, err = unwrap(sel.New(ctx, cfg, logger))
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("starting %s driver: %w", cfg.Driver, err)
	}
	return d, nil
}

// unwrap keeps a failed constructor's typed nil out of the interface.
func unwrap[D browser.Driver](d D, err error) (browser.Driver, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewFactory binds cfg and logger into a Factory.
func NewFactory(cfg config.BrowserConfig, logger *zap.Logger) Factory {
	return func(ctx context.Context) (browser.Driver, error) {
		return New(ctx, cfg, logger)
	}
}
