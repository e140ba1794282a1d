// internal/browser/cdp/context.go
package cdp

import "context"

// combineContext derives a context from primary, keeping its values (chromedp
// stores the target there), that is also cancelled when secondary is done.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
