// internal/browser/scripts.go
package browser

// Script bodies shared by backends whose protocol has no native command for
// the operation. Each runs with the target element as arguments[0].
const (
	// DisplayedScript reports whether the element takes up space and is not
	// hidden by style.
	DisplayedScript = `const el = arguments[0];
if (!el.isConnected) { return false; }
const style = window.getComputedStyle(el);
if (style.visibility === 'hidden' || style.display === 'none' || style.opacity === '0') { return false; }
return el.getClientRects().length > 0;`

	// ClearScript empties an input through the prototype setter so that
	// frameworks tracking the value see the change.
	ClearScript = `const el = arguments[0];
const proto = Object.getPrototypeOf(el);
const desc = Object.getOwnPropertyDescriptor(proto, 'value');
if (desc && desc.set) { desc.set.call(el, ''); } else { el.value = ''; }
el.dispatchEvent(new Event('input', { bubbles: true }));
el.dispatchEvent(new Event('change', { bubbles: true }));`

	// SubmitScript submits the form owning the element, firing submit handlers.
	SubmitScript = `const el = arguments[0];
const form = el.form || el.closest('form');
if (!form) { throw new Error('element is not inside a form'); }
if (form.requestSubmit) { form.requestSubmit(); } else { form.submit(); }`

	// TextScript returns the rendered text of the element.
	TextScript = `return arguments[0].innerText;`

	// EnabledScript reports whether the element accepts interaction.
	EnabledScript = `return !arguments[0].disabled;`
)
