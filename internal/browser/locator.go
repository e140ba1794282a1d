// internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"
)

// Strategy is the lookup mechanism of a Locator.
type Strategy string

const (
	ByID              Strategy = "id"
	ByName            Strategy = "name"
	ByClassName       Strategy = "class name"
	ByTagName         Strategy = "tag name"
	ByCSSSelector     Strategy = "css selector"
	ByXPath           Strategy = "xpath"
	ByLinkText        Strategy = "link text"
	ByPartialLinkText Strategy = "partial link text"
)

// Locator identifies zero or more elements of a rendered document.
// Locators are plain values and safe to declare as package-level variables.
type Locator struct {
	Strategy Strategy
	Value    string
}

// ID returns a locator matching the element's id attribute.
func ID(id string) Locator { return Locator{Strategy: ByID, Value: id} }

// Name returns a locator matching the element's name attribute.
func Name(name string) Locator { return Locator{Strategy: ByName, Value: name} }

// ClassName returns a locator matching a single CSS class.
func ClassName(class string) Locator { return Locator{Strategy: ByClassName, Value: class} }

// TagName returns a locator matching an element name.
func TagName(tag string) Locator { return Locator{Strategy: ByTagName, Value: tag} }

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{Strategy: ByCSSSelector, Value: selector} }

// XPath returns an XPath locator.
func XPath(expr string) Locator { return Locator{Strategy: ByXPath, Value: expr} }

// LinkText returns a locator matching anchors by their exact visible text.
func LinkText(text string) Locator { return Locator{Strategy: ByLinkText, Value: text} }

// String renders the locator as "strategy=value", the form used in logs and step labels.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// CSSSelector translates the locator into an equivalent CSS selector.
// XPath and link text locators have no CSS form and return ErrUnsupportedLocator.
func (l Locator) CSSSelector() (string, error) {
	switch l.Strategy {
	case ByID:
		return "#" + cssEscape(l.Value), nil
	case ByName:
		return fmt.Sprintf("[name=%q]", l.Value), nil
	case ByClassName:
		if strings.ContainsAny(strings.TrimSpace(l.Value), " \t") {
			return "", fmt.Errorf("%w: compound class name %q", ErrUnsupportedLocator, l.Value)
		}
		return "." + cssEscape(l.Value), nil
	case ByTagName:
		return l.Value, nil
	case ByCSSSelector:
		return l.Value, nil
	}
	return "", fmt.Errorf("%w: %s has no CSS equivalent", ErrUnsupportedLocator, l.Strategy)
}

// XPathExpr translates the locator into an equivalent XPath expression.
func (l Locator) XPathExpr() (string, error) {
	switch l.Strategy {
	case ByXPath:
		return l.Value, nil
	case ByID:
		return fmt.Sprintf("//*[@id=%s]", xpathLiteral(l.Value)), nil
	case ByName:
		return fmt.Sprintf("//*[@name=%s]", xpathLiteral(l.Value)), nil
	case ByClassName:
		return fmt.Sprintf("//*[contains(concat(' ', normalize-space(@class), ' '), %s)]",
			xpathLiteral(" "+l.Value+" ")), nil
	case ByTagName:
		return "//" + l.Value, nil
	case ByLinkText:
		return fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(l.Value)), nil
	case ByPartialLinkText:
		return fmt.Sprintf("//a[contains(., %s)]", xpathLiteral(l.Value)), nil
	}
	return "", fmt.Errorf("%w: %s has no XPath equivalent", ErrUnsupportedLocator, l.Strategy)
}

// cssEscape escapes characters that would otherwise end an identifier.
func cssEscape(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r > 0x7f:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, "\\%x ", r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// xpathLiteral quotes s for use in an XPath expression, falling back to
// concat() when s contains both quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
