package browser

import (
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
)

// Strategy selects how a locator's selector string is interpreted
type Strategy string

const (
	// ByCSS matches the first element for a CSS selector
	ByCSS Strategy = "css"

	// ByXPath matches the first element for an XPath expression
	ByXPath Strategy = "xpath"

	// ByID matches the element with the given id attribute
	ByID Strategy = "id"
)

// Locator identifies a DOM element as an immutable (strategy, selector) pair
type Locator struct {
	Strategy Strategy
	Selector string
}

// CSS builds a CSS locator
func CSS(selector string) Locator {
	return Locator{Strategy: ByCSS, Selector: selector}
}

// XPath builds an XPath locator
func XPath(expression string) Locator {
	return Locator{Strategy: ByXPath, Selector: expression}
}

// ID builds an element-id locator
func ID(id string) Locator {
	return Locator{Strategy: ByID, Selector: id}
}

// String renders the locator for log messages
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Selector)
}

// lookupJS returns a JS expression evaluating to the located element or null
func (l Locator) lookupJS() string {
	sel := strconv.Quote(l.Selector)
	switch l.Strategy {
	case ByXPath:
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", sel)
	case ByID:
		return fmt.Sprintf("document.getElementById(%s)", sel)
	default:
		return fmt.Sprintf("document.querySelector(%s)", sel)
	}
}

// probeJS returns a JS expression evaluating to an ElementState object
func (l Locator) probeJS() string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) {
		return {present: false, visible: false, interactable: false};
	}
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	const visible = style.display !== 'none' && style.visibility !== 'hidden' &&
		rect.width > 0 && rect.height > 0;
	const interactable = visible && !el.disabled && style.pointerEvents !== 'none';
	return {present: true, visible: visible, interactable: interactable};
})()`, l.lookupJS())
}

// queryOption maps the strategy to the chromedp query option used for
// click and screenshot actions. ID locators use a plain CSS query:
// querySelector already rewrites them to #id, and chromedp.ByID would
// prepend a second #.
func (l Locator) queryOption() chromedp.QueryOption {
	if l.Strategy == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// querySelector is the selector string passed to chromedp actions
func (l Locator) querySelector() string {
	if l.Strategy == ByID {
		return "#" + l.Selector
	}
	return l.Selector
}
