package browser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
)

// TestLocatorConstructors verifies each constructor records the right
// strategy and selector
func TestLocatorConstructors(t *testing.T) {
	css := CSS("div.start")
	if css.Strategy != ByCSS || css.Selector != "div.start" {
		t.Errorf("Unexpected CSS locator: %+v", css)
	}

	xp := XPath("//div[@id='result']")
	if xp.Strategy != ByXPath || xp.Selector != "//div[@id='result']" {
		t.Errorf("Unexpected XPath locator: %+v", xp)
	}

	id := ID("container")
	if id.Strategy != ByID || id.Selector != "container" {
		t.Errorf("Unexpected ID locator: %+v", id)
	}
}

// TestLocatorString verifies the log rendering includes both parts
func TestLocatorString(t *testing.T) {
	loc := CSS("a.notification-dismiss")
	if loc.String() != "css=a.notification-dismiss" {
		t.Errorf("Unexpected string form: %s", loc.String())
	}
}

// TestLookupJS verifies the generated lookup expression per strategy
func TestLookupJS(t *testing.T) {
	if js := CSS("div.x").lookupJS(); !strings.Contains(js, `document.querySelector("div.x")`) {
		t.Errorf("Unexpected CSS lookup: %s", js)
	}
	if js := XPath("//a").lookupJS(); !strings.Contains(js, "document.evaluate") {
		t.Errorf("Unexpected XPath lookup: %s", js)
	}
	if js := ID("main").lookupJS(); !strings.Contains(js, `document.getElementById("main")`) {
		t.Errorf("Unexpected ID lookup: %s", js)
	}
}

// TestLookupJS_QuotesSelector verifies selectors are quoted so quotes in
// a selector cannot break out of the expression
func TestLookupJS_QuotesSelector(t *testing.T) {
	js := CSS(`a[title="it's"]`).lookupJS()
	if !strings.Contains(js, `\"it's\"`) {
		t.Errorf("Expected escaped quotes in lookup expression: %s", js)
	}
}

// TestProbeJS verifies the probe expression reports the three state fields
func TestProbeJS(t *testing.T) {
	js := CSS("div.x").probeJS()
	for _, field := range []string{"present", "visible", "interactable"} {
		if !strings.Contains(js, field) {
			t.Errorf("Expected probe expression to carry %q: %s", field, js)
		}
	}
	if !strings.Contains(js, "getBoundingClientRect") {
		t.Error("Expected probe expression to check element geometry")
	}
}

// TestQueryOption verifies the chromedp query option per strategy. ID
// locators must use a CSS query: the selector is already rewritten to
// #id, and chromedp's own id option would prepend another #.
func TestQueryOption(t *testing.T) {
	queryPtr := reflect.ValueOf(chromedp.QueryOption(chromedp.ByQuery)).Pointer()
	searchPtr := reflect.ValueOf(chromedp.QueryOption(chromedp.BySearch)).Pointer()

	if got := reflect.ValueOf(CSS("div.x").queryOption()).Pointer(); got != queryPtr {
		t.Error("Expected ByQuery for CSS locators")
	}
	if got := reflect.ValueOf(ID("main").queryOption()).Pointer(); got != queryPtr {
		t.Error("Expected ByQuery for ID locators")
	}
	if got := reflect.ValueOf(XPath("//a").queryOption()).Pointer(); got != searchPtr {
		t.Error("Expected BySearch for XPath locators")
	}
}

// TestQuerySelector verifies the selector handed to browser actions,
// including the id-to-CSS rewrite
func TestQuerySelector(t *testing.T) {
	if s := CSS("div.start").querySelector(); s != "div.start" {
		t.Errorf("Unexpected CSS query selector: %s", s)
	}
	if s := ID("container").querySelector(); s != "#container" {
		t.Errorf("Unexpected ID query selector: %s", s)
	}
	if s := XPath("//a").querySelector(); s != "//a" {
		t.Errorf("Unexpected XPath query selector: %s", s)
	}
}
