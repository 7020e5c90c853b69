package browser

import (
	"context"
	"errors"
)

// ErrNotInteractable indicates an element exists on the page but cannot
// currently receive the requested action (obscured, zero-sized, disabled).
var ErrNotInteractable = errors.New("element not interactable")

// ElementState is the observed state of a DOM element from a single probe
type ElementState struct {
	// Present is true when the element exists in the DOM
	Present bool `json:"present"`

	// Visible is true when the element is rendered and has a non-empty box
	Visible bool `json:"visible"`

	// Interactable is true when the element is visible and can receive input
	Interactable bool `json:"interactable"`
}

// Driver is a live browser session. It is owned by exactly one provider
// instance and must be released through Close, which is safe to call
// more than once.
type Driver interface {
	// Navigate loads the given URL and waits for the page to be ready
	Navigate(ctx context.Context, url string) error

	// Probe reports the current state of the element identified by loc.
	// A missing element is not an error; it is reported as Present=false.
	Probe(ctx context.Context, loc Locator) (ElementState, error)

	// Click dispatches a click on the element identified by loc.
	// Interactability failures are reported as ErrNotInteractable.
	Click(ctx context.Context, loc Locator) error

	// Screenshot captures a PNG of exactly the element identified by loc
	Screenshot(ctx context.Context, loc Locator) ([]byte, error)

	// Close tears down the browser session
	Close() error
}

// Launcher supplies ready-to-use browser sessions
type Launcher interface {
	// LoadDriver starts a browser and returns a live session.
	// Fails if the underlying binary cannot be launched.
	LoadDriver(ctx context.Context) (Driver, error)
}
