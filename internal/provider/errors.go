package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
)

// ErrNoDriver indicates a wait primitive was called without a live
// browser session (Acquire failed or Cleanup already ran)
var ErrNoDriver = errors.New("no browser session acquired")

// ErrNotImplemented is returned by reserved extension points such as
// ParseResults
var ErrNotImplemented = errors.New("not implemented")

// ElementNotFoundError indicates a bounded wait elapsed without the
// target element reaching the required condition
type ElementNotFoundError struct {
	Locator   browser.Locator
	Condition string
	Timeout   time.Duration
	Cause     error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %s was not %s after %s: %v",
		e.Locator, e.Condition, e.Timeout, e.Cause)
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Cause
}
