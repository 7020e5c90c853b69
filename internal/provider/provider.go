// Package provider hides the browser-automation layer behind a small set
// of timeout-bounded wait primitives and a guaranteed-cleanup lifecycle.
// Concrete site drivers build their interaction sequence on top of Base
// and implement the Provider interface.
package provider

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
)

// Timing defaults for the wait primitives
const (
	// DefaultPollInterval is the fixed interval between element probes
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultVisibleTimeout bounds WaitVisible
	DefaultVisibleTimeout = 90 * time.Second

	// DefaultElementTimeout bounds WaitForElement and WaitForClickable
	DefaultElementTimeout = 120 * time.Second
)

// Exit codes normalized by Run
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Provider is one target website's test-automation driver
type Provider interface {
	// Name identifies the provider (e.g., "speedtest")
	Name() string

	// URL is the page this provider automates
	URL() string

	// Acquired reports whether a live browser session is held
	Acquired() bool

	// Run executes the full scripted interaction sequence, writes the
	// result screenshot to filename, and returns the normalized exit
	// code. Cleanup is invoked on every path; Run never panics and
	// never lets a browser error escape.
	Run(ctx context.Context, filename string) int

	// ParseResults extracts structured results from a completed run.
	// Reserved extension point; currently unimplemented by all drivers.
	ParseResults() error
}

// LookupStatus is the tri-state outcome of a best-effort element lookup
type LookupStatus int

const (
	// LookupFound means the element is present in the DOM
	LookupFound LookupStatus = iota

	// LookupAbsent means the element does not exist. For optional page
	// furniture (consent modals, banners) this is expected, not an error.
	LookupAbsent

	// LookupError means the probe itself failed
	LookupError
)

// Base owns the driver handle and provides the polling wait primitives
// shared by all concrete providers. Lifecycle: Uninitialized (no driver)
// -> Acquired -> Cleaned; Cleaned is terminal and reachable from any
// state via Cleanup.
type Base struct {
	driver         browser.Driver
	logger         *slog.Logger
	pollInterval   time.Duration
	visibleTimeout time.Duration
	elementTimeout time.Duration
	exit           func(int)
}

// Option configures a Base
type Option func(*Base)

// WithLogger sets the logger used by the provider
func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) { b.logger = logger }
}

// WithPollInterval overrides the fixed probe interval
func WithPollInterval(interval time.Duration) Option {
	return func(b *Base) {
		if interval > 0 {
			b.pollInterval = interval
		}
	}
}

// WithWaitTimeouts overrides the default wait timeouts
func WithWaitTimeouts(visible, element time.Duration) Option {
	return func(b *Base) {
		if visible > 0 {
			b.visibleTimeout = visible
		}
		if element > 0 {
			b.elementTimeout = element
		}
	}
}

// WithExitFunc replaces the process-exit funnel used by Cleanup. The
// monitor loop injects a no-op so a failed run does not take the process
// down with it.
func WithExitFunc(exit func(int)) Option {
	return func(b *Base) {
		if exit != nil {
			b.exit = exit
		}
	}
}

// NewBase creates an unacquired Base
func NewBase(opts ...Option) Base {
	b := Base{
		logger:         slog.Default(),
		pollInterval:   DefaultPollInterval,
		visibleTimeout: DefaultVisibleTimeout,
		elementTimeout: DefaultElementTimeout,
		exit:           os.Exit,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Acquire obtains a driver handle from the launcher. On failure it logs
// and leaves the handle unset rather than returning an error; callers
// must check Acquired before driving the browser.
func (b *Base) Acquire(ctx context.Context, launcher browser.Launcher) {
	driver, err := launcher.LoadDriver(ctx)
	if err != nil {
		b.logger.Error("Failed to load browser driver", "error", err)
		return
	}
	b.driver = driver
}

// Acquired reports whether a live driver handle is held
func (b *Base) Acquired() bool {
	return b.driver != nil
}

// Driver returns the held driver handle, or nil before Acquire / after Cleanup
func (b *Base) Driver() browser.Driver {
	return b.driver
}

// Logger returns the provider's logger
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// VisibleTimeout returns the configured WaitVisible bound
func (b *Base) VisibleTimeout() time.Duration {
	return b.visibleTimeout
}

// ElementTimeout returns the configured element-wait bound
func (b *Base) ElementTimeout() time.Duration {
	return b.elementTimeout
}

// Lookup checks once for the element identified by loc. Absence is a
// normal return value, not an error.
func (b *Base) Lookup(ctx context.Context, loc browser.Locator) (LookupStatus, error) {
	if b.driver == nil {
		return LookupError, ErrNoDriver
	}

	state, err := b.driver.Probe(ctx, loc)
	if err != nil {
		return LookupError, err
	}
	if !state.Present {
		return LookupAbsent, nil
	}
	return LookupFound, nil
}

// WaitVisible polls at the fixed interval until the element identified by
// loc reports visible or the timeout elapses. Probe failures and absence
// are treated as continue-polling conditions. Never returns an error:
// the result is true if the element became visible in time.
func (b *Base) WaitVisible(ctx context.Context, loc browser.Locator, timeout time.Duration) bool {
	err := b.poll(ctx, loc, timeout, func(s browser.ElementState) bool {
		return s.Visible
	})
	if err != nil {
		b.logger.Warn("Timed out waiting for element to become visible",
			"locator", loc.String(),
			"timeout", timeout,
		)
		return false
	}
	return true
}

// WaitForElement polls until an element matching loc becomes visible.
// On timeout it fails with an ElementNotFoundError wrapping the cause.
func (b *Base) WaitForElement(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	err := b.poll(ctx, loc, timeout, func(s browser.ElementState) bool {
		return s.Visible
	})
	if err != nil {
		return &ElementNotFoundError{
			Locator:   loc,
			Condition: "visible",
			Timeout:   timeout,
			Cause:     err,
		}
	}
	return nil
}

// WaitForClickable polls until an element matching loc is visible and
// interactable. On timeout it fails with an ElementNotFoundError.
func (b *Base) WaitForClickable(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	err := b.poll(ctx, loc, timeout, func(s browser.ElementState) bool {
		return s.Visible && s.Interactable
	})
	if err != nil {
		return &ElementNotFoundError{
			Locator:   loc,
			Condition: "clickable",
			Timeout:   timeout,
			Cause:     err,
		}
	}
	return nil
}

// poll probes the element at the fixed interval until cond holds or the
// timeout elapses. The first probe happens immediately.
func (b *Base) poll(ctx context.Context, loc browser.Locator, timeout time.Duration, cond func(browser.ElementState) bool) error {
	if b.driver == nil {
		return ErrNoDriver
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		state, err := b.driver.Probe(waitCtx, loc)
		if err == nil && cond(state) {
			return nil
		}
		// Probe errors and unmet conditions both mean keep polling

		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-ticker.C:
		}
	}
}

// Cleanup releases the browser session and, for a nonzero code, terminates
// the process through the configured exit funnel. It is the single release
// path for the driver handle and is safe to call more than once: a second
// call finds the handle already cleared and does nothing.
func (b *Base) Cleanup(code int) {
	if b.driver != nil {
		if err := b.driver.Close(); err != nil {
			b.logger.Warn("Error closing browser session", "error", err)
		}
		b.driver = nil
	}

	if code != 0 {
		b.exit(code)
	}
}
