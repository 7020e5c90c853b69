// Package speedtest drives speedtest.net: it dismisses the consent and
// notification overlays, starts the test, waits for the result panel and
// captures it as a screenshot.
package speedtest

import (
	"context"
	"errors"
	"os"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
	"github.com/speedsleuth/speed-sleuth/internal/models"
	"github.com/speedsleuth/speed-sleuth/internal/provider"
)

// StartURL is the speed-test page this driver automates
const StartURL = "https://www.speedtest.net/"

// Page elements on speedtest.net
var (
	consentRejectButton = browser.CSS("button#onetrust-reject-all-handler")
	notificationDismiss = browser.CSS("a.notification-dismiss")
	startButton         = browser.CSS("#container div.start-button > a")
	resultContainer     = browser.CSS("div.result-container-speed.result-container-speed-active")
)

func init() {
	provider.Register("speedtest", func(ctx context.Context, launcher browser.Launcher, opts ...provider.Option) provider.Provider {
		return New(ctx, launcher, opts...)
	})
}

// Speedtest is the speedtest.net provider
type Speedtest struct {
	provider.Base
}

// New acquires a browser session and navigates to speedtest.net. A launch
// failure leaves the provider unacquired; Run then fails with a nonzero
// exit code instead of panicking.
func New(ctx context.Context, launcher browser.Launcher, opts ...provider.Option) *Speedtest {
	s := &Speedtest{Base: provider.NewBase(opts...)}

	s.Acquire(ctx, launcher)
	if s.Acquired() {
		if err := s.Driver().Navigate(ctx, StartURL); err != nil {
			s.Logger().Error("Failed to open speedtest.net", "error", err)
		}
	}
	return s
}

// Name identifies this provider
func (s *Speedtest) Name() string {
	return "speedtest"
}

// URL is the page this provider automates
func (s *Speedtest) URL() string {
	return StartURL
}

// Run executes the speed test and captures a screenshot of the results.
// All failure categories are normalized to the exit code, and Cleanup is
// invoked exactly once as the final action on every path.
func (s *Speedtest) Run(ctx context.Context, filename string) int {
	if filename == "" {
		filename = models.DefaultResultFile
	}

	code := provider.ExitOK
	if err := s.runTest(ctx, filename); err != nil {
		if errors.Is(err, browser.ErrNotInteractable) {
			s.Logger().Error("Element was not interactable", "error", err)
		} else {
			s.Logger().Error("Speed test run failed", "error", err)
		}
		code = provider.ExitFailure
	}

	s.Cleanup(code)
	return code
}

// runTest is the scripted interaction sequence against speedtest.net
func (s *Speedtest) runTest(ctx context.Context, filename string) error {
	if !s.Acquired() {
		return provider.ErrNoDriver
	}

	s.setup(ctx)
	s.dismissNotification(ctx)

	if err := s.WaitForClickable(ctx, startButton, s.ElementTimeout()); err != nil {
		return err
	}
	if err := s.Driver().Click(ctx, startButton); err != nil {
		return err
	}

	s.Logger().Info("Running speedtest.net, please wait")

	// Blocks until the result panel is displayed on screen
	if err := s.WaitForElement(ctx, resultContainer, s.ElementTimeout()); err != nil {
		return err
	}

	s.Logger().Info("Test finished, taking snapshot of the results")

	shot, err := s.Driver().Screenshot(ctx, resultContainer)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, shot, 0o644)
}

// setup rejects the consent modal if it is shown. The modal only appears
// for some regions, so absence is expected and silently ignored.
func (s *Speedtest) setup(ctx context.Context) {
	status, err := s.Lookup(ctx, consentRejectButton)
	if status != provider.LookupFound {
		if status == provider.LookupError {
			s.Logger().Debug("Consent modal lookup failed", "error", err)
		}
		return
	}

	if err := s.Driver().Click(ctx, consentRejectButton); err != nil {
		s.Logger().Debug("Failed to reject consent modal", "error", err)
	}
}

// dismissNotification closes the notification banner that can overlay the
// start button. Absence is expected and silently ignored.
func (s *Speedtest) dismissNotification(ctx context.Context) {
	status, err := s.Lookup(ctx, notificationDismiss)
	if status != provider.LookupFound {
		if status == provider.LookupError {
			s.Logger().Debug("Notification banner lookup failed", "error", err)
		}
		return
	}

	if !s.WaitVisible(ctx, notificationDismiss, s.VisibleTimeout()) {
		return
	}

	s.Logger().Info("Dismissing notification banner")
	if err := s.Driver().Click(ctx, notificationDismiss); err != nil {
		s.Logger().Debug("Failed to dismiss notification banner", "error", err)
	}
}

// ParseResults is a reserved extension point: the result screenshot is
// the product for now, and no structured output contract is defined.
func (s *Speedtest) ParseResults() error {
	return provider.ErrNotImplemented
}
