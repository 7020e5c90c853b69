package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/speedsleuth/speed-sleuth/internal/config"
)

// ChromeLauncher starts Chrome/Chromium sessions via chromedp
type ChromeLauncher struct {
	config        *config.BrowserConfig
	allocatorOpts []chromedp.ExecAllocatorOption
}

// NewChromeLauncher creates a launcher with allocator options derived
// from the browser configuration. A fresh allocator is created for every
// LoadDriver call so each run gets its own browser process.
func NewChromeLauncher(cfg *config.BrowserConfig) *ChromeLauncher {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox, // Required for Docker
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("lang", cfg.Language),
		chromedp.Flag("log-level", "3"), // Suppress Chrome warnings
	}

	if cfg.BinaryPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.BinaryPath))
	}

	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	return &ChromeLauncher{
		config:        cfg,
		allocatorOpts: opts,
	}
}

// LoadDriver starts a browser process and returns the live session
func (l *ChromeLauncher) LoadDriver(ctx context.Context) (Driver, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOpts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	// Running an empty task forces the browser process to start now,
	// so launch failures surface here instead of on the first action
	if err := chromedp.Run(taskCtx); err != nil {
		cancelTask()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &chromeDriver{
		ctx:     taskCtx,
		cancels: []context.CancelFunc{cancelTask, cancelAlloc},
	}, nil
}

// chromeDriver drives a single Chrome session through chromedp
type chromeDriver struct {
	ctx     context.Context
	cancels []context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// run executes chromedp actions on the session, honoring the caller's
// deadline and cancellation
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx, cancel := boundedContext(d.ctx, ctx)
	defer cancel()

	return chromedp.Run(opCtx, actions...)
}

// boundedContext derives a child of the session context that ends when the
// caller's context is cancelled or its deadline passes. chromedp actions
// only accept the session's context chain, so the caller's lifetime has to
// be grafted onto it.
func boundedContext(session, caller context.Context) (context.Context, context.CancelFunc) {
	var opCtx context.Context
	var cancel context.CancelFunc

	if deadline, ok := caller.Deadline(); ok {
		opCtx, cancel = context.WithDeadline(session, deadline)
	} else {
		opCtx, cancel = context.WithCancel(session)
	}

	stop := context.AfterFunc(caller, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads the given URL
func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Probe reports the current state of the located element
func (d *chromeDriver) Probe(ctx context.Context, loc Locator) (ElementState, error) {
	var state ElementState
	if err := d.run(ctx, chromedp.Evaluate(loc.probeJS(), &state)); err != nil {
		return ElementState{}, fmt.Errorf("failed to probe %s: %w", loc, err)
	}
	return state, nil
}

// Click dispatches a click on the located element
func (d *chromeDriver) Click(ctx context.Context, loc Locator) error {
	err := d.run(ctx, chromedp.Click(loc.querySelector(), loc.queryOption()))
	if err != nil {
		return categorizeClickError(loc, err)
	}
	return nil
}

// Screenshot captures a PNG of exactly the located element
func (d *chromeDriver) Screenshot(ctx context.Context, loc Locator) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.Screenshot(loc.querySelector(), &buf, loc.queryOption()))
	if err != nil {
		return nil, fmt.Errorf("failed to screenshot %s: %w", loc, err)
	}
	return buf, nil
}

// Close tears down the browser session. Safe to call more than once.
func (d *chromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}

// categorizeClickError maps chromedp click failures onto ErrNotInteractable
// when the element exists but cannot receive the click
func categorizeClickError(loc Locator, err error) error {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "could not compute box model"),
		strings.Contains(errStr, "node not visible"),
		strings.Contains(errStr, "not clickable"),
		strings.Contains(errStr, "node not found"):
		return fmt.Errorf("%w: %s: %s", ErrNotInteractable, loc, err)
	default:
		return fmt.Errorf("failed to click %s: %w", loc, err)
	}
}
