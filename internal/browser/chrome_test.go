package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/config"
)

// TestNewChromeLauncher_BaseOptions verifies the allocator always carries
// the base option set
func TestNewChromeLauncher_BaseOptions(t *testing.T) {
	cfg := &config.BrowserConfig{
		WindowWidth:  1400,
		WindowHeight: 900,
		Language:     "en_US",
	}

	l := NewChromeLauncher(cfg)
	if len(l.allocatorOpts) != 6 {
		t.Errorf("Expected 6 base allocator options, got %d", len(l.allocatorOpts))
	}
}

// TestNewChromeLauncher_ConditionalOptions verifies binary path, user
// agent, GPU and headless settings each add an option
func TestNewChromeLauncher_ConditionalOptions(t *testing.T) {
	cfg := &config.BrowserConfig{
		BinaryPath:   "/usr/bin/chromium",
		Headless:     true,
		UserAgent:    "speed-sleuth/1.0",
		WindowWidth:  1400,
		WindowHeight: 900,
		Language:     "en_US",
		DisableGPU:   true,
	}

	l := NewChromeLauncher(cfg)
	if len(l.allocatorOpts) != 10 {
		t.Errorf("Expected 10 allocator options with all conditionals set, got %d", len(l.allocatorOpts))
	}
}

// TestBoundedContext_CancelPropagates verifies cancelling the caller's
// context ends the derived session context
func TestBoundedContext_CancelPropagates(t *testing.T) {
	session := context.Background()
	caller, cancelCaller := context.WithCancel(context.Background())

	opCtx, cancel := boundedContext(session, caller)
	defer cancel()

	if opCtx.Err() != nil {
		t.Fatalf("Expected live context, got %v", opCtx.Err())
	}

	cancelCaller()

	select {
	case <-opCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected derived context to end when the caller was cancelled")
	}
}

// TestBoundedContext_DeadlinePropagates verifies the caller's deadline
// carries over to the derived context
func TestBoundedContext_DeadlinePropagates(t *testing.T) {
	session := context.Background()
	callerDeadline := time.Now().Add(time.Minute)
	caller, cancelCaller := context.WithDeadline(context.Background(), callerDeadline)
	defer cancelCaller()

	opCtx, cancel := boundedContext(session, caller)
	defer cancel()

	deadline, ok := opCtx.Deadline()
	if !ok {
		t.Fatal("Expected derived context to carry a deadline")
	}
	if deadline.After(callerDeadline) {
		t.Errorf("Expected deadline at or before %v, got %v", callerDeadline, deadline)
	}
}

// TestBoundedContext_SessionEndWins verifies the session's own teardown
// still ends the derived context
func TestBoundedContext_SessionEndWins(t *testing.T) {
	session, cancelSession := context.WithCancel(context.Background())
	caller := context.Background()

	opCtx, cancel := boundedContext(session, caller)
	defer cancel()

	cancelSession()

	select {
	case <-opCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected derived context to end with the session")
	}
}

// TestCategorizeClickError verifies interactability failures are mapped
// onto the sentinel while other failures stay generic
func TestCategorizeClickError(t *testing.T) {
	loc := CSS("div.start-button")

	interactability := []string{
		"could not compute box model",
		"node not visible",
		"element is not clickable at point (10, 10)",
		"node not found for selector",
	}
	for _, msg := range interactability {
		err := categorizeClickError(loc, errors.New(msg))
		if !errors.Is(err, ErrNotInteractable) {
			t.Errorf("Expected %q to map to ErrNotInteractable, got %v", msg, err)
		}
	}

	err := categorizeClickError(loc, errors.New("websocket connection closed"))
	if errors.Is(err, ErrNotInteractable) {
		t.Errorf("Expected a generic click error, got %v", err)
	}
}
