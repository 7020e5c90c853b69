package speedtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
	"github.com/speedsleuth/speed-sleuth/internal/provider"
)

// scriptedDriver is a browser.Driver whose element states are keyed by
// selector, so a test can stage a whole page scenario up front
type scriptedDriver struct {
	mu       sync.Mutex
	states   map[string]browser.ElementState
	shot     []byte
	shotErr  error
	clickErr map[string]error

	navigated []string
	clicked   []string
	closes    int
}

func newScriptedDriver() *scriptedDriver {
	return &scriptedDriver{
		states:   make(map[string]browser.ElementState),
		clickErr: make(map[string]error),
		shot:     []byte("png-bytes"),
	}
}

func (d *scriptedDriver) setState(loc browser.Locator, state browser.ElementState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[loc.Selector] = state
}

func (d *scriptedDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *scriptedDriver) Probe(ctx context.Context, loc browser.Locator) (browser.ElementState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[loc.Selector], nil
}

func (d *scriptedDriver) Click(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicked = append(d.clicked, loc.Selector)
	return d.clickErr[loc.Selector]
}

func (d *scriptedDriver) Screenshot(ctx context.Context, loc browser.Locator) ([]byte, error) {
	return d.shot, d.shotErr
}

func (d *scriptedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *scriptedDriver) clickedSelector(selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.clicked {
		if s == selector {
			return true
		}
	}
	return false
}

type scriptedLauncher struct {
	driver browser.Driver
	err    error
}

func (l *scriptedLauncher) LoadDriver(ctx context.Context) (browser.Driver, error) {
	return l.driver, l.err
}

var interactable = browser.ElementState{Present: true, Visible: true, Interactable: true}

func fastOptions(exit func(int)) []provider.Option {
	opts := []provider.Option{
		provider.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		provider.WithPollInterval(5 * time.Millisecond),
		provider.WithWaitTimeouts(50*time.Millisecond, 50*time.Millisecond),
	}
	if exit != nil {
		opts = append(opts, provider.WithExitFunc(exit))
	}
	return opts
}

// TestNew_NavigatesToStartPage verifies that construction opens the
// speed-test page
func TestNew_NavigatesToStartPage(t *testing.T) {
	driver := newScriptedDriver()
	s := New(context.Background(), &scriptedLauncher{driver: driver}, fastOptions(nil)...)

	if !s.Acquired() {
		t.Fatal("Expected provider to hold a browser session")
	}
	if len(driver.navigated) != 1 || driver.navigated[0] != StartURL {
		t.Errorf("Expected navigation to %s, got %v", StartURL, driver.navigated)
	}
	if s.URL() != StartURL {
		t.Errorf("Expected provider URL %s, got %s", StartURL, s.URL())
	}
}

// TestRun_Success verifies the happy path: the start button is clicked,
// the result screenshot is written and the exit code is zero
func TestRun_Success(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(startButton, interactable)
	driver.setState(resultContainer, interactable)

	var exited bool
	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(int) { exited = true })...)

	filename := filepath.Join(t.TempDir(), "result.png")
	code := s.Run(context.Background(), filename)

	if code != provider.ExitOK {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitOK, code)
	}
	if exited {
		t.Error("Expected no process exit on success")
	}
	if !driver.clickedSelector(startButton.Selector) {
		t.Error("Expected the start button to be clicked")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Expected screenshot file to exist: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Unexpected screenshot contents: %q", data)
	}
	if driver.closes != 1 {
		t.Errorf("Expected the session to be closed once, got %d", driver.closes)
	}
}

// TestRun_DismissesOverlays verifies the consent modal and notification
// banner are clicked away when present
func TestRun_DismissesOverlays(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(consentRejectButton, interactable)
	driver.setState(notificationDismiss, interactable)
	driver.setState(startButton, interactable)
	driver.setState(resultContainer, interactable)

	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(int) {})...)

	code := s.Run(context.Background(), filepath.Join(t.TempDir(), "result.png"))
	if code != provider.ExitOK {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitOK, code)
	}
	if !driver.clickedSelector(consentRejectButton.Selector) {
		t.Error("Expected the consent modal to be rejected")
	}
	if !driver.clickedSelector(notificationDismiss.Selector) {
		t.Error("Expected the notification banner to be dismissed")
	}
}

// TestRun_OverlaysAbsent verifies missing overlays are skipped silently
// and do not fail the run
func TestRun_OverlaysAbsent(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(startButton, interactable)
	driver.setState(resultContainer, interactable)

	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(int) {})...)

	code := s.Run(context.Background(), filepath.Join(t.TempDir(), "result.png"))
	if code != provider.ExitOK {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitOK, code)
	}
	if driver.clickedSelector(consentRejectButton.Selector) {
		t.Error("Expected no click on an absent consent modal")
	}
}

// TestRun_StartButtonNeverClickable verifies the run fails with a nonzero
// code and exits when the start button never becomes clickable
func TestRun_StartButtonNeverClickable(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(startButton, browser.ElementState{Present: true, Visible: true})

	var exitCode int
	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(code int) { exitCode = code })...)

	code := s.Run(context.Background(), filepath.Join(t.TempDir(), "result.png"))

	if code != provider.ExitFailure {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitFailure, code)
	}
	if exitCode != provider.ExitFailure {
		t.Errorf("Expected process exit with code %d, got %d", provider.ExitFailure, exitCode)
	}
	if driver.closes != 1 {
		t.Errorf("Expected the session to be closed on failure, got %d closes", driver.closes)
	}
}

// TestRun_ResultsNeverAppear verifies that a test which never renders its
// result panel fails without writing a screenshot
func TestRun_ResultsNeverAppear(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(startButton, interactable)

	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(int) {})...)

	filename := filepath.Join(t.TempDir(), "result.png")
	code := s.Run(context.Background(), filename)

	if code != provider.ExitFailure {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitFailure, code)
	}
	if _, err := os.Stat(filename); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no screenshot file, stat returned %v", err)
	}
}

// TestRun_LaunchFailure verifies a run without an acquired session fails
// cleanly instead of panicking
func TestRun_LaunchFailure(t *testing.T) {
	var exitCode int
	s := New(context.Background(), &scriptedLauncher{err: errors.New("chrome not found")},
		fastOptions(func(code int) { exitCode = code })...)

	if s.Acquired() {
		t.Fatal("Expected no session after launch failure")
	}

	code := s.Run(context.Background(), filepath.Join(t.TempDir(), "result.png"))
	if code != provider.ExitFailure {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitFailure, code)
	}
	if exitCode != provider.ExitFailure {
		t.Errorf("Expected process exit with code %d, got %d", provider.ExitFailure, exitCode)
	}
}

// TestRun_DefaultFilename verifies the default output path is used when
// no filename is given
func TestRun_DefaultFilename(t *testing.T) {
	driver := newScriptedDriver()
	driver.setState(startButton, interactable)
	driver.setState(resultContainer, interactable)

	s := New(context.Background(), &scriptedLauncher{driver: driver},
		fastOptions(func(int) {})...)

	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	if code := s.Run(context.Background(), ""); code != provider.ExitOK {
		t.Fatalf("Expected exit code %d, got %d", provider.ExitOK, code)
	}
	if _, err := os.Stat("speedtest-result.png"); err != nil {
		t.Errorf("Expected default screenshot file: %v", err)
	}
}

// TestParseResults verifies the extension point reports itself unimplemented
func TestParseResults(t *testing.T) {
	s := &Speedtest{Base: provider.NewBase(fastOptions(nil)...)}
	if err := s.ParseResults(); !errors.Is(err, provider.ErrNotImplemented) {
		t.Errorf("Expected ErrNotImplemented, got %v", err)
	}
}

// TestRegistry verifies the provider registers itself by name
func TestRegistry(t *testing.T) {
	driver := newScriptedDriver()
	p, err := provider.New(context.Background(), "speedtest",
		&scriptedLauncher{driver: driver}, fastOptions(nil)...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Name() != "speedtest" {
		t.Errorf("Expected provider name 'speedtest', got %q", p.Name())
	}

	if _, err := provider.New(context.Background(), "nosuch",
		&scriptedLauncher{driver: driver}); err == nil {
		t.Error("Expected an error for an unknown provider")
	}
}
