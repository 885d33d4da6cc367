package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

var (
	// ErrDriverUnavailable matches errors from Acquire when no launch
	// strategy produced a working browser.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrSearchFailed matches errors from Search.
	ErrSearchFailed = errors.New("search failed")

	// ErrSessionLost marks driver errors after which the browser can no
	// longer be used.
	ErrSessionLost = errors.New("browser session lost")
)

// DriverUnavailableError carries the last strategy failure.
type DriverUnavailableError struct {
	Attempts int
	Last     error
}

func (e *DriverUnavailableError) Error() string {
	return fmt.Sprintf("all %d driver initialization strategies failed, last error: %v", e.Attempts, e.Last)
}

func (e *DriverUnavailableError) Is(target error) bool { return target == ErrDriverUnavailable }

func (e *DriverUnavailableError) Unwrap() error { return e.Last }

// SearchFailedError names the search step that did not complete.
type SearchFailedError struct {
	Step string
	Err  error
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SearchFailedError) Is(target error) bool { return target == ErrSearchFailed }

func (e *SearchFailedError) Unwrap() error { return e.Err }

// classify tags driver errors that mean the tab or browser is gone.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrSessionLost) {
		return err
	}
	if errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrChannelClosed) ||
		strings.Contains(strings.ToLower(err.Error()), "websocket") {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return err
}
