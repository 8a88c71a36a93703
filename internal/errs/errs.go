// Package errs defines the control plane's error taxonomy. Callers match
// with errors.Is / errors.As; messages are safe to surface to remote clients.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrCannotCloseLast is returned when closing would leave zero tabs.
	ErrCannotCloseLast = errors.New("cannot close last tab")
	// ErrNotInitialized indicates a subsystem was used before construction
	// completed.
	ErrNotInitialized = errors.New("state not initialized")
	// ErrNavigationTimeout indicates a navigation exceeded its deadline.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrNavigationCancelled indicates a navigation was aborted.
	ErrNavigationCancelled = errors.New("navigation cancelled")
	// ErrScriptTimeout indicates an injected script did not return in time.
	ErrScriptTimeout = errors.New("script timeout")
)

// TabNotFoundError reports an operation against an unknown tab ID.
type TabNotFoundError struct {
	ID uint64
}

func (e *TabNotFoundError) Error() string {
	return fmt.Sprintf("tab not found: %d", e.ID)
}

// InvalidURLError reports input that could not be resolved to a URL, even
// through the search fallback.
type InvalidURLError struct {
	Input  string
	Reason string
}

func (e *InvalidURLError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid URL: %q", e.Input)
	}
	return fmt.Sprintf("invalid URL %q: %s", e.Input, e.Reason)
}

// NavigationFailedError reports a navigation the host could not complete.
type NavigationFailedError struct {
	URL string
	Err error
}

func (e *NavigationFailedError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.URL, e.Err)
}

func (e *NavigationFailedError) Unwrap() error { return e.Err }

// InvalidTransitionError reports an illegal navigation state transition. These
// are programmer errors, never user errors.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// ScriptError reports a failure executing an injected script in the page.
type ScriptError struct {
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("script execution failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("script execution failed: %s", e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a pixel comparison between frames of
// different sizes.
type DimensionMismatchError struct {
	AWidth, AHeight int
	BWidth, BHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("images have different dimensions: %dx%d vs %dx%d",
		e.AWidth, e.AHeight, e.BWidth, e.BHeight)
}
