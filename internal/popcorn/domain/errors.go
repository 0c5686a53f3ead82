package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockedRequest is returned when the network interceptor vetoes a call.
	ErrBlockedRequest = errors.New("request blocked by embed guard")
	// ErrPopupBlocked is returned when the opener refuses a new browsing context.
	ErrPopupBlocked = errors.New("popup blocked by embed guard")
	// ErrNavigationBlocked is returned when a location assignment is dropped.
	ErrNavigationBlocked = errors.New("navigation blocked by embed guard")
	// ErrAlreadyInstalled is returned by Install while a guard is active.
	ErrAlreadyInstalled = errors.New("embed guard already installed")
	// ErrLocationNotConfigurable is returned when the host refuses a location override.
	ErrLocationNotConfigurable = errors.New("location is not configurable")
	// ErrProvider marks catalog provider failures.
	ErrProvider = errors.New("catalog provider error")
)

// BlockedRequestError carries the vetoed URL and the primitive that refused it.
type BlockedRequestError struct {
	URL       string
	Primitive string // "fetch" or "xhr"
	Verdict   Verdict
}

func (e *BlockedRequestError) Error() string {
	return fmt.Sprintf("%s %s: %s (%s)", e.Primitive, e.URL, ErrBlockedRequest.Error(), e.Verdict.Reason)
}

func (e *BlockedRequestError) Unwrap() error { return ErrBlockedRequest }

// ProviderError reports a non-success response from the catalog provider.
type ProviderError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: failed to fetch %s: %s", ErrProvider.Error(), e.Op, e.Status)
}

func (e *ProviderError) Unwrap() error { return ErrProvider }
