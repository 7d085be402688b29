package clover

import (
	"errors"
	"fmt"
)

// ErrPageLimitExceeded stops a catalog walk against a remote that never ends.
var ErrPageLimitExceeded = errors.New("clover catalog exceeded page limit")

// RemoteCatalogError wraps any failed call to the Clover REST API.
// Status is zero when the request never got a response.
type RemoteCatalogError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *RemoteCatalogError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("clover %s failed: %d - %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("clover %s failed: %v", e.Op, e.Err)
}

func (e *RemoteCatalogError) Unwrap() error {
	return e.Err
}

// AuthExchangeError is returned when the authorization code could not be traded
// for a token. Reason is the remote explanation with any secret material removed.
type AuthExchangeError struct {
	Status int
	Reason string
	Err    error
}

func (e *AuthExchangeError) Error() string {
	switch {
	case e.Status != 0 && e.Reason != "":
		return fmt.Sprintf("clover token exchange failed: %d - %s", e.Status, e.Reason)
	case e.Status != 0:
		return fmt.Sprintf("clover token exchange failed: %d", e.Status)
	case e.Reason != "":
		return "clover token exchange failed: " + e.Reason
	default:
		return fmt.Sprintf("clover token exchange failed: %v", e.Err)
	}
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}
