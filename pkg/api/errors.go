package api

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a call is attempted before the
// credential handshake has produced an access token.
var ErrNotAuthenticated = errors.New("not authenticated: complete the OAuth2 flow first")

// TransportError reports a failure below HTTP: DNS, TLS, connection reset,
// timeout or cancellation. No response was received from the server.
type TransportError struct {
	Op  string // e.g. "GET transactions"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
