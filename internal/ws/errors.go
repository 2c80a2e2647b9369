package ws

import "errors"

// Sentinel errors for the realtime layer.
var (
	// ErrUnauthenticated is returned when a connection carries no
	// credential, or tries to join a room before the handshake completed.
	ErrUnauthenticated = errors.New("ws: unauthenticated")

	// ErrInvalidCredential is returned when a handshake token fails
	// verification or references a user that no longer exists.
	ErrInvalidCredential = errors.New("ws: invalid credential")
)
