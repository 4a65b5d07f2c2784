package domain

import "errors"

var (
	// ErrMalformedArchive means the archive blob has no JSON array payload.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrMalformedRecord means an archive element lacks an id, text or timestamp.
	ErrMalformedRecord = errors.New("malformed archive record")

	// ErrStoreUnavailable wraps every failure of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidIndexInput is returned when a jump-to-index reply is not a
	// position inside the rewind.
	ErrInvalidIndexInput = errors.New("invalid index input")

	// ErrTransportFailure wraps failures of the outward messaging transport.
	ErrTransportFailure = errors.New("transport failure")

	// ErrNotRegistered is returned when a chat has no linked Twitter account.
	ErrNotRegistered = errors.New("chat is not registered")
)
