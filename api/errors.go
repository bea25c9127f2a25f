package api

import "errors"

// Error kinds surfaced by the storage and reaction layers. Handlers translate
// them to HTTP statuses with errors.Is; anything unwrapped to none of these is
// a store failure and stays internal.
var (
	// ErrNotFound reports that a referenced post or reaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports a policy violation: self-reaction, a duplicate or
	// opposing reaction already in place, or acting on another user's
	// reaction or post.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict reports a unique-constraint violation, either a taken email
	// or two concurrent creates racing for the same (post, user) reaction
	// slot.
	ErrConflict = errors.New("conflict")
)
