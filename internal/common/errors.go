// Package common defines the sentinel errors shared by repositories,
// services and the HTTP layer. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Input rejected before reaching the store.
	ErrorValidation = errors.New("validation error")

	// Identity errors: no principal, bad credentials, principal not permitted.
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorBadCredentials  = errors.New("invalid username or password")
	ErrorForbidden       = errors.New("forbidden")

	// Collaborator failures (geocoder, image host).
	ErrorUpstream = errors.New("upstream failure")

	// Session backend unreachable or returned garbage.
	ErrorSessionStore = errors.New("session store failure")

	// Unexpected failure inside the server, such as a recovered panic.
	ErrorInternal = errors.New("internal error")
)
