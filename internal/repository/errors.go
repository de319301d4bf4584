// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrUserExists is returned when an insert would violate the unique
// constraint on email or username. Handlers should translate this into
// an HTTP 409 response.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when no user row matches the lookup.
// Handlers translate it into 404 or, for token lookups, into the
// normalized 400/401 token failure.
var ErrUserNotFound = errors.New("user not found")
