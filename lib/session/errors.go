// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "errors"

// Sentinel errors. Every error returned by a Session wraps one of
// these (or a pathspec error) and names the specifier and step it
// concerns.
var (
	// ErrOpen is returned when a base file cannot be read.
	ErrOpen = errors.New("cannot open source file")

	// ErrDecode is returned when a codec rejects a payload or a step
	// is applied to a payload of the wrong kind.
	ErrDecode = errors.New("decode failed")

	// ErrMemberNotFound is returned when a member step names a
	// member the parent container does not have.
	ErrMemberNotFound = errors.New("member not found")

	// ErrAction is returned when a registered action fails.
	ErrAction = errors.New("action failed")

	// ErrEncode is returned when a codec cannot re-encode a node or
	// a finished node cannot be written to its destination.
	ErrEncode = errors.New("encode failed")

	// ErrCycle is returned when dependencies can never be satisfied.
	ErrCycle = errors.New("dependency cycle")

	// ErrNotInitialized is returned by methods on a Session that was
	// not created with New or has been closed.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrInvalidHandle is returned for handles that do not refer to a
	// live node, including handles from before a Reset.
	ErrInvalidHandle = errors.New("invalid node handle")

	// ErrPayloadKind is returned by typed Payload accessors when the
	// payload holds a different kind.
	ErrPayloadKind = errors.New("wrong payload kind")

	// ErrBusy is returned by methods that change the tree while a
	// Commit is running.
	ErrBusy = errors.New("commit in progress")

	// ErrLocked is returned by New when another session holds the
	// output directory.
	ErrLocked = errors.New("output directory is locked by another session")
)
