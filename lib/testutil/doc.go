// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for patchkit packages.
//
// [WriteTree] populates a directory from a map of relative paths, and
// [ReadFile] reads one back, so session and CLI tests can build a base
// tree and inspect an output tree in a few lines.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests exercising worker goroutines never hang.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
