// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that measures elapsed time (commit durations in session
// reports, for example) holds a Clock instead of calling time.Now
// directly. Production uses Real(); tests use Fake(), which only
// moves when Advance or Set is called, so reported durations are
// exact.
package clock
