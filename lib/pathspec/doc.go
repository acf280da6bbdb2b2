// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pathspec parses nested-container path specifiers and derives
// their canonical cache keys.
//
// A specifier is a chain of steps separated by '@':
//
//	content/Stage/room.pack@DECOMPRESS@ARCHIVE@model.bin@TYPED@tex0
//
// The first step is a file path relative to the distribution's base
// directory. Every following step is either a format tag (DECOMPRESS,
// ARCHIVE, TYPED, or one of their codec-pinning aliases) or a literal
// member name inside the preceding archive or typed resource. An
// all-uppercase step that is not a known tag is rejected as an unknown
// tag, except directly after ARCHIVE or TYPED, where it names a member
// (room.pack@ARCHIVE@README).
//
// Each prefix of a specifier has a canonical key computed by
// [Canonicalize]. Tags append a fixed suffix that begins with '@';
// literals append themselves. Because literals can never contain '@'
// and the step grammar forbids two adjacent literals, distinct step
// sequences always produce distinct keys, and equivalent specifiers
// (extra empty steps, aliases) always produce the same key.
//
// This package depends on no other patchkit packages.
package pathspec
