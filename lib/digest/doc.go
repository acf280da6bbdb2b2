// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes domain-separated BLAKE3 digests.
//
// Two domains are defined. Output digests identify files written to
// the output tree and appear in commit reports and CLI output.
// Resource digests are the data checksums embedded in typed resource
// containers. The same bytes hash differently in each domain, so a
// resource checksum can never be mistaken for an output digest.
package digest
