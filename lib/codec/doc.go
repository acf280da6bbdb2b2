// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides patchkit's CBOR encoding configuration.
//
// CBOR is used for structured metadata embedded inside binary formats
// that patchkit owns, such as the member index of a typed resource
// (lib/formats/resource). Encoding is deterministic so re-encoding an
// unchanged document yields identical bytes. Decoding is strict:
// duplicate keys and oversized containers are errors.
//
//	data, err := codec.Marshal(index)
//	err = codec.Unmarshal(data, &index)
//
// Struct types use `cbor` tags; none of these documents are ever
// rendered as JSON.
package codec
