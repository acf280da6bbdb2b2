// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the compressed stream codecs that sit
// behind the DECOMPRESS path step.
//
// Three codecs are supported, each identified by its magic so a stream
// can be decoded without knowing in advance what produced it:
//
//   - Yaz0, via lib/formats/yaz0. Most packed resources in the target
//     distributions use it.
//   - zstd frames, via github.com/klauspost/compress/zstd.
//   - LZ4 frames, via github.com/pierrec/lz4/v4.
//
// A decoded stream remembers nothing about its encoder settings, so
// re-encoding takes an explicit level. Re-encoding is lossless but not
// byte-identical to the original unless the same encoder and level
// produced it.
package compress
