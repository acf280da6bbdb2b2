// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/formats/resource"
	"github.com/bureau-foundation/patchkit/lib/formats/sarc"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
)

// EncodeOptions carries context a codec may use to pick parameters.
type EncodeOptions struct {
	// TopLevel is set when the encoded bytes become an on-disk file
	// without further wrapping.
	TopLevel bool
}

// Codec decodes one container step and re-encodes it at repack time.
// Implementations must be safe for concurrent use: workers encode
// different nodes with the same Codec in parallel.
type Codec interface {
	Decode(data []byte) (Payload, error)
	Encode(payload *Payload, options EncodeOptions) ([]byte, error)
}

// Codecs maps format tags to codecs.
type Codecs struct {
	// Decompress handles DECOMPRESS steps.
	Decompress Codec

	// Pinned handles alias steps that name a compression codec
	// (YAZ0, ZSTD, LZ4). Missing entries fall back to Decompress.
	Pinned map[pathspec.Hint]Codec

	// Archive handles ARCHIVE steps.
	Archive Codec

	// Typed handles TYPED steps.
	Typed Codec
}

func (c *Codecs) lookup(step pathspec.Step) (Codec, error) {
	var codec Codec
	switch step.Tag {
	case pathspec.Decompress:
		codec = c.Decompress
		if pinned, ok := c.Pinned[step.Hint]; ok {
			codec = pinned
		}
	case pathspec.Archive:
		codec = c.Archive
	case pathspec.Typed:
		codec = c.Typed
	default:
		return nil, fmt.Errorf("step %q has no codec", step.Name)
	}
	if codec == nil {
		return nil, fmt.Errorf("no codec configured for %s", step.Tag)
	}
	return codec, nil
}

// pinnedCodec returns the stream codec a hint names, or
// compress.CodecNone for HintAuto.
func pinnedCodec(hint pathspec.Hint) compress.Codec {
	switch hint {
	case pathspec.HintYaz0:
		return compress.CodecYaz0
	case pathspec.HintZstd:
		return compress.CodecZstd
	case pathspec.HintLZ4:
		return compress.CodecLZ4
	default:
		return compress.CodecNone
	}
}

// Levels sets compression levels for the stream codecs.
type Levels struct {
	// Yaz0Top is used when the compressed stream is the whole file.
	Yaz0Top int

	// Yaz0Nested is used for streams embedded in another container,
	// which are encoded once per run and worth the extra time.
	Yaz0Nested int

	Zstd int
	LZ4  int
}

// DefaultLevels returns the levels used when configuration sets none.
func DefaultLevels() Levels {
	return Levels{Yaz0Top: 1, Yaz0Nested: 9, Zstd: 3, LZ4: 0}
}

// DefaultCodecs returns the codecs for the formats this repository
// ships: Yaz0, zstd, and LZ4 streams, SARC archives, and typed
// resources.
func DefaultCodecs(levels Levels) Codecs {
	return Codecs{
		Decompress: &StreamCodec{Levels: levels},
		Pinned: map[pathspec.Hint]Codec{
			pathspec.HintYaz0: &StreamCodec{Pin: pinnedCodec(pathspec.HintYaz0), Levels: levels},
			pathspec.HintZstd: &StreamCodec{Pin: pinnedCodec(pathspec.HintZstd), Levels: levels},
			pathspec.HintLZ4:  &StreamCodec{Pin: pinnedCodec(pathspec.HintLZ4), Levels: levels},
		},
		Archive: ArchiveCodec{},
		Typed:   ResourceCodec{},
	}
}

// StreamCodec decodes compressed streams by magic and re-encodes
// them with the codec they were decoded from.
type StreamCodec struct {
	// Pin, when set, is the only codec Decode accepts.
	Pin compress.Codec

	Levels Levels
}

// Decode sniffs and decompresses data.
func (c *StreamCodec) Decode(data []byte) (Payload, error) {
	sniffed := compress.Sniff(data)
	if sniffed == compress.CodecNone {
		return Payload{}, compress.ErrUnknownFormat
	}
	if c.Pin != compress.CodecNone && sniffed != c.Pin {
		return Payload{}, fmt.Errorf("stream is %s, step requires %s", sniffed, c.Pin)
	}
	decoded, err := compress.Decompress(data, sniffed)
	if err != nil {
		return Payload{}, err
	}
	return StreamPayload(decoded, sniffed), nil
}

// Encode compresses the payload's bytes.
func (c *StreamCodec) Encode(payload *Payload, options EncodeOptions) ([]byte, error) {
	data, err := payload.Bytes()
	if err != nil {
		return nil, err
	}
	codec := payload.Stream()
	if codec == compress.CodecNone {
		codec = c.Pin
	}
	if codec == compress.CodecNone {
		codec = compress.CodecYaz0
	}

	var level int
	switch codec {
	case compress.CodecYaz0:
		level = c.Levels.Yaz0Nested
		if options.TopLevel {
			level = c.Levels.Yaz0Top
		}
	case compress.CodecZstd:
		level = c.Levels.Zstd
	case compress.CodecLZ4:
		level = c.Levels.LZ4
	}
	return compress.Compress(data, codec, level)
}

// ArchiveCodec decodes and serializes SARC archives.
type ArchiveCodec struct{}

// Decode parses a SARC archive.
func (ArchiveCodec) Decode(data []byte) (Payload, error) {
	archive, err := sarc.Parse(data)
	if err != nil {
		return Payload{}, err
	}
	return ArchivePayload(archive), nil
}

// Encode serializes the archive.
func (ArchiveCodec) Encode(payload *Payload, _ EncodeOptions) ([]byte, error) {
	archive, err := payload.Archive()
	if err != nil {
		return nil, err
	}
	return archive.Bytes()
}

// ResourceCodec decodes and serializes typed resources.
type ResourceCodec struct{}

// Decode parses a typed resource and verifies its checksum.
func (ResourceCodec) Decode(data []byte) (Payload, error) {
	file, err := resource.Parse(data)
	if err != nil {
		return Payload{}, err
	}
	return ResourcePayload(file), nil
}

// Encode serializes the resource with a fresh checksum.
func (ResourceCodec) Encode(payload *Payload, _ EncodeOptions) ([]byte, error) {
	file, err := payload.Resource()
	if err != nil {
		return nil, err
	}
	return file.Bytes()
}
