// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/patchkit/lib/formats/yaz0"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a compressed stream format. The zero value is
// CodecNone, which never appears on disk; it is what [Sniff] returns
// for data with no recognized magic.
type Codec uint8

const (
	CodecNone Codec = iota

	// CodecYaz0 is the Yaz0 LZ77 stream used by most packed game
	// resources. Levels 0 (store) through 9.
	CodecYaz0

	// CodecZstd is a single zstd frame. Levels 1 through 22, mapped
	// onto klauspost/compress speed tiers.
	CodecZstd

	// CodecLZ4 is an LZ4 frame. Levels 0 (fast) through 9.
	CodecLZ4
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// ErrUnknownFormat is returned when a stream matches no codec.
var ErrUnknownFormat = errors.New("unrecognized compressed stream")

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecYaz0:
		return "yaz0"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCodec parses a codec name as produced by String.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "none":
		return CodecNone, nil
	case "yaz0":
		return CodecYaz0, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression codec: %q", name)
	}
}

// Sniff identifies the codec of data by its leading magic bytes.
func Sniff(data []byte) Codec {
	switch {
	case yaz0.HasMagic(data):
		return CodecYaz0
	case bytes.HasPrefix(data, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CodecLZ4
	default:
		return CodecNone
	}
}

// Compress encodes data with codec at level. Out of range levels are
// clamped by each codec.
func Compress(data []byte, codec Codec, level int) ([]byte, error) {
	switch codec {
	case CodecYaz0:
		return yaz0.Encode(data, level), nil
	case CodecZstd:
		return compressZstd(data, level)
	case CodecLZ4:
		return compressLZ4(data, level)
	default:
		return nil, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// Decompress decodes a complete stream of the given codec.
func Decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecYaz0:
		return yaz0.Decode(data)
	case CodecZstd:
		return decompressZstd(data)
	case CodecLZ4:
		return decompressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression codec: %s", codec)
	}
}

// DecompressAuto sniffs the codec and decodes data with it.
func DecompressAuto(data []byte) ([]byte, Codec, error) {
	codec := Sniff(data)
	if codec == CodecNone {
		return nil, CodecNone, ErrUnknownFormat
	}
	decoded, err := Decompress(data, codec)
	if err != nil {
		return nil, codec, err
	}
	return decoded, codec, nil
}

// zstd encoders are built once per speed tier and shared; Encoder
// and Decoder are safe for concurrent EncodeAll/DecodeAll use.
var (
	zstdEncodersMu sync.Mutex
	zstdEncoders   = map[zstd.EncoderLevel]*zstd.Encoder{}

	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

func zstdEncoder(level int) (*zstd.Encoder, error) {
	speed := zstd.EncoderLevelFromZstd(max(1, level))

	zstdEncodersMu.Lock()
	defer zstdEncodersMu.Unlock()
	if encoder, ok := zstdEncoders[speed]; ok {
		return encoder, nil
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(speed))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder at %s: %w", speed, err)
	}
	zstdEncoders[speed] = encoder
	return encoder, nil
}

func compressZstd(data []byte, level int) ([]byte, error) {
	encoder, err := zstdEncoder(level)
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(data, nil), nil
}

func decompressZstd(compressed []byte) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return result, nil
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	level = max(0, min(level, len(lz4Levels)-1))

	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
		return nil, fmt.Errorf("lz4 options: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func decompressLZ4(compressed []byte) ([]byte, error) {
	result, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return result, nil
}
