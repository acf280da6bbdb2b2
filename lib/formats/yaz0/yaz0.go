// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package yaz0 implements the Yaz0 compressed stream format.
//
// A Yaz0 stream is a 16-byte header ("Yaz0", big-endian decompressed
// size, 8 reserved bytes) followed by groups of one flag byte and up
// to eight operations. A set flag bit copies one literal byte; a clear
// bit is a back-reference of 3 to 0x111 bytes at a distance of 1 to
// 0x1000.
//
// The encoder is a greedy LZ77 matcher over hash chains. Level 0 emits
// literals only (a valid stream that skips the search entirely); levels
// 1 through 9 bound how many chain candidates are tried per position.
package yaz0

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize = 16

	minMatch    = 3
	maxMatch    = 0x111
	windowSize  = 0x1000
	longMatch   = 0x12
	hashBits    = 15
	maxPrealloc = 64 << 20
)

// MaxLevel is the highest compression level.
const MaxLevel = 9

var magic = [4]byte{'Y', 'a', 'z', '0'}

var (
	// ErrBadMagic is returned when the input does not start with "Yaz0".
	ErrBadMagic = errors.New("yaz0: bad magic")

	// ErrTruncated is returned when the stream ends before the declared
	// decompressed size is produced.
	ErrTruncated = errors.New("yaz0: truncated stream")

	// ErrCorrupt is returned for back-references outside the produced
	// output.
	ErrCorrupt = errors.New("yaz0: corrupt back-reference")
)

// chainDepth is the number of hash chain candidates examined per
// position for each level.
var chainDepth = [MaxLevel + 1]int{0, 2, 4, 8, 16, 32, 64, 128, 256, 1024}

// HasMagic reports whether data begins with a Yaz0 header.
func HasMagic(data []byte) bool {
	return len(data) >= 4 && [4]byte(data[:4]) == magic
}

// DecompressedSize returns the size declared in a Yaz0 header.
func DecompressedSize(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, ErrTruncated
	}
	if !HasMagic(data) {
		return 0, ErrBadMagic
	}
	return int(binary.BigEndian.Uint32(data[4:8])), nil
}

// Decode decompresses a complete Yaz0 stream.
func Decode(src []byte) ([]byte, error) {
	size, err := DecompressedSize(src)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, min(size, maxPrealloc))
	position := headerSize
	for len(out) < size {
		if position >= len(src) {
			return nil, fmt.Errorf("%w: at output offset %d of %d", ErrTruncated, len(out), size)
		}
		flags := src[position]
		position++

		for bit := 0; bit < 8 && len(out) < size; bit++ {
			if flags&(0x80>>bit) != 0 {
				if position >= len(src) {
					return nil, fmt.Errorf("%w: literal at output offset %d", ErrTruncated, len(out))
				}
				out = append(out, src[position])
				position++
				continue
			}

			if position+2 > len(src) {
				return nil, fmt.Errorf("%w: reference at output offset %d", ErrTruncated, len(out))
			}
			b0, b1 := src[position], src[position+1]
			position += 2

			distance := (int(b0&0x0F)<<8 | int(b1)) + 1
			length := int(b0 >> 4)
			if length == 0 {
				if position >= len(src) {
					return nil, fmt.Errorf("%w: long reference at output offset %d", ErrTruncated, len(out))
				}
				length = int(src[position]) + longMatch
				position++
			} else {
				length += 2
			}

			start := len(out) - distance
			if start < 0 {
				return nil, fmt.Errorf("%w: distance %d at output offset %d", ErrCorrupt, distance, len(out))
			}
			if len(out)+length > size {
				return nil, fmt.Errorf("%w: reference overruns declared size %d", ErrCorrupt, size)
			}
			// Byte-at-a-time copy: references may overlap their own output.
			for i := 0; i < length; i++ {
				out = append(out, out[start+i])
			}
		}
	}
	return out, nil
}

// Encode compresses src at the given level. Levels outside 0..9 are
// clamped.
func Encode(src []byte, level int) []byte {
	level = max(0, min(level, MaxLevel))

	out := make([]byte, headerSize, headerSize+len(src)+len(src)/8+1)
	copy(out, magic[:])
	binary.BigEndian.PutUint32(out[4:8], uint32(len(src)))

	m := newMatcher(src, chainDepth[level])
	position := 0
	for position < len(src) {
		flagIndex := len(out)
		out = append(out, 0)
		var flags byte

		for bit := 0; bit < 8 && position < len(src); bit++ {
			length, distance := m.longest(position)
			if length < minMatch {
				flags |= 0x80 >> bit
				out = append(out, src[position])
				m.insert(position)
				position++
				continue
			}

			d := distance - 1
			if length >= longMatch {
				out = append(out, byte(d>>8), byte(d), byte(length-longMatch))
			} else {
				out = append(out, byte((length-2)<<4)|byte(d>>8), byte(d))
			}
			for i := 0; i < length; i++ {
				m.insert(position + i)
			}
			position += length
		}
		out[flagIndex] = flags
	}
	return out
}

// matcher indexes three-byte prefixes with hash chains.
type matcher struct {
	src   []byte
	depth int
	head  []int32
	prev  []int32
}

func newMatcher(src []byte, depth int) *matcher {
	m := &matcher{src: src, depth: depth}
	if depth == 0 {
		return m
	}
	m.head = make([]int32, 1<<hashBits)
	for i := range m.head {
		m.head[i] = -1
	}
	m.prev = make([]int32, len(src))
	return m
}

func (m *matcher) hash(position int) uint32 {
	value := uint32(m.src[position])<<16 | uint32(m.src[position+1])<<8 | uint32(m.src[position+2])
	return (value * 2654435761) >> (32 - hashBits)
}

func (m *matcher) insert(position int) {
	if m.depth == 0 || position+minMatch > len(m.src) {
		return
	}
	h := m.hash(position)
	m.prev[position] = m.head[h]
	m.head[h] = int32(position)
}

// longest returns the longest match for position within the window,
// or a zero length when none reaches minMatch.
func (m *matcher) longest(position int) (length, distance int) {
	if m.depth == 0 || position+minMatch > len(m.src) {
		return 0, 0
	}
	limit := min(maxMatch, len(m.src)-position)
	candidate := int(m.head[m.hash(position)])
	for tries := 0; candidate >= 0 && tries < m.depth; tries++ {
		if position-candidate > windowSize {
			break
		}
		n := 0
		for n < limit && m.src[candidate+n] == m.src[position+n] {
			n++
		}
		if n > length {
			length, distance = n, position-candidate
			if n == limit {
				break
			}
		}
		candidate = int(m.prev[candidate])
	}
	if length < minMatch {
		return 0, 0
	}
	return length, distance
}
