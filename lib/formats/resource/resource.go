// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resource reads and writes typed resource containers: a
// binary resource that embeds named sub-resources.
//
// Layout (little-endian):
//
//	0x00 magic "RESF"
//	0x04 format version (uint16), reserved (uint16)
//	0x08 index length (uint32)
//	0x0C data length (uint32)
//	0x10 resource-domain BLAKE3 digest of the data section (32 bytes)
//	0x30 CBOR index {kind, members: [{name, offset, size}]}
//	data section, starting at the first 16-byte boundary after the
//	index; member offsets are relative to it
//
// Members are laid out in index order, each aligned to 16 bytes.
// Serialization is deterministic: the index uses CBOR core
// deterministic encoding and padding is zero-filled.
package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/patchkit/lib/codec"
	"github.com/bureau-foundation/patchkit/lib/digest"
)

const (
	magic         = "RESF"
	formatVersion = 1
	headerSize    = 0x30
	alignment     = 16
)

var (
	// ErrNotResource is returned when data lacks the resource magic.
	ErrNotResource = errors.New("resource: not a typed resource")

	// ErrMalformed is returned for structurally invalid containers.
	ErrMalformed = errors.New("resource: malformed container")

	// ErrChecksum is returned when the data section does not match
	// the header digest.
	ErrChecksum = errors.New("resource: data checksum mismatch")

	// ErrNotFound is returned when a member name is absent.
	ErrNotFound = errors.New("resource: member not found")

	// ErrExists is returned by Add for a name already present.
	ErrExists = errors.New("resource: member already exists")
)

type indexEntry struct {
	Name   string `cbor:"name"`
	Offset uint32 `cbor:"offset"`
	Size   uint32 `cbor:"size"`
}

type index struct {
	Kind    string       `cbor:"kind"`
	Members []indexEntry `cbor:"members"`
}

type member struct {
	name string
	data []byte
}

// File is a decoded typed resource.
type File struct {
	kind    string
	members []member
}

// Range is a byte range within the serialized container.
type Range struct {
	Offset int
	Size   int
}

// End returns the offset one past the last byte of the range.
func (r Range) End() int {
	return r.Offset + r.Size
}

// New returns an empty resource of the given kind.
func New(kind string) *File {
	return &File{kind: kind}
}

// IsResource reports whether data begins with the resource magic.
func IsResource(data []byte) bool {
	return len(data) >= len(magic) && string(data[:len(magic)]) == magic
}

// Parse decodes a serialized container and verifies its checksum.
func Parse(data []byte) (*File, error) {
	if !IsResource(data) {
		return nil, ErrNotResource
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	indexLength := int(binary.LittleEndian.Uint32(data[8:12]))
	dataLength := int(binary.LittleEndian.Uint32(data[12:16]))

	dataOffset := alignUp(headerSize + indexLength)
	if indexLength < 0 || dataLength < 0 || dataOffset+dataLength != len(data) {
		return nil, fmt.Errorf("%w: index %d bytes and data %d bytes do not fill %d bytes",
			ErrMalformed, indexLength, dataLength, len(data))
	}

	section := data[dataOffset:]
	var want digest.Digest
	copy(want[:], data[16:headerSize])
	if got := digest.Resource(section); got != want {
		return nil, fmt.Errorf("%w: header says %s, data hashes to %s", ErrChecksum, want.Short(), got.Short())
	}

	var idx index
	if err := codec.Unmarshal(data[headerSize:headerSize+indexLength], &idx); err != nil {
		return nil, fmt.Errorf("%w: decoding index: %v", ErrMalformed, err)
	}

	file := &File{kind: idx.Kind, members: make([]member, 0, len(idx.Members))}
	seen := make(map[string]bool, len(idx.Members))
	for _, entry := range idx.Members {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: member with empty name", ErrMalformed)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("%w: duplicate member %q", ErrMalformed, entry.Name)
		}
		seen[entry.Name] = true
		end := uint64(entry.Offset) + uint64(entry.Size)
		if end > uint64(len(section)) {
			return nil, fmt.Errorf("%w: member %q range 0x%x+0x%x exceeds data section",
				ErrMalformed, entry.Name, entry.Offset, entry.Size)
		}
		file.members = append(file.members, member{
			name: entry.Name,
			data: bytes.Clone(section[entry.Offset:end]),
		})
	}
	return file, nil
}

// Kind returns the resource type name recorded in the index.
func (f *File) Kind() string {
	return f.kind
}

// Members returns member names in index order.
func (f *File) Members() []string {
	names := make([]string, len(f.members))
	for i, m := range f.members {
		names[i] = m.name
	}
	return names
}

func (f *File) find(name string) int {
	for i := range f.members {
		if f.members[i].name == name {
			return i
		}
	}
	return -1
}

// Member returns a copy of the named member's bytes.
func (f *File) Member(name string) ([]byte, error) {
	i := f.find(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return bytes.Clone(f.members[i].data), nil
}

// ReplaceMember swaps the bytes of an existing member. The file takes
// ownership of data.
func (f *File) ReplaceMember(name string, data []byte) error {
	i := f.find(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	f.members[i].data = data
	return nil
}

// Add appends a new member.
func (f *File) Add(name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("resource: empty member name")
	}
	if f.find(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	f.members = append(f.members, member{name: name, data: data})
	return nil
}

// layout computes the index and the data section length for the
// current members.
func (f *File) layout() (index, int) {
	idx := index{Kind: f.kind, Members: make([]indexEntry, len(f.members))}
	cursor := 0
	for i, m := range f.members {
		cursor = alignUp(cursor)
		idx.Members[i] = indexEntry{Name: m.name, Offset: uint32(cursor), Size: uint32(len(m.data))}
		cursor += len(m.data)
	}
	return idx, cursor
}

// Locate returns the byte range member name would occupy in the
// serialized container.
func (f *File) Locate(name string) (Range, error) {
	i := f.find(name)
	if i < 0 {
		return Range{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	idx, _ := f.layout()
	encoded, err := codec.Marshal(idx)
	if err != nil {
		return Range{}, fmt.Errorf("resource: encoding index: %w", err)
	}
	entry := idx.Members[i]
	return Range{
		Offset: alignUp(headerSize+len(encoded)) + int(entry.Offset),
		Size:   int(entry.Size),
	}, nil
}

// Bytes serializes the container.
func (f *File) Bytes() ([]byte, error) {
	idx, dataLength := f.layout()
	encoded, err := codec.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("resource: encoding index: %w", err)
	}
	dataOffset := alignUp(headerSize + len(encoded))

	out := make([]byte, dataOffset+dataLength)
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint16(out[4:6], formatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(encoded)))
	binary.LittleEndian.PutUint32(out[12:16], uint32(dataLength))
	copy(out[headerSize:], encoded)

	section := out[dataOffset:]
	for i, m := range f.members {
		copy(section[idx.Members[i].Offset:], m.data)
	}
	sum := digest.Resource(section)
	copy(out[16:headerSize], sum[:])
	return out, nil
}

func alignUp(value int) int {
	return (value + alignment - 1) / alignment * alignment
}
