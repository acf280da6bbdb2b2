// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sarc reads and writes SARC archives.
//
// Layout (all integers in the archive's byte order, selected by the
// byte order mark):
//
//	0x00 "SARC", header size 0x14, BOM 0xFEFF, file size, data offset,
//	     version 0x0100, 2 reserved bytes
//	0x14 "SFAT", header size 0x0C, node count, hash key (0x65)
//	0x20 node count × {name hash, attributes, data start, data end}
//	     "SFNT", header size 0x08, 2 reserved bytes, then NUL-terminated
//	     names each padded to 4 bytes
//	data section at the data offset; node offsets are relative to it
//
// Nodes are sorted by name hash. An attribute high byte of 0x01 marks
// a named node whose low 16 bits are the name offset divided by 4.
package sarc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	headerSize       = 0x14
	fatHeaderSize    = 0x0C
	fatNodeSize      = 0x10
	fntHeaderSize    = 0x08
	version          = 0x0100
	defaultHashKey   = 0x65
	namedAttribute   = 0x01000000
	nameOffsetMask   = 0xFFFF
	minimumAlignment = 4
)

var (
	// ErrNotSARC is returned when the data does not start with a SARC
	// header.
	ErrNotSARC = errors.New("sarc: not a SARC archive")

	// ErrMalformed is returned for structurally invalid archives.
	ErrMalformed = errors.New("sarc: malformed archive")

	// ErrNotFound is returned when a member name is absent.
	ErrNotFound = errors.New("sarc: member not found")

	// ErrExists is returned by Add for a name already present.
	ErrExists = errors.New("sarc: member already exists")
)

// extensionAlignment lists member types whose loaders require a
// particular data alignment.
var extensionAlignment = map[string]uint32{
	"bflan":   0x4,
	"bflyt":   0x4,
	"szs":     0x2000,
	"sarc":    0x2000,
	"bfres":   0x2000,
	"sharcfb": 0x2000,
}

// File is one archive member.
type File struct {
	Name string
	Data []byte
}

// Archive is a decoded SARC archive. Members are kept in name hash
// order, which is the order they are serialized in.
type Archive struct {
	order     binary.ByteOrder
	hashKey   uint32
	alignment uint32
	files     []File
}

// New returns an empty big-endian archive.
func New() *Archive {
	return &Archive{
		order:     binary.BigEndian,
		hashKey:   defaultHashKey,
		alignment: minimumAlignment,
	}
}

// NameHash computes the SARC name hash of name with key. Bytes are
// treated as signed, matching the format's reference implementation.
func NameHash(name string, key uint32) uint32 {
	var hash uint32
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			break
		}
		hash = hash*key + uint32(int32(int8(name[i])))
	}
	return hash
}

// IsSARC reports whether data begins with a SARC header.
func IsSARC(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "SARC"
}

// Parse decodes a complete archive.
func Parse(data []byte) (*Archive, error) {
	if len(data) < headerSize+fatHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the headers", ErrMalformed, len(data))
	}
	if !IsSARC(data) {
		return nil, ErrNotSARC
	}

	var order binary.ByteOrder
	switch {
	case data[6] == 0xFE && data[7] == 0xFF:
		order = binary.BigEndian
	case data[6] == 0xFF && data[7] == 0xFE:
		order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("%w: byte order mark %02x%02x", ErrMalformed, data[6], data[7])
	}

	if size := order.Uint16(data[4:6]); size != headerSize {
		return nil, fmt.Errorf("%w: header size 0x%x", ErrMalformed, size)
	}
	dataOffset := order.Uint32(data[12:16])
	if v := order.Uint16(data[16:18]); v != version {
		return nil, fmt.Errorf("%w: unsupported version 0x%04x", ErrMalformed, v)
	}

	fat := data[headerSize:]
	if string(fat[:4]) != "SFAT" || order.Uint16(fat[4:6]) != fatHeaderSize {
		return nil, fmt.Errorf("%w: bad SFAT header", ErrMalformed)
	}
	nodeCount := int(order.Uint16(fat[6:8]))
	hashKey := order.Uint32(fat[8:12])

	nodesStart := headerSize + fatHeaderSize
	fntStart := nodesStart + nodeCount*fatNodeSize
	if fntStart+fntHeaderSize > len(data) {
		return nil, fmt.Errorf("%w: %d nodes overrun the archive", ErrMalformed, nodeCount)
	}
	fnt := data[fntStart:]
	if string(fnt[:4]) != "SFNT" || order.Uint16(fnt[4:6]) != fntHeaderSize {
		return nil, fmt.Errorf("%w: bad SFNT header", ErrMalformed)
	}
	namesStart := fntStart + fntHeaderSize
	if int(dataOffset) > len(data) || int(dataOffset) < namesStart {
		return nil, fmt.Errorf("%w: data offset 0x%x", ErrMalformed, dataOffset)
	}
	names := data[namesStart:dataOffset]
	section := data[dataOffset:]

	archive := &Archive{order: order, hashKey: hashKey, files: make([]File, 0, nodeCount)}
	starts := make([]uint32, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		node := data[nodesStart+i*fatNodeSize:]
		nameHash := order.Uint32(node[0:4])
		attributes := order.Uint32(node[4:8])
		start := order.Uint32(node[8:12])
		end := order.Uint32(node[12:16])

		if attributes&0xFF000000 != namedAttribute {
			return nil, fmt.Errorf("%w: node %d has no name (attributes 0x%08x)", ErrMalformed, i, attributes)
		}
		nameOffset := int(attributes&nameOffsetMask) * 4
		if nameOffset >= len(names) {
			return nil, fmt.Errorf("%w: node %d name offset 0x%x", ErrMalformed, i, nameOffset)
		}
		terminator := bytes.IndexByte(names[nameOffset:], 0)
		if terminator < 0 {
			return nil, fmt.Errorf("%w: node %d name is not terminated", ErrMalformed, i)
		}
		name := string(names[nameOffset : nameOffset+terminator])
		if got := NameHash(name, hashKey); got != nameHash {
			return nil, fmt.Errorf("%w: %q hashes to 0x%08x, node says 0x%08x", ErrMalformed, name, got, nameHash)
		}
		if start > end || int(end) > len(section) {
			return nil, fmt.Errorf("%w: %q data range 0x%x-0x%x", ErrMalformed, name, start, end)
		}

		archive.files = append(archive.files, File{
			Name: name,
			Data: bytes.Clone(section[start:end]),
		})
		starts = append(starts, start+dataOffset)
	}

	archive.alignment = guessAlignment(dataOffset, starts)
	archive.sort()
	return archive, nil
}

// guessAlignment infers the default member alignment from the
// absolute offsets of existing members: their greatest common divisor
// when it is a power of two, otherwise 4.
func guessAlignment(dataOffset uint32, starts []uint32) uint32 {
	if len(starts) <= 2 {
		return minimumAlignment
	}
	divisor := dataOffset
	for _, start := range starts {
		divisor = gcd(divisor, start)
	}
	if divisor == 0 || divisor&(divisor-1) != 0 {
		return minimumAlignment
	}
	return max(divisor, minimumAlignment)
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (a *Archive) sort() {
	sort.SliceStable(a.files, func(i, j int) bool {
		return NameHash(a.files[i].Name, a.hashKey) < NameHash(a.files[j].Name, a.hashKey)
	})
}

func (a *Archive) index(name string) int {
	for i := range a.files {
		if a.files[i].Name == name {
			return i
		}
	}
	return -1
}

// ByteOrder returns the archive's byte order.
func (a *Archive) ByteOrder() binary.ByteOrder {
	return a.order
}

// Len returns the number of members.
func (a *Archive) Len() int {
	return len(a.files)
}

// Members returns member names in serialization order.
func (a *Archive) Members() []string {
	names := make([]string, len(a.files))
	for i, file := range a.files {
		names[i] = file.Name
	}
	return names
}

// Member returns a copy of the named member's data.
func (a *Archive) Member(name string) ([]byte, error) {
	i := a.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return bytes.Clone(a.files[i].Data), nil
}

// ReplaceMember swaps the data of an existing member. The archive
// takes ownership of data.
func (a *Archive) ReplaceMember(name string, data []byte) error {
	i := a.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	a.files[i].Data = data
	return nil
}

// Add inserts a new member.
func (a *Archive) Add(name string, data []byte) error {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("sarc: invalid member name %q", name)
	}
	if a.index(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	a.files = append(a.files, File{Name: name, Data: data})
	a.sort()
	return nil
}

// Remove deletes a member.
func (a *Archive) Remove(name string) error {
	i := a.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	a.files = append(a.files[:i], a.files[i+1:]...)
	return nil
}

func (a *Archive) memberAlignment(name string) uint32 {
	alignment := a.alignment
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		if required, ok := extensionAlignment[name[dot+1:]]; ok {
			alignment = max(alignment, required)
		}
	}
	return alignment
}

func alignUp(value, alignment uint32) uint32 {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// Bytes serializes the archive. Output is deterministic: the same
// members, byte order, and alignment always produce the same bytes.
func (a *Archive) Bytes() ([]byte, error) {
	if len(a.files) > 0xFFFF {
		return nil, fmt.Errorf("sarc: %d members exceed the node count field", len(a.files))
	}
	order := a.order

	var names bytes.Buffer
	nameOffsets := make([]uint32, len(a.files))
	for i, file := range a.files {
		nameOffsets[i] = uint32(names.Len())
		if nameOffsets[i]/4 > nameOffsetMask {
			return nil, fmt.Errorf("sarc: name table exceeds addressable size at %q", file.Name)
		}
		names.WriteString(file.Name)
		names.WriteByte(0)
		for names.Len()%4 != 0 {
			names.WriteByte(0)
		}
	}

	starts := make([]uint32, len(a.files))
	ends := make([]uint32, len(a.files))
	largest := uint32(minimumAlignment)
	var cursor uint32
	for i, file := range a.files {
		alignment := a.memberAlignment(file.Name)
		largest = max(largest, alignment)
		starts[i] = alignUp(cursor, alignment)
		ends[i] = starts[i] + uint32(len(file.Data))
		cursor = ends[i]
	}

	namesStart := uint32(headerSize + fatHeaderSize + len(a.files)*fatNodeSize + fntHeaderSize)
	dataOffset := alignUp(namesStart+uint32(names.Len()), largest)
	total := dataOffset + cursor

	out := make([]byte, total)
	copy(out[0:4], "SARC")
	order.PutUint16(out[4:6], headerSize)
	order.PutUint16(out[6:8], 0xFEFF)
	order.PutUint32(out[8:12], total)
	order.PutUint32(out[12:16], dataOffset)
	order.PutUint16(out[16:18], version)

	fat := out[headerSize:]
	copy(fat[0:4], "SFAT")
	order.PutUint16(fat[4:6], fatHeaderSize)
	order.PutUint16(fat[6:8], uint16(len(a.files)))
	order.PutUint32(fat[8:12], a.hashKey)

	for i, file := range a.files {
		node := out[headerSize+fatHeaderSize+i*fatNodeSize:]
		order.PutUint32(node[0:4], NameHash(file.Name, a.hashKey))
		order.PutUint32(node[4:8], namedAttribute|nameOffsets[i]/4)
		order.PutUint32(node[8:12], starts[i])
		order.PutUint32(node[12:16], ends[i])
	}

	fnt := out[namesStart-fntHeaderSize:]
	copy(fnt[0:4], "SFNT")
	order.PutUint16(fnt[4:6], fntHeaderSize)
	copy(out[namesStart:], names.Bytes())

	for i, file := range a.files {
		copy(out[dataOffset+starts[i]:], file.Data)
	}
	return out, nil
}

// DataOffset returns the absolute offset member name would occupy if
// the archive were serialized now.
func (a *Archive) DataOffset(name string) (int, error) {
	i := a.index(name)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	encoded, err := a.Bytes()
	if err != nil {
		return 0, err
	}
	dataOffset := a.order.Uint32(encoded[12:16])
	node := encoded[headerSize+fatHeaderSize+i*fatNodeSize:]
	return int(dataOffset + a.order.Uint32(node[8:12])), nil
}
