// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/formats/resource"
	"github.com/bureau-foundation/patchkit/lib/formats/sarc"
)

// Kind identifies what a Payload holds.
type Kind uint8

const (
	// KindEmpty is a payload that was consumed by a child decode or
	// has not been filled yet.
	KindEmpty Kind = iota

	// KindRaw is a byte buffer.
	KindRaw

	// KindArchive is a decoded archive.
	KindArchive

	// KindResource is a decoded typed resource.
	KindResource
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRaw:
		return "raw"
	case KindArchive:
		return "archive"
	case KindResource:
		return "resource"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Container is a payload that holds named members.
type Container interface {
	Members() []string
	Member(name string) ([]byte, error)
	ReplaceMember(name string, data []byte) error
}

// Payload is the decoded content of one cache node.
//
// Exactly one of the kinds is held at a time. Actions receive a
// pointer and may replace the content with SetBytes; a container
// node whose payload is replaced with raw bytes is written out
// verbatim instead of being re-serialized.
type Payload struct {
	kind      Kind
	raw       []byte
	container Container

	// stream is the compression format the raw bytes were decoded
	// from. It survives Clear and SetBytes so that a decompressed
	// node re-encodes with the codec it came from.
	stream compress.Codec
}

// RawPayload returns a raw payload holding data.
func RawPayload(data []byte) Payload {
	return Payload{kind: KindRaw, raw: data}
}

// StreamPayload returns a raw payload decompressed from a stream of
// the given codec.
func StreamPayload(data []byte, stream compress.Codec) Payload {
	return Payload{kind: KindRaw, raw: data, stream: stream}
}

// ArchivePayload returns an archive payload.
func ArchivePayload(archive Container) Payload {
	return Payload{kind: KindArchive, container: archive}
}

// ResourcePayload returns a typed resource payload.
func ResourcePayload(file Container) Payload {
	return Payload{kind: KindResource, container: file}
}

// Kind returns what the payload holds.
func (p *Payload) Kind() Kind {
	return p.kind
}

// Stream returns the compression codec the payload was decoded from,
// or compress.CodecNone.
func (p *Payload) Stream() compress.Codec {
	return p.stream
}

// Bytes returns the raw buffer. The caller may modify it in place.
func (p *Payload) Bytes() ([]byte, error) {
	if p.kind != KindRaw {
		return nil, fmt.Errorf("%w: have %s, want raw", ErrPayloadKind, p.kind)
	}
	return p.raw, nil
}

// SetBytes replaces the payload with raw bytes.
func (p *Payload) SetBytes(data []byte) {
	p.kind = KindRaw
	p.raw = data
	p.container = nil
}

// Container returns the archive or resource the payload holds.
func (p *Payload) Container() (Container, error) {
	if p.kind != KindArchive && p.kind != KindResource {
		return nil, fmt.Errorf("%w: have %s, want archive or resource", ErrPayloadKind, p.kind)
	}
	return p.container, nil
}

// Archive returns the payload as a SARC archive.
func (p *Payload) Archive() (*sarc.Archive, error) {
	if p.kind != KindArchive {
		return nil, fmt.Errorf("%w: have %s, want archive", ErrPayloadKind, p.kind)
	}
	archive, ok := p.container.(*sarc.Archive)
	if !ok {
		return nil, fmt.Errorf("%w: archive is %T, not SARC", ErrPayloadKind, p.container)
	}
	return archive, nil
}

// Resource returns the payload as a typed resource file.
func (p *Payload) Resource() (*resource.File, error) {
	if p.kind != KindResource {
		return nil, fmt.Errorf("%w: have %s, want resource", ErrPayloadKind, p.kind)
	}
	file, ok := p.container.(*resource.File)
	if !ok {
		return nil, fmt.Errorf("%w: resource is %T", ErrPayloadKind, p.container)
	}
	return file, nil
}

// Clear drops the content and leaves an empty payload.
func (p *Payload) Clear() {
	p.kind = KindEmpty
	p.raw = nil
	p.container = nil
}
