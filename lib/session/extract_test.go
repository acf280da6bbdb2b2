// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
)

func TestOpenCachesPrefixes(t *testing.T) {
	packed, _ := roomPack(t)
	codecs, counters := newCountingCodecs()
	s := newTestSession(t, map[string][]byte{"room.pack": packed}, withCodecs(codecs))

	const spec = "room.pack@DECOMPRESS@ARCHIVE@entity.bin"
	if cached, err := s.IsCached(spec); err != nil || cached {
		t.Fatalf("IsCached before Open = %v, %v; want false", cached, err)
	}

	first := mustOpen(t, s, spec)
	for _, prefix := range []string{"room.pack", "room.pack@DECOMPRESS", "room.pack@DECOMPRESS@ARCHIVE", spec} {
		cached, err := s.IsCached(prefix)
		if err != nil {
			t.Fatalf("IsCached(%s): %v", prefix, err)
		}
		if !cached {
			t.Errorf("IsCached(%s) = false after Open", prefix)
		}
	}

	second := mustOpen(t, s, spec)
	if first != second {
		t.Errorf("repeated Open returned %v then %v", first, second)
	}
	if decodes, _ := counters.stream.counts(); decodes != 1 {
		t.Errorf("stream decodes = %d, want 1", decodes)
	}
	if decodes, _ := counters.archive.counts(); decodes != 1 {
		t.Errorf("archive decodes = %d, want 1", decodes)
	}

	// A sibling member reuses the decoded archive.
	mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE@other.bin")
	if decodes, _ := counters.archive.counts(); decodes != 1 {
		t.Errorf("archive decodes after sibling Open = %d, want 1", decodes)
	}
}

func TestEquivalentSpecsShareNode(t *testing.T) {
	packed, _ := roomPack(t)
	s := newTestSession(t, map[string][]byte{"room.pack": packed})

	canonical := mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE@entity.bin")
	for _, spec := range []string{
		"room.pack@YAZ0@SARC@entity.bin",
		"room.pack@@DECOMPRESS@ARCHIVE@@entity.bin",
		"@room.pack@DECOMPRESS@SARC@entity.bin@",
	} {
		if h := mustOpen(t, s, spec); h != canonical {
			t.Errorf("Open(%s) = %v, want %v", spec, h, canonical)
		}
	}
}

func TestOpenReadsMemberBytes(t *testing.T) {
	packed, _ := roomPack(t)
	s := newTestSession(t, map[string][]byte{"room.pack": packed})

	h := mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE@entity.bin")
	info, err := s.Inspect(h)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Kind != KindRaw || info.Size != 96 {
		t.Errorf("member info = %+v, want raw 96 bytes", info)
	}

	archive := mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE")
	info, err = s.Inspect(archive)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Kind != KindArchive || len(info.Members) != 2 {
		t.Errorf("archive info = %+v, want archive with 2 members", info)
	}

	stream := mustOpen(t, s, "room.pack@DECOMPRESS")
	info, err = s.Inspect(stream)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Kind != KindEmpty {
		t.Errorf("decompressed node kind = %s after archive decode, want empty", info.Kind)
	}
	if info.Stream != compress.CodecYaz0 {
		t.Errorf("stream = %s, want yaz0", info.Stream)
	}
}

func TestOpenErrors(t *testing.T) {
	packed, archive := roomPack(t)
	files := map[string][]byte{
		"room.pack":  packed,
		"plain.sarc": archive,
		"junk.bin":   []byte("not a container at all"),
	}

	tests := []struct {
		name string
		spec string
		want error
	}{
		{"missing file", "absent.pack", ErrOpen},
		{"escaping path", "../outside.pack", ErrOpen},
		{"missing member", "room.pack@DECOMPRESS@ARCHIVE@absent.bin", ErrMemberNotFound},
		{"not compressed", "junk.bin@DECOMPRESS", ErrDecode},
		{"not an archive", "junk.bin@ARCHIVE", ErrDecode},
		{"not a resource", "plain.sarc@TYPED", ErrDecode},
		{"pinned codec mismatch", "room.pack@ZSTD", ErrDecode},
		{"unknown tag", "room.pack@GZIP", pathspec.ErrUnknownTag},
		{"grammar", "room.pack@entity.bin", pathspec.ErrGrammar},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestSession(t, files)
			_, err := s.Open(test.spec)
			if !errors.Is(err, test.want) {
				t.Fatalf("Open(%s) error = %v, want %v", test.spec, err, test.want)
			}
			if cached, _ := s.IsCached(test.spec); cached {
				t.Errorf("failed spec %s is cached", test.spec)
			}
		})
	}
}

func TestPinnedAliasCheckedOnCachedStream(t *testing.T) {
	packed, _ := roomPack(t)
	s := newTestSession(t, map[string][]byte{"room.pack": packed})
	stream := mustOpen(t, s, "room.pack@DECOMPRESS")

	if h := mustOpen(t, s, "room.pack@YAZ0"); h != stream {
		t.Errorf("Open(room.pack@YAZ0) = %v, want cached %v", h, stream)
	}
	for _, spec := range []string{"room.pack@ZSTD", "room.pack@LZ4@ARCHIVE@entity.bin"} {
		if _, err := s.Open(spec); !errors.Is(err, ErrDecode) {
			t.Errorf("Open(%s) error = %v, want ErrDecode", spec, err)
		}
	}
	// The mismatch leaves the cached node usable.
	mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE@entity.bin")
}

func TestFailedStepLeavesParentIntact(t *testing.T) {
	_, archive := roomPack(t)
	s := newTestSession(t, map[string][]byte{"plain.sarc": archive})

	if _, err := s.Open("plain.sarc@DECOMPRESS"); !errors.Is(err, ErrDecode) {
		t.Fatalf("Open(plain.sarc@DECOMPRESS) error = %v, want ErrDecode", err)
	}
	// The file node's raw bytes survive the failed decode.
	h := mustOpen(t, s, "plain.sarc@ARCHIVE@other.bin")
	info, err := s.Inspect(h)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Size != 40 {
		t.Errorf("member size = %d, want 40", info.Size)
	}

	if _, err := s.Open("plain.sarc@ARCHIVE@absent.bin"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("error = %v, want ErrMemberNotFound", err)
	}
	// The archive still serves its other members.
	mustOpen(t, s, "plain.sarc@ARCHIVE@entity.bin")
}

func TestConsumedRawPayloadRejectsSecondDecoder(t *testing.T) {
	packed, _ := roomPack(t)
	s := newTestSession(t, map[string][]byte{"room.pack": packed})
	mustOpen(t, s, "room.pack@DECOMPRESS")

	_, err := s.Open("room.pack@ARCHIVE")
	if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrPayloadKind) {
		t.Fatalf("second decoder error = %v, want ErrDecode wrapping ErrPayloadKind", err)
	}
}

func TestDelegatedOutput(t *testing.T) {
	_, archive := roomPack(t)
	s := newTestSession(t, map[string][]byte{"plain.sarc": archive})

	file := mustOpen(t, s, "plain.sarc")
	container := mustOpen(t, s, "plain.sarc@ARCHIVE")

	fileInfo, _ := s.Inspect(file)
	containerInfo, _ := s.Inspect(container)
	if fileInfo.Output || !containerInfo.Output {
		t.Fatalf("output flags file=%v archive=%v, want archive to own the output",
			fileInfo.Output, containerInfo.Output)
	}

	mustAction(t, s, file, func(*Payload) error { return nil })
	fileInfo, _ = s.Inspect(file)
	containerInfo, _ = s.Inspect(container)
	if !fileInfo.Output || containerInfo.Output {
		t.Fatalf("after file action: output flags file=%v archive=%v, want file to own the output",
			fileInfo.Output, containerInfo.Output)
	}
}

func TestFileActionBlocksDelegation(t *testing.T) {
	_, archive := roomPack(t)
	s := newTestSession(t, map[string][]byte{"plain.sarc": archive})

	file := mustOpen(t, s, "plain.sarc")
	mustAction(t, s, file, func(*Payload) error { return nil })
	container := mustOpen(t, s, "plain.sarc@ARCHIVE")

	if info, _ := s.Inspect(container); info.Output {
		t.Error("archive took the output flag from a file node with actions")
	}
}

func TestNestedStreamIsNotDelegated(t *testing.T) {
	packed, _ := roomPack(t)
	s := newTestSession(t, map[string][]byte{"room.pack": packed})
	file := mustOpen(t, s, "room.pack")
	archive := mustOpen(t, s, "room.pack@DECOMPRESS@ARCHIVE")

	if info, _ := s.Inspect(file); !info.Output {
		t.Error("file node above a stream lost the output flag")
	}
	if info, _ := s.Inspect(archive); info.Output {
		t.Error("archive below a stream owns the output")
	}
}

func TestOpenTypedResource(t *testing.T) {
	res := resourceBytes(t, "actor",
		member{"params", []byte("hp=10")},
		member{"model", pattern(32, 3)},
	)
	s := newTestSession(t, map[string][]byte{"actor.res": res})
	h := mustOpen(t, s, "actor.res@TYPED@params")
	info, err := s.Inspect(h)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Size != 5 {
		t.Errorf("params size = %d, want 5", info.Size)
	}
	got := extractBytes(t, s.base, "actor.res@RES@model")
	if !bytes.Equal(got, pattern(32, 3)) {
		t.Error("fixture extraction mismatch")
	}
}
