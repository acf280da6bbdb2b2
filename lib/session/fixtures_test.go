// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/formats/resource"
	"github.com/bureau-foundation/patchkit/lib/formats/sarc"
	"github.com/bureau-foundation/patchkit/lib/formats/yaz0"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
	"github.com/bureau-foundation/patchkit/lib/testutil"
	"github.com/bureau-foundation/patchkit/lib/workpool"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testSession struct {
	*Session
	base string
	out  string
}

// newTestSession writes files into a fresh base directory and opens a
// single-worker session over it. Options adjust the config before New.
func newTestSession(t *testing.T, files map[string][]byte, options ...func(*Config)) testSession {
	t.Helper()
	base := t.TempDir()
	out := t.TempDir()
	testutil.WriteTree(t, base, files)

	config := Config{
		BaseDir:   base,
		OutputDir: out,
		Pool:      workpool.New(workpool.Config{Workers: 1, Logger: quietLogger()}),
		Logger:    quietLogger(),
	}
	for _, option := range options {
		option(&config)
	}
	s, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return testSession{Session: s, base: base, out: out}
}

func withWorkers(n int) func(*Config) {
	return func(c *Config) {
		c.Pool = workpool.New(workpool.Config{Workers: n, Logger: quietLogger()})
	}
}

func withCodecs(codecs *Codecs) func(*Config) {
	return func(c *Config) { c.Codecs = codecs }
}

// member is one archive or resource entry in a fixture, kept ordered.
type member struct {
	name string
	data []byte
}

func sarcBytes(t *testing.T, members ...member) []byte {
	t.Helper()
	archive := sarc.New()
	for _, m := range members {
		if err := archive.Add(m.name, m.data); err != nil {
			t.Fatalf("adding %s: %v", m.name, err)
		}
	}
	data, err := archive.Bytes()
	if err != nil {
		t.Fatalf("encoding archive: %v", err)
	}
	return data
}

func resourceBytes(t *testing.T, kind string, members ...member) []byte {
	t.Helper()
	file := resource.New(kind)
	for _, m := range members {
		if err := file.Add(m.name, m.data); err != nil {
			t.Fatalf("adding %s: %v", m.name, err)
		}
	}
	data, err := file.Bytes()
	if err != nil {
		t.Fatalf("encoding resource: %v", err)
	}
	return data
}

func yaz0Bytes(data []byte) []byte {
	return yaz0.Encode(data, yaz0.MaxLevel)
}

func pattern(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i*7)
	}
	return data
}

// roomPack is a Yaz0-compressed SARC with two members, the layout
// the scenario tests patch.
func roomPack(t *testing.T) (packed, archive []byte) {
	t.Helper()
	archive = sarcBytes(t,
		member{"entity.bin", pattern(96, 1)},
		member{"other.bin", pattern(40, 50)},
	)
	return yaz0Bytes(archive), archive
}

// extractBytes resolves spec against files under root without using
// a Session, so tests can check output trees independently.
func extractBytes(t *testing.T, root, spec string) []byte {
	t.Helper()
	steps := pathspec.MustParse(spec).Steps()
	data := testutil.ReadFile(t, root, steps[0].Name)
	var container Container
	var err error
	for _, step := range steps[1:] {
		switch step.Tag {
		case pathspec.Decompress:
			data, _, err = compress.DecompressAuto(data)
		case pathspec.Archive:
			container, err = sarc.Parse(data)
		case pathspec.Typed:
			container, err = resource.Parse(data)
		case pathspec.Literal:
			data, err = container.Member(step.Name)
		}
		if err != nil {
			t.Fatalf("extracting %s at %s: %v", spec, step, err)
		}
	}
	return data
}

// countingCodec wraps a Codec and records how it is used.
type countingCodec struct {
	inner Codec

	mu      sync.Mutex
	decodes int
	encodes int
	options []EncodeOptions
}

func (c *countingCodec) Decode(data []byte) (Payload, error) {
	c.mu.Lock()
	c.decodes++
	c.mu.Unlock()
	return c.inner.Decode(data)
}

func (c *countingCodec) Encode(payload *Payload, options EncodeOptions) ([]byte, error) {
	c.mu.Lock()
	c.encodes++
	c.options = append(c.options, options)
	c.mu.Unlock()
	return c.inner.Encode(payload, options)
}

func (c *countingCodec) counts() (decodes, encodes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodes, c.encodes
}

type countingCodecs struct {
	stream, archive, typed *countingCodec
}

// newCountingCodecs wraps the default codecs. Pinned aliases are
// dropped so every stream step goes through the counted codec.
func newCountingCodecs() (*Codecs, *countingCodecs) {
	defaults := DefaultCodecs(DefaultLevels())
	counters := &countingCodecs{
		stream:  &countingCodec{inner: defaults.Decompress},
		archive: &countingCodec{inner: defaults.Archive},
		typed:   &countingCodec{inner: defaults.Typed},
	}
	return &Codecs{
		Decompress: counters.stream,
		Archive:    counters.archive,
		Typed:      counters.typed,
	}, counters
}

func mustOpen(t *testing.T, s testSession, spec string) Handle {
	t.Helper()
	h, err := s.Open(spec)
	if err != nil {
		t.Fatalf("Open(%s): %v", spec, err)
	}
	return h
}

func mustAction(t *testing.T, s testSession, h Handle, fn Action) {
	t.Helper()
	if err := s.AddAction(h, fn); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
}

func mustCommit(t *testing.T, s testSession) Report {
	t.Helper()
	report, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return report
}

// flipByte returns an action that inverts one byte of a raw payload.
func flipByte(index int) Action {
	return func(payload *Payload) error {
		data, err := payload.Bytes()
		if err != nil {
			return err
		}
		data[index] ^= 0xFF
		return nil
	}
}
