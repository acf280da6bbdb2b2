// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package yaz0

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"
)

func sampleInputs() map[string][]byte {
	random := rand.New(rand.NewPCG(1, 2))
	noise := make([]byte, 10000)
	for i := range noise {
		noise[i] = byte(random.IntN(256))
	}
	return map[string][]byte{
		"empty":      {},
		"one byte":   {0x42},
		"short":      []byte("abcabcabcabc"),
		"text":       bytes.Repeat([]byte("the room actor table lists every actor. "), 200),
		"zeros":      make([]byte, 70000),
		"noise":      noise,
		"long match": append(bytes.Repeat([]byte{7}, 0x200), []byte("tail")...),
	}
}

func TestRoundTripAllLevels(t *testing.T) {
	for name, input := range sampleInputs() {
		for level := 0; level <= MaxLevel; level++ {
			encoded := Encode(input, level)
			if !HasMagic(encoded) {
				t.Fatalf("%s level %d: missing magic", name, level)
			}
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("%s level %d: Decode: %v", name, level, err)
			}
			if !bytes.Equal(decoded, input) {
				t.Fatalf("%s level %d: roundtrip mismatch", name, level)
			}
		}
	}
}

func TestHigherLevelsCompressRepetitiveData(t *testing.T) {
	input := sampleInputs()["text"]
	stored := Encode(input, 0)
	compressed := Encode(input, MaxLevel)
	if len(compressed) >= len(stored) {
		t.Errorf("level %d output %d bytes, level 0 output %d bytes", MaxLevel, len(compressed), len(stored))
	}
	if len(stored) < len(input)+headerSize {
		t.Errorf("level 0 output %d bytes is smaller than input %d", len(stored), len(input))
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	input := sampleInputs()["text"]
	if !bytes.Equal(Encode(input, 5), Encode(input, 5)) {
		t.Error("Encode produced different output for identical input")
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := Encode([]byte("abcabcabcabcabcabc"), 9)

	t.Run("bad magic", func(t *testing.T) {
		corrupted := append([]byte(nil), valid...)
		corrupted[0] = 'X'
		if _, err := Decode(corrupted); !errors.Is(err, ErrBadMagic) {
			t.Errorf("error = %v, want ErrBadMagic", err)
		}
	})

	t.Run("short header", func(t *testing.T) {
		if _, err := Decode(valid[:8]); !errors.Is(err, ErrTruncated) {
			t.Errorf("error = %v, want ErrTruncated", err)
		}
	})

	t.Run("truncated body", func(t *testing.T) {
		if _, err := Decode(valid[:len(valid)-1]); !errors.Is(err, ErrTruncated) {
			t.Errorf("error = %v, want ErrTruncated", err)
		}
	})

	t.Run("reference before start", func(t *testing.T) {
		stream := make([]byte, headerSize, headerSize+3)
		copy(stream, magic[:])
		stream[7] = 4
		// Flag byte 0: first op is a reference of length 3 at distance 16.
		stream = append(stream, 0x00, 0x10, 0x0F)
		if _, err := Decode(stream); !errors.Is(err, ErrCorrupt) {
			t.Errorf("error = %v, want ErrCorrupt", err)
		}
	})
}

func TestDecompressedSize(t *testing.T) {
	encoded := Encode(make([]byte, 1234), 1)
	size, err := DecompressedSize(encoded)
	if err != nil {
		t.Fatalf("DecompressedSize: %v", err)
	}
	if size != 1234 {
		t.Errorf("size = %d, want 1234", size)
	}
}
