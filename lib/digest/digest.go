// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the length of a digest in bytes.
const Size = 32

// Digest is a 32-byte BLAKE3 keyed hash.
type Digest [Size]byte

// domainKey is a 32-byte BLAKE3 key. Changing a key invalidates
// every digest in its domain. Keys are the ASCII domain name padded
// with zeros so they read cleanly in hex dumps.
type domainKey [32]byte

var (
	outputDomainKey = domainKey{
		'p', 'a', 't', 'c', 'h', 'k', 'i', 't', '.', 'o', 'u', 't', 'p', 'u', 't', 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	resourceDomainKey = domainKey{
		'p', 'a', 't', 'c', 'h', 'k', 'i', 't', '.', 'r', 'e', 's', 'o', 'u', 'r', 'c',
		'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Output returns the output-domain digest of a file's contents.
func Output(data []byte) Digest {
	return keyed(outputDomainKey, data)
}

// Resource returns the resource-domain digest of a resource data
// section.
func Resource(data []byte) Digest {
	return keyed(resourceDomainKey, data)
}

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines and
// tabular CLI output.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Parse decodes a 64-character hex string.
func Parse(text string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != Size {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(d[:], decoded)
	return d, nil
}

func keyed(key domainKey, data []byte) Digest {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
