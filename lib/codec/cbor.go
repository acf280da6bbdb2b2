// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode writes Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. A
// resource index that did not change re-encodes to identical bytes,
// which keeps untouched files byte-stable across a patch run.
var encMode cbor.EncMode

// decMode rejects duplicate map keys and bounds container sizes.
// Resource indexes come from files on disk that may be damaged, and a
// corrupt length must fail decoding rather than allocate gigabytes.
var decMode cbor.DecMode

// maxIndexEntries bounds arrays and maps in decoded documents. A
// single typed resource never embeds more members than this.
const maxIndexEntries = 1 << 16

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxIndexEntries,
		MaxMapPairs:      maxIndexEntries,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Wellformed reports whether data is a single well-formed CBOR item.
func Wellformed(data []byte) error {
	return decMode.Wellformed(data)
}
