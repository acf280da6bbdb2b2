// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
)

// Open resolves spec to a node, decoding each step that is not
// cached yet, and returns a handle to it. Opening a cached specifier
// performs no I/O and no decoding.
//
// On failure no node is added for the failing step and its parent's
// payload is left as it was.
func (s *Session) Open(spec string) (Handle, error) {
	parsed, err := pathspec.Parse(spec)
	if err != nil {
		return Handle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return Handle{}, err
	}

	cursor := rootID
	key := ""
	for i, step := range parsed.Steps() {
		key = pathspec.Canonicalize(key, step)
		if child, ok := s.tree.child(cursor, key); ok {
			if err := checkPin(&s.tree.nodes[child].payload, step); err != nil {
				return Handle{}, fmt.Errorf("opening %s at step %d (%s): %w", parsed, i+1, step, err)
			}
			cursor = child
			continue
		}
		child, err := s.extract(cursor, key, step)
		if err != nil {
			return Handle{}, fmt.Errorf("opening %s at step %d (%s): %w", parsed, i+1, step, err)
		}
		cursor = child
	}
	return s.tree.handle(cursor), nil
}

// checkPin rejects a codec-pinning alias that reaches a cached stream
// decoded with a different codec.
func checkPin(payload *Payload, step pathspec.Step) error {
	if step.Tag != pathspec.Decompress {
		return nil
	}
	pin := pinnedCodec(step.Hint)
	stream := payload.Stream()
	if pin == compress.CodecNone || stream == compress.CodecNone || stream == pin {
		return nil
	}
	return fmt.Errorf("%w: stream is %s, step requires %s", ErrDecode, stream, pin)
}

// extract decodes step from the payload of parent and links the
// result under key. Callers hold s.mu.
func (s *Session) extract(parent nodeID, key string, step pathspec.Step) (nodeID, error) {
	if parent == rootID {
		data, err := s.readBase(step.Name)
		if err != nil {
			return 0, err
		}
		id := s.tree.add(rootID, key, step, RawPayload(data))
		s.tree.nodes[id].toOutput = true
		return id, nil
	}

	if step.Tag == pathspec.Literal {
		container, err := s.tree.nodes[parent].payload.Container()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		data, err := container.Member(step.Name)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMemberNotFound, err)
		}
		return s.tree.add(parent, key, step, RawPayload(data)), nil
	}

	codec, err := s.codecs.lookup(step)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	data, err := s.tree.nodes[parent].payload.Bytes()
	if err != nil {
		// A sibling step already consumed the raw bytes.
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	payload, err := codec.Decode(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	s.tree.nodes[parent].payload.Clear()
	id := s.tree.add(parent, key, step, payload)

	file := &s.tree.nodes[parent]
	if step.Tag.IsContainer() && file.parent == rootID && file.toOutput && len(file.actions) == 0 {
		file.toOutput = false
		file.delegated = true
		s.tree.nodes[id].toOutput = true
	}
	return id, nil
}
