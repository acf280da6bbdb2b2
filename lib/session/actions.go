// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"os"
)

// AddAction registers fn to run against the node's payload when it is
// repacked. Actions on one node run in registration order.
func (s *Session) AddAction(h Handle, fn Action) error {
	if fn == nil {
		return errors.New("session: nil action")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	id, err := s.tree.resolve(h)
	if err != nil {
		return err
	}
	n := &s.tree.nodes[id]
	n.actions = append(n.actions, fn)

	if n.delegated {
		// The file node must now see the re-encoded container, so the
		// container flushes into it and it writes the file.
		for _, child := range n.children {
			s.tree.nodes[child].toOutput = false
		}
		n.delegated = false
		n.toOutput = true
	}
	return nil
}

// AddDependent makes other wait for h: neither other nor any node
// beneath it is repacked until h has finished. Ancestors of h already
// wait for it, so this is only needed across unrelated branches.
func (s *Session) AddDependent(h, other Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	first, err := s.tree.resolve(h)
	if err != nil {
		return err
	}
	second, err := s.tree.resolve(other)
	if err != nil {
		return err
	}
	firstKey, secondKey := s.tree.nodes[first].key, s.tree.nodes[second].key
	switch {
	case first == second:
		return fmt.Errorf("%w: %s cannot depend on itself", ErrCycle, firstKey)
	case s.tree.isAncestor(first, second):
		return fmt.Errorf("%w: %s is inside %s, which cannot finish before it", ErrCycle, secondKey, firstKey)
	case s.tree.isAncestor(second, first):
		return fmt.Errorf("%w: %s is inside %s, which would wait on its own descendant", ErrCycle, firstKey, secondKey)
	}
	s.tree.nodes[second].prereqs++
	s.tree.nodes[first].dependents = append(s.tree.nodes[first].dependents, s.tree.handle(second))
	return nil
}

// SetFullRecompress controls how a DECOMPRESS node is repacked. When
// full is false the decompressed bytes are stored in the parent as
// they are, without running the compressor. Other nodes ignore it.
func (s *Session) SetFullRecompress(h Handle, full bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	id, err := s.tree.resolve(h)
	if err != nil {
		return err
	}
	s.tree.nodes[id].fullRecompress = full
	return nil
}

// CopyToFile opens spec and registers an action that replaces the
// node's content with the bytes of the local file source. The file is
// read immediately so a missing source fails here rather than during
// Commit.
func (s *Session) CopyToFile(source, spec string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w: %w", source, spec, ErrOpen, err)
	}
	h, err := s.Open(spec)
	if err != nil {
		return err
	}
	return s.AddAction(h, func(payload *Payload) error {
		payload.SetBytes(data)
		return nil
	})
}
