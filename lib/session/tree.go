// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/patchkit/lib/pathspec"
)

// nodeID indexes the arena.
type nodeID int32

const (
	rootID   nodeID = 0
	noParent nodeID = -1
)

// Action mutates a node's payload at repack time.
type Action func(payload *Payload) error

// Handle refers to a node opened in a Session. Handles are
// invalidated by Reset, Commit, and RestorePristine of their file.
type Handle struct {
	id     nodeID
	serial uint64
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.serial == 0
}

type node struct {
	// serial is unique per allocation; zero marks a free slot.
	serial uint64

	key      string
	step     pathspec.Step
	parent   nodeID
	children map[string]nodeID

	payload Payload

	// toOutput nodes write their encoded bytes to the output tree
	// instead of flushing into the parent.
	toOutput bool

	// delegated file nodes passed toOutput to their single
	// container child and finish without I/O.
	delegated bool

	fullRecompress bool
	actions        []Action

	// prereqs counts unfinished nodes this node was registered as a
	// dependent of. dependents are released when this node finishes.
	prereqs    int
	dependents []Handle

	finished bool
}

func (n *node) live() bool {
	return n.serial != 0
}

// tree is the arena of cache nodes. Slot 0 is the root sentinel,
// whose children are the opened files.
type tree struct {
	nodes      []node
	free       []nodeID
	nextSerial uint64
}

func newTree() *tree {
	t := &tree{nextSerial: 1}
	t.nodes = append(t.nodes, node{
		serial:   t.takeSerial(),
		parent:   noParent,
		children: make(map[string]nodeID),
	})
	return t
}

func (t *tree) takeSerial() uint64 {
	serial := t.nextSerial
	t.nextSerial++
	return serial
}

// add links a new node under parent and returns its id.
func (t *tree) add(parent nodeID, key string, step pathspec.Step, payload Payload) nodeID {
	n := node{
		serial:         t.takeSerial(),
		key:            key,
		step:           step,
		parent:         parent,
		children:       make(map[string]nodeID),
		payload:        payload,
		fullRecompress: true,
	}
	var id nodeID
	if last := len(t.free) - 1; last >= 0 {
		id = t.free[last]
		t.free = t.free[:last]
		t.nodes[id] = n
	} else {
		id = nodeID(len(t.nodes))
		t.nodes = append(t.nodes, n)
	}
	t.nodes[parent].children[key] = id
	return id
}

// remove unlinks id from its parent and frees its subtree. It
// returns the dependents of every freed node, which the caller must
// release.
func (t *tree) remove(id nodeID) []Handle {
	n := &t.nodes[id]
	if n.parent != noParent {
		delete(t.nodes[n.parent].children, n.key)
	}
	return t.free1(id, nil)
}

func (t *tree) free1(id nodeID, released []Handle) []Handle {
	for _, child := range t.nodes[id].children {
		released = t.free1(child, released)
	}
	released = append(released, t.nodes[id].dependents...)
	t.nodes[id] = node{}
	t.free = append(t.free, id)
	return released
}

// prune frees the children of id.
func (t *tree) prune(id nodeID) {
	for key, child := range t.nodes[id].children {
		t.free1(child, nil)
		delete(t.nodes[id].children, key)
	}
}

// reset frees every node except the root.
func (t *tree) reset() {
	t.prune(rootID)
}

func (t *tree) handle(id nodeID) Handle {
	return Handle{id: id, serial: t.nodes[id].serial}
}

func (t *tree) resolve(h Handle) (nodeID, error) {
	if h.serial == 0 || h.id <= rootID || int(h.id) >= len(t.nodes) || t.nodes[h.id].serial != h.serial {
		return 0, ErrInvalidHandle
	}
	return h.id, nil
}

func (t *tree) child(parent nodeID, key string) (nodeID, bool) {
	id, ok := t.nodes[parent].children[key]
	return id, ok
}

func (t *tree) empty() bool {
	return len(t.nodes[rootID].children) == 0
}

// file returns the top-level node above id (id itself for a file
// node).
func (t *tree) file(id nodeID) nodeID {
	for t.nodes[id].parent != rootID {
		id = t.nodes[id].parent
	}
	return id
}

// isAncestor reports whether ancestor is a strict ancestor of id.
func (t *tree) isAncestor(ancestor, id nodeID) bool {
	for id = t.nodes[id].parent; id != noParent; id = t.nodes[id].parent {
		if id == ancestor {
			return true
		}
	}
	return false
}

// sortedChildren returns the children of id ordered by key.
func (t *tree) sortedChildren(id nodeID) []nodeID {
	keys := make([]string, 0, len(t.nodes[id].children))
	for key := range t.nodes[id].children {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	ids := make([]nodeID, len(keys))
	for i, key := range keys {
		ids[i] = t.nodes[id].children[key]
	}
	return ids
}

// postOrder lists every node below the root, descendants before
// ancestors, siblings in key order.
func (t *tree) postOrder() []nodeID {
	var order []nodeID
	var visit func(nodeID)
	visit = func(id nodeID) {
		for _, child := range t.sortedChildren(id) {
			visit(child)
		}
		if id != rootID {
			order = append(order, id)
		}
	}
	visit(rootID)
	return order
}

// ready reports whether id may be repacked: every child finished and
// no node from id up to its file has outstanding prerequisites.
func (t *tree) ready(id nodeID) bool {
	for _, child := range t.nodes[id].children {
		if !t.nodes[child].finished {
			return false
		}
	}
	for cursor := id; cursor != rootID; cursor = t.nodes[cursor].parent {
		if t.nodes[cursor].prereqs > 0 {
			return false
		}
	}
	return true
}

// release decrements the prerequisite count of each live dependent.
func (t *tree) release(dependents []Handle) {
	for _, dependent := range dependents {
		if id, err := t.resolve(dependent); err == nil && t.nodes[id].prereqs > 0 {
			t.nodes[id].prereqs--
		}
	}
}

// String renders the live tree for debugging.
func (t *tree) String() string {
	var out []byte
	var visit func(nodeID, int)
	visit = func(id nodeID, depth int) {
		for _, child := range t.sortedChildren(id) {
			n := &t.nodes[child]
			out = fmt.Appendf(out, "%*s%s [%s]", depth*2, "", n.key, n.payload.Kind())
			if n.toOutput {
				out = append(out, " output"...)
			}
			if n.delegated {
				out = append(out, " delegated"...)
			}
			out = append(out, '\n')
			visit(child, depth+1)
		}
	}
	visit(rootID, 0)
	return string(out)
}
