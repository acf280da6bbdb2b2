// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session patches files that are nested containers.
//
// A Session caches the partially decoded contents of base files in a
// tree keyed by specifier prefix (see package pathspec). Open decodes
// exactly the steps of a specifier that are not cached yet and
// returns a Handle to the final node. Unrelated call sites register
// mutations against handles with AddAction and order edits across
// unrelated files with AddDependent. Commit then walks the touched
// tree bottom-up on a worker pool: each node runs its actions,
// re-encodes with the codec of its step, and flushes the result into
// its parent container or, for the node that owns an on-disk file,
// into the output directory.
//
//	s, err := session.New(session.Config{BaseDir: base, OutputDir: out})
//	...
//	h, err := s.Open("content/room.pack@DECOMPRESS@ARCHIVE@entity.bin")
//	s.AddAction(h, func(p *session.Payload) error {
//	    data, err := p.Bytes()
//	    if err != nil {
//	        return err
//	    }
//	    data[0x10] = 1
//	    return nil
//	})
//	report, err := s.Commit()
//
// # Payload residency
//
// Decoding a child from raw bytes consumes the parent's bytes; the
// child's re-encoded output refills the slot at repack time. Archive
// and resource payloads stay resident because they hold the sibling
// members: a member child is read out on Open and written back with
// ReplaceMember when it finishes.
//
// # Output routing
//
// Exactly one node on each file's path writes the output file. That
// is the file node itself, unless the file is an archive or typed
// resource opened directly and the file node carries no actions: the
// container node then writes the file, skipping a copy through the
// file node. Registering an action on the file node later moves the
// write back.
//
// # Concurrency
//
// Open, AddAction, AddDependent, and the other registration methods
// are meant to be called from one goroutine and never while Commit is
// running. Commit fans out to the worker pool; workers touch only
// their own node except under the session mutex.
package session
