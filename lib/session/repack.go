// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/patchkit/lib/clock"
	"github.com/bureau-foundation/patchkit/lib/digest"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
	"github.com/bureau-foundation/patchkit/lib/workpool"
)

// OutputFile describes one file written by Commit.
type OutputFile struct {
	// Path is relative to the output directory, slash-separated.
	Path   string
	Size   int
	Digest digest.Digest
}

// Report summarizes a Commit.
type Report struct {
	// RunID identifies the commit in log lines.
	RunID string

	// Files lists written files sorted by path.
	Files []OutputFile

	// Nodes is the number of nodes repacked.
	Nodes int

	// Delays counts tasks requeued because they were not ready.
	Delays int

	Duration time.Duration
}

// run is the state of one Commit.
type run struct {
	session *Session
	id      string
	logger  *slog.Logger
	files   []OutputFile
}

// job is a snapshot of a ready node, taken under the session mutex,
// that a worker processes without holding it.
type job struct {
	key            string
	step           pathspec.Step
	payload        Payload
	actions        []Action
	toOutput       bool
	delegated      bool
	fullRecompress bool
	topLevel       bool
	file           string
}

// Commit repacks every cached node bottom-up, writes the output
// files, and clears the tree. On an empty tree it returns at once
// without touching the filesystem. The first failing node aborts the
// run; files already written stay written.
func (s *Session) Commit() (Report, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return Report{}, err
	}
	if s.tree.empty() {
		s.mu.Unlock()
		return Report{}, nil
	}

	r := &run{session: s, id: uuid.NewString()}
	r.logger = s.logger.With("run_id", r.id)
	s.committing = true
	order := s.tree.postOrder()
	keys := make([]string, len(order))
	for i, id := range order {
		keys[i] = s.tree.nodes[id].key
	}
	s.mu.Unlock()

	start := s.clock.Now()
	r.logger.Info("committing file cache", "nodes", len(order), "workers", s.pool.Workers())

	batch := s.pool.Start()
	for i, id := range order {
		batch.Push(keys[i], func() (workpool.Result, error) {
			return r.repack(id)
		})
	}
	stats, err := batch.Wait()

	s.mu.Lock()
	s.committing = false
	s.tree.reset()
	sort.Slice(r.files, func(i, j int) bool { return r.files[i].Path < r.files[j].Path })
	report := Report{
		RunID:    r.id,
		Files:    r.files,
		Nodes:    stats.Completed,
		Delays:   stats.Delays,
		Duration: clock.Since(s.clock, start),
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, workpool.ErrCycle) {
			err = fmt.Errorf("%w: %w", ErrCycle, err)
		}
		r.logger.Error("commit failed", "error", err, "repacked", stats.Completed, "discarded", stats.Discarded)
		return report, err
	}
	r.logger.Info("commit complete",
		"files", len(report.Files),
		"nodes", report.Nodes,
		"delays", report.Delays,
		"duration", report.Duration,
	)
	return report, nil
}

// repack is the worker task for one node.
func (r *run) repack(id nodeID) (workpool.Result, error) {
	s := r.session

	s.mu.Lock()
	if !s.tree.ready(id) {
		s.mu.Unlock()
		return workpool.Delay, nil
	}
	n := &s.tree.nodes[id]
	work := job{
		key:            n.key,
		step:           n.step,
		payload:        n.payload,
		actions:        n.actions,
		toOutput:       n.toOutput,
		delegated:      n.delegated,
		fullRecompress: n.fullRecompress,
		topLevel:       n.parent != rootID && s.tree.nodes[n.parent].parent == rootID,
		file:           s.tree.nodes[s.tree.file(id)].step.Name,
	}
	n.payload.Clear()
	s.mu.Unlock()

	if work.delegated {
		s.mu.Lock()
		defer s.mu.Unlock()
		r.finish(id)
		return workpool.Success, nil
	}

	for i, action := range work.actions {
		if err := action(&work.payload); err != nil {
			return workpool.Fail, fmt.Errorf("%w: %s action %d: %w", ErrAction, work.key, i+1, err)
		}
	}

	data, err := s.encode(&work)
	if err != nil {
		return workpool.Fail, fmt.Errorf("%w: %s: %w", ErrEncode, work.key, err)
	}

	if work.toOutput {
		if err := writeFileAtomic(s.outputPath(work.file), data); err != nil {
			return workpool.Fail, fmt.Errorf("%w: writing %s: %w", ErrEncode, work.file, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if work.toOutput {
		r.files = append(r.files, OutputFile{Path: work.file, Size: len(data), Digest: digest.Output(data)})
		r.logger.Debug("wrote output file", "path", work.file, "bytes", len(data))
	} else if err := s.flush(id, &work, data); err != nil {
		return workpool.Fail, fmt.Errorf("%w: %s: %w", ErrEncode, work.key, err)
	}
	r.finish(id)
	return workpool.Success, nil
}

// encode produces the bytes a node contributes to its parent or
// output file.
func (s *Session) encode(work *job) ([]byte, error) {
	switch work.step.Tag {
	case pathspec.Literal:
		return work.payload.Bytes()
	case pathspec.Decompress:
		if !work.fullRecompress {
			return work.payload.Bytes()
		}
	default:
		// An action replaced the whole container with raw bytes.
		if work.payload.Kind() == KindRaw {
			return work.payload.Bytes()
		}
	}
	codec, err := s.codecs.lookup(work.step)
	if err != nil {
		return nil, err
	}
	return codec.Encode(&work.payload, EncodeOptions{TopLevel: work.topLevel})
}

// flush stores data in the parent of id: as a member for member
// steps, in the raw slot otherwise. Callers hold s.mu.
func (s *Session) flush(id nodeID, work *job, data []byte) error {
	parent := &s.tree.nodes[s.tree.nodes[id].parent]
	if work.step.Tag == pathspec.Literal {
		container, err := parent.payload.Container()
		if err != nil {
			return fmt.Errorf("flushing member into %s: %w", parent.key, err)
		}
		return container.ReplaceMember(work.step.Name, data)
	}
	parent.payload.SetBytes(data)
	return nil
}

// finish marks id done, drops its children, and releases its
// dependents. Callers hold s.mu.
func (r *run) finish(id nodeID) {
	t := r.session.tree
	t.prune(id)
	n := &t.nodes[id]
	n.finished = true
	dependents := n.dependents
	n.dependents = nil
	t.release(dependents)
}
