// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/bureau-foundation/patchkit/lib/clock"
	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/pathspec"
	"github.com/bureau-foundation/patchkit/lib/workpool"
)

// LockFileName is created in the output directory and held for the
// lifetime of a Session.
const LockFileName = ".patchkit.lock"

// ProgressMessage is logged by the default pool every
// workpool.DefaultProgressInterval repacked nodes.
const ProgressMessage = "repacking file cache"

// Config configures a Session.
type Config struct {
	// BaseDir holds the pristine files. It is never written.
	BaseDir string

	// OutputDir receives patched files. Created if missing.
	OutputDir string

	// Pool runs Commit. Nil means a pool with the default worker
	// count.
	Pool *workpool.Pool

	// Codecs decode and encode container steps. Nil means
	// DefaultCodecs(DefaultLevels()).
	Codecs *Codecs

	// Clock times commits. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives run progress. Nil means slog.Default().
	Logger *slog.Logger
}

// Session is the cache tree plus the registered edits for one patch
// run. The zero value is not usable; create Sessions with New.
type Session struct {
	baseDir   string
	outputDir string
	codecs    Codecs
	pool      *workpool.Pool
	clock     clock.Clock
	logger    *slog.Logger
	lock      *flock.Flock

	// mu guards tree, every node in it, and committing.
	mu   sync.Mutex
	tree *tree

	// committing is set while Commit's workers own the tree. Methods
	// that add or drop nodes fail with ErrBusy meanwhile.
	committing bool
}

// New creates a Session and locks config.OutputDir. It fails with
// ErrLocked if another Session holds the directory.
func New(config Config) (*Session, error) {
	if config.BaseDir == "" {
		return nil, errors.New("session: base directory is required")
	}
	if config.OutputDir == "" {
		return nil, errors.New("session: output directory is required")
	}
	info, err := os.Stat(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("session: base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("session: base directory %s is not a directory", config.BaseDir)
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("session: creating output directory: %w", err)
	}

	s := &Session{
		baseDir:   config.BaseDir,
		outputDir: config.OutputDir,
		pool:      config.Pool,
		clock:     config.Clock,
		logger:    config.Logger,
		tree:      newTree(),
	}
	if config.Codecs != nil {
		s.codecs = *config.Codecs
	} else {
		s.codecs = DefaultCodecs(DefaultLevels())
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pool == nil {
		s.pool = workpool.New(workpool.Config{
			ProgressMessage: ProgressMessage,
			Logger:          s.logger,
		})
	}

	lockPath := filepath.Join(config.OutputDir, LockFileName)
	s.lock = flock.New(lockPath)
	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("session: acquiring %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("session: %w: %s", ErrLocked, lockPath)
	}
	return s, nil
}

// Close discards the tree and releases the output directory lock.
// Closing a closed Session is a no-op; closing during Commit fails
// with ErrBusy.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return nil
	}
	if s.committing {
		return ErrBusy
	}
	s.tree = nil
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("session: releasing output lock: %w", err)
	}
	return nil
}

// Reset discards every cached node and registered edit. Handles
// obtained before Reset become invalid.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	s.tree.reset()
	return nil
}

// BaseDir returns the directory pristine files are read from.
func (s *Session) BaseDir() string {
	return s.baseDir
}

// OutputDir returns the directory patched files are written to.
func (s *Session) OutputDir() string {
	return s.outputDir
}

// IsCached reports whether the node spec resolves to is already in
// the tree. It never decodes.
func (s *Session) IsCached(spec string) (bool, error) {
	parsed, err := pathspec.Parse(spec)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return false, ErrNotInitialized
	}
	cursor := rootID
	key := ""
	for _, step := range parsed.Steps() {
		key = pathspec.Canonicalize(key, step)
		child, ok := s.tree.child(cursor, key)
		if !ok {
			return false, nil
		}
		cursor = child
	}
	return true, nil
}

// Describe renders the cached tree, one node per line, indented by
// depth and marked with payload kind and output routing.
func (s *Session) Describe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ""
	}
	return s.tree.String()
}

// Info describes a cached node.
type Info struct {
	// Key is the node's canonical cache key.
	Key string

	// Kind is what the payload currently holds.
	Kind Kind

	// Size is the raw payload length, or zero for other kinds.
	Size int

	// Members lists container members in serialization order.
	Members []string

	// Stream is the compression the payload was decoded from.
	Stream compress.Codec

	// Output is set on the node that will write the output file.
	Output bool
}

// Inspect describes the node h refers to.
func (s *Session) Inspect(h Handle) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return Info{}, ErrNotInitialized
	}
	id, err := s.tree.resolve(h)
	if err != nil {
		return Info{}, err
	}
	n := &s.tree.nodes[id]
	info := Info{
		Key:    n.key,
		Kind:   n.payload.Kind(),
		Stream: n.payload.Stream(),
		Output: n.toOutput,
	}
	if data, err := n.payload.Bytes(); err == nil {
		info.Size = len(data)
	}
	if container, err := n.payload.Container(); err == nil {
		info.Members = container.Members()
	}
	return info, nil
}

// RestorePristine copies the base file at path to the output tree
// unchanged and drops any cached node for it, along with the edits
// registered beneath it. Nodes that were waiting on a dropped node
// through AddDependent are released.
func (s *Session) RestorePristine(path string) error {
	parsed, err := pathspec.Parse(path)
	if err != nil {
		return err
	}
	if parsed.Len() != 1 {
		return fmt.Errorf("restoring %s: %w: expected a file path without format steps", path, pathspec.ErrGrammar)
	}
	path = parsed.File()

	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if id, ok := s.tree.child(rootID, path); ok {
		released := s.tree.remove(id)
		s.tree.release(released)
	}
	s.mu.Unlock()

	data, err := s.readBase(path)
	if err != nil {
		return fmt.Errorf("restoring %s: %w", path, err)
	}
	if err := writeFileAtomic(s.outputPath(path), data); err != nil {
		return fmt.Errorf("restoring %s: %w", path, err)
	}
	s.logger.Info("restored pristine file", "path", path, "bytes", len(data))
	return nil
}

func (s *Session) readBase(name string) ([]byte, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("%w: %q is not a path inside the base directory", ErrOpen, name)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, local))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return data, nil
}

func (s *Session) outputPath(name string) string {
	return filepath.Join(s.outputDir, filepath.FromSlash(name))
}

// usable reports why the tree cannot be changed right now. Callers
// hold s.mu.
func (s *Session) usable() error {
	switch {
	case s.tree == nil:
		return ErrNotInitialized
	case s.committing:
		return ErrBusy
	}
	return nil
}
