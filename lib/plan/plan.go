// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/patchkit/lib/pathspec"
	"github.com/bureau-foundation/patchkit/lib/session"
)

// Plan is a list of edits loaded from a YAML file.
type Plan struct {
	Edits []Edit `yaml:"edits" json:"edits"`

	// directory resolves relative replace_with paths.
	directory string
}

// Edit changes one node.
type Edit struct {
	// Name identifies the edit in "after" lists and error messages.
	Name string `yaml:"name" json:"name"`

	// Path is the path spec of the node to edit.
	Path string `yaml:"path" json:"path"`

	// ReplaceWith is a local file whose contents replace the node.
	// Relative paths are resolved against the plan file's directory.
	ReplaceWith string `yaml:"replace_with,omitempty" json:"replace_with,omitempty"`

	// Write overwrites bytes in place.
	Write *Write `yaml:"write,omitempty" json:"write,omitempty"`

	// RemoveMembers deletes members from an archive node.
	RemoveMembers []string `yaml:"remove_members,omitempty" json:"remove_members,omitempty"`

	// After names edits that must be repacked before this one.
	After []string `yaml:"after,omitempty" json:"after,omitempty"`

	// StoreOnly stores a decompressed stream without recompressing it.
	StoreOnly bool `yaml:"store_only,omitempty" json:"store_only,omitempty"`
}

// Write overwrites len(Data) bytes starting at Offset.
type Write struct {
	Offset int `yaml:"offset" json:"offset"`

	// Data is hex encoded.
	Data string `yaml:"data" json:"data"`
}

// Load reads and validates the plan at path. Files ending in .json or
// .jsonc are parsed as JSON with comments and trailing commas allowed;
// anything else is YAML. Unknown fields are rejected in both.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	plan := &Plan{directory: filepath.Dir(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(plan)
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err = decoder.Decode(plan)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return plan, nil
}

// Validate checks names, paths, and operations. It does not touch
// the files the plan refers to.
func (p *Plan) Validate() error {
	var errs []error
	if len(p.Edits) == 0 {
		errs = append(errs, errors.New("plan has no edits"))
	}

	names := make(map[string]bool, len(p.Edits))
	for i, edit := range p.Edits {
		if edit.Name == "" {
			errs = append(errs, fmt.Errorf("edit %d: name is required", i))
			continue
		}
		if names[edit.Name] {
			errs = append(errs, fmt.Errorf("edit %q: duplicate name", edit.Name))
		}
		names[edit.Name] = true
	}

	for i, edit := range p.Edits {
		label := edit.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if _, err := pathspec.Parse(edit.Path); err != nil {
			errs = append(errs, fmt.Errorf("edit %q: %w", label, err))
		}

		operations := 0
		if edit.ReplaceWith != "" {
			operations++
		}
		if edit.Write != nil {
			operations++
			if edit.Write.Offset < 0 {
				errs = append(errs, fmt.Errorf("edit %q: negative write offset", label))
			}
			if _, err := hex.DecodeString(edit.Write.Data); err != nil {
				errs = append(errs, fmt.Errorf("edit %q: write data: %w", label, err))
			}
		}
		if len(edit.RemoveMembers) > 0 {
			operations++
		}
		if operations > 1 {
			errs = append(errs, fmt.Errorf("edit %q: replace_with, write, and remove_members are exclusive", label))
		}
		if operations == 0 && !edit.StoreOnly {
			errs = append(errs, fmt.Errorf("edit %q: nothing to do", label))
		}

		for _, dependency := range edit.After {
			switch {
			case dependency == edit.Name:
				errs = append(errs, fmt.Errorf("edit %q: cannot run after itself", label))
			case !names[dependency]:
				errs = append(errs, fmt.Errorf("edit %q: unknown edit %q in after", label, dependency))
			}
		}
	}
	return errors.Join(errs...)
}

// Target is the part of a session an edit plan drives.
type Target interface {
	Open(spec string) (session.Handle, error)
	AddAction(h session.Handle, fn session.Action) error
	AddDependent(h, other session.Handle) error
	SetFullRecompress(h session.Handle, full bool) error
}

// Apply opens every edit's node on target and registers its action
// and ordering. Replacement files are read before anything is
// registered, so a missing file leaves target untouched.
func (p *Plan) Apply(target Target) error {
	actions := make([]session.Action, len(p.Edits))
	for i, edit := range p.Edits {
		action, err := p.action(edit)
		if err != nil {
			return fmt.Errorf("edit %q: %w", edit.Name, err)
		}
		actions[i] = action
	}

	handles := make(map[string]session.Handle, len(p.Edits))
	for i, edit := range p.Edits {
		h, err := target.Open(edit.Path)
		if err != nil {
			return fmt.Errorf("edit %q: %w", edit.Name, err)
		}
		handles[edit.Name] = h
		if actions[i] != nil {
			if err := target.AddAction(h, actions[i]); err != nil {
				return fmt.Errorf("edit %q: %w", edit.Name, err)
			}
		}
		if edit.StoreOnly {
			if err := target.SetFullRecompress(h, false); err != nil {
				return fmt.Errorf("edit %q: %w", edit.Name, err)
			}
		}
	}

	for _, edit := range p.Edits {
		for _, dependency := range edit.After {
			if err := target.AddDependent(handles[dependency], handles[edit.Name]); err != nil {
				return fmt.Errorf("edit %q after %q: %w", edit.Name, dependency, err)
			}
		}
	}
	return nil
}

func (p *Plan) action(edit Edit) (session.Action, error) {
	switch {
	case edit.ReplaceWith != "":
		source := edit.ReplaceWith
		if !filepath.IsAbs(source) {
			source = filepath.Join(p.directory, source)
		}
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", session.ErrOpen, err)
		}
		return replaceAction(data), nil
	case edit.Write != nil:
		data, err := hex.DecodeString(edit.Write.Data)
		if err != nil {
			return nil, err
		}
		return writeAction(edit.Write.Offset, data), nil
	case len(edit.RemoveMembers) > 0:
		return removeAction(edit.RemoveMembers), nil
	}
	return nil, nil
}

func replaceAction(data []byte) session.Action {
	return func(payload *session.Payload) error {
		payload.SetBytes(bytes.Clone(data))
		return nil
	}
}

func writeAction(offset int, data []byte) session.Action {
	return func(payload *session.Payload) error {
		current, err := payload.Bytes()
		if err != nil {
			return err
		}
		if offset+len(data) > len(current) {
			return fmt.Errorf("write of %d bytes at offset %d overruns %d-byte payload", len(data), offset, len(current))
		}
		copy(current[offset:], data)
		return nil
	}
}

func removeAction(names []string) session.Action {
	return func(payload *session.Payload) error {
		archive, err := payload.Archive()
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := archive.Remove(name); err != nil {
				return err
			}
		}
		return nil
	}
}
