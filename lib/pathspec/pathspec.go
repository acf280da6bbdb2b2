// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pathspec

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates steps in a specifier.
const Delimiter = "@"

var (
	// ErrUnknownTag is returned for an all-uppercase step that is not
	// part of the closed tag set, outside member position.
	ErrUnknownTag = errors.New("unknown format tag")

	// ErrGrammar is returned when steps appear in an order that cannot
	// be resolved (a tag first, two adjacent literals, a tag directly
	// after a container tag).
	ErrGrammar = errors.New("invalid step sequence")

	// ErrEmpty is returned for a specifier with no non-empty steps.
	ErrEmpty = errors.New("empty path specifier")
)

// Tag identifies a container format step.
type Tag uint8

const (
	// Literal marks a step that is a file path or member name rather
	// than a format tag.
	Literal Tag = iota

	// Decompress decodes a compressed stream into raw bytes.
	Decompress

	// Archive unpacks a SARC archive into named members.
	Archive

	// Typed parses a typed resource with embedded members.
	Typed
)

// Hint pins the codec a DECOMPRESS step must use. HintAuto means the
// codec is detected from the stream's magic.
type Hint uint8

const (
	HintAuto Hint = iota
	HintYaz0
	HintZstd
	HintLZ4
)

// String returns the codec name of a hint.
func (h Hint) String() string {
	switch h {
	case HintAuto:
		return "auto"
	case HintYaz0:
		return "yaz0"
	case HintZstd:
		return "zstd"
	case HintLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", h)
	}
}

type tagInfo struct {
	tag  Tag
	hint Hint
}

// tagNames is the closed set of recognized tags. Aliases map to the
// same Tag so they share cache nodes.
var tagNames = map[string]tagInfo{
	"DECOMPRESS": {Decompress, HintAuto},
	"YAZ0":       {Decompress, HintYaz0},
	"ZSTD":       {Decompress, HintZstd},
	"LZ4":        {Decompress, HintLZ4},
	"ARCHIVE":    {Archive, HintAuto},
	"SARC":       {Archive, HintAuto},
	"TYPED":      {Typed, HintAuto},
	"RES":        {Typed, HintAuto},
}

// String returns the canonical tag name.
func (t Tag) String() string {
	switch t {
	case Literal:
		return "literal"
	case Decompress:
		return "DECOMPRESS"
	case Archive:
		return "ARCHIVE"
	case Typed:
		return "TYPED"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Suffix returns the key suffix a tag appends. Literal has no suffix.
func (t Tag) Suffix() string {
	switch t {
	case Decompress:
		return "@dec"
	case Archive:
		return "@unpack/"
	case Typed:
		return "@res/"
	default:
		return ""
	}
}

// IsContainer reports whether members can be addressed beneath the tag.
func (t Tag) IsContainer() bool {
	return t == Archive || t == Typed
}

// Step is one element of a specifier.
type Step struct {
	// Tag is Literal for path and member steps.
	Tag Tag

	// Name is the literal text for Literal steps and the tag name as
	// written for tag steps.
	Name string

	// Hint is the pinned codec for Decompress steps.
	Hint Hint
}

// String renders the step as it would appear in a specifier. Tags
// render canonically except when an alias pins a codec.
func (s Step) String() string {
	if s.Tag == Literal {
		return s.Name
	}
	if s.Tag == Decompress && s.Hint != HintAuto {
		return strings.ToUpper(s.Hint.String())
	}
	return s.Tag.String()
}

// Spec is a parsed specifier.
type Spec struct {
	steps []Step
}

// Parse splits raw on the delimiter, skips empty steps, classifies
// each one, and validates the step grammar.
func Parse(raw string) (Spec, error) {
	var steps []Step
	for _, element := range strings.Split(raw, Delimiter) {
		if element == "" {
			continue
		}
		afterContainer := len(steps) > 0 && steps[len(steps)-1].Tag.IsContainer()
		step, err := classify(element, afterContainer)
		if err != nil {
			return Spec{}, fmt.Errorf("parsing %q: %w", raw, err)
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return Spec{}, fmt.Errorf("parsing %q: %w", raw, ErrEmpty)
	}
	if err := validate(steps); err != nil {
		return Spec{}, fmt.Errorf("parsing %q: %w", raw, err)
	}
	return Spec{steps: steps}, nil
}

// MustParse is Parse for specifiers known at compile time.
func MustParse(raw string) Spec {
	spec, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return spec
}

// classify resolves one step. In member position (directly after
// ARCHIVE or TYPED) only exact tag names are tags, so members such as
// README or MAP01 stay addressable.
func classify(element string, memberPosition bool) (Step, error) {
	if info, ok := tagNames[element]; ok {
		return Step{Tag: info.tag, Name: element, Hint: info.hint}, nil
	}
	if !memberPosition && looksLikeTag(element) {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownTag, element)
	}
	return Step{Tag: Literal, Name: element}, nil
}

// looksLikeTag treats steps made only of uppercase letters and digits
// as intended tags.
func looksLikeTag(element string) bool {
	hasLetter := false
	for _, r := range element {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return hasLetter
}

func validate(steps []Step) error {
	if steps[0].Tag != Literal {
		return fmt.Errorf("%w: first step %q must be a file path", ErrGrammar, steps[0].Name)
	}
	for i := 1; i < len(steps); i++ {
		previous, current := steps[i-1], steps[i]
		switch {
		case current.Tag == Literal && !previous.Tag.IsContainer():
			return fmt.Errorf("%w: member %q must follow ARCHIVE or TYPED", ErrGrammar, current.Name)
		case current.Tag != Literal && previous.Tag.IsContainer():
			return fmt.Errorf("%w: %s cannot directly follow %s", ErrGrammar, current.Name, previous.Tag)
		}
	}
	return nil
}

// Canonicalize returns the key of the node reached by applying step
// to the node with key prefix. It is pure and is the only place keys
// are built.
func Canonicalize(prefix string, step Step) string {
	if step.Tag == Literal {
		return prefix + step.Name
	}
	return prefix + step.Tag.Suffix()
}

// Steps returns a copy of the parsed steps.
func (s Spec) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// Len returns the number of steps.
func (s Spec) Len() int {
	return len(s.steps)
}

// File returns the on-disk path named by the first step.
func (s Spec) File() string {
	if len(s.steps) == 0 {
		return ""
	}
	return s.steps[0].Name
}

// Keys returns the canonical key of every prefix, in order. The last
// element is the key of the node the full specifier resolves to.
func (s Spec) Keys() []string {
	keys := make([]string, len(s.steps))
	key := ""
	for i, step := range s.steps {
		key = Canonicalize(key, step)
		keys[i] = key
	}
	return keys
}

// Key returns the canonical key of the full specifier.
func (s Spec) Key() string {
	keys := s.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[len(keys)-1]
}

// String renders the specifier with empty steps removed.
func (s Spec) String() string {
	parts := make([]string, len(s.steps))
	for i, step := range s.steps {
		parts[i] = step.String()
	}
	return strings.Join(parts, Delimiter)
}
