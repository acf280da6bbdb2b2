// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"restore", "resotre", 2},
		{"apply", "aply", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != got {
				t.Errorf("levenshtein(%q, %q) = %d, but reverse = %d", test.a, test.b, got, reverse)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "apply"},
		{Name: "restore"},
		{Name: "inspect"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"aplly", "apply"},
		{"restroe", "restore"},
		{"inspct", "inspect"},
		{"vrsion", "version"},
		{"zzzzzzzzz", ""},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got := suggestCommand(test.input, commands)
			if got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("config", "", "")
		flagSet.StringP("plan", "p", "", "")
		flagSet.Bool("dry-run", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"close typo", []string{"--confg"}, "--config"},
		{"single dash", []string{"-confg"}, "--config"},
		{"hyphenated", []string{"--dryrun"}, "--dry-run"},
		{"with equals", []string{"--pln=edits.yaml"}, "--plan"},
		{"known shorthand skipped", []string{"-p", "x", "--confg"}, "--config"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"no flags", []string{"positional"}, ""},
		{"after terminator", []string{"--", "--confg"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := suggestFlag(test.args, makeFlagSet())
			if got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
