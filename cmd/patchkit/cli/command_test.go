// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "patchkit",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "apply",
				Run: func(args []string) error {
					called = "apply"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"apply"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "apply" {
		t.Errorf("dispatched to %q, want %q", called, "apply")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var receivedArgs []string

	root := &Command{
		Name: "patchkit",
		Subcommands: []*Command{
			{
				Name: "cache",
				Subcommands: []*Command{
					{
						Name: "show",
						Run: func(args []string) error {
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"cache", "show", "extra-arg"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra-arg" {
		t.Errorf("args = %v, want [extra-arg]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var planPath string
	var target string

	command := &Command{
		Name: "apply",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
			flagSet.StringVar(&planPath, "plan", "plan.yaml", "edit plan")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--plan", "/custom.yaml", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if planPath != "/custom.yaml" {
		t.Errorf("planPath = %q, want %q", planPath, "/custom.yaml")
	}
	if target != "extra" {
		t.Errorf("target = %q, want %q", target, "extra")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "apply",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
			flagSet.String("config", "", "config file")
			flagSet.String("plan", "", "edit plan")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--confg", "x"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --config") {
		t.Errorf("error = %q, want suggestion for '--config'", errStr)
	}
	if !strings.Contains(errStr, "confg") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "patchkit",
		Subcommands: []*Command{
			{Name: "apply"},
			{Name: "restore"},
			{Name: "version"},
		},
	}

	err := root.Execute([]string{"restor"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "restore"`) {
		t.Errorf("error = %q, want suggestion for 'restore'", err.Error())
	}
}

func TestCommand_Execute_RequiredArgs(t *testing.T) {
	called := false
	command := &Command{
		Name: "restore",
		Args: 1,
		Run: func(args []string) error {
			called = true
			return nil
		},
	}

	err := command.Execute(nil)
	if err == nil || !strings.Contains(err.Error(), "requires 1 argument") {
		t.Errorf("Execute() = %v, want argument count error", err)
	}
	if called {
		t.Error("Run called without required arguments")
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			var buffer bytes.Buffer
			root := &Command{
				Name:    "patchkit",
				Summary: "Patch nested game containers",
				Output:  &buffer,
				Subcommands: []*Command{
					{Name: "apply", Summary: "Apply an edit plan"},
				},
			}

			if err := root.Execute([]string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
			if !strings.Contains(buffer.String(), "Apply an edit plan") {
				t.Errorf("help output = %q", buffer.String())
			}
		})
	}
}

func TestCommand_Execute_SubcommandInheritsOutput(t *testing.T) {
	var buffer bytes.Buffer
	root := &Command{
		Name:   "patchkit",
		Output: &buffer,
		Subcommands: []*Command{
			{
				Name:    "apply",
				Summary: "Apply an edit plan",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
					flagSet.String("plan", "", "edit plan file")
					return flagSet
				},
				Run: func(args []string) error { return nil },
			},
		},
	}

	if err := root.Execute([]string{"apply", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(buffer.String(), "edit plan file") {
		t.Errorf("subcommand help not written to root output: %q", buffer.String())
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name:   "patchkit",
		Output: io.Discard,
		Subcommands: []*Command{
			{Name: "apply", Summary: "Apply an edit plan"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "patchkit",
		Description: "Patch files inside nested game containers.",
		Subcommands: []*Command{
			{Name: "apply", Summary: "Apply an edit plan"},
			{Name: "restore", Summary: "Copy pristine files to the output"},
		},
		Examples: []Example{
			{
				Description: "Apply a plan",
				Command:     "patchkit apply --plan edits.yaml",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Patch files inside nested game containers.",
		"Usage:",
		"patchkit <command> [flags]",
		"Commands:",
		"apply",
		"Copy pristine files to the output",
		"Examples:",
		"patchkit apply --plan edits.yaml",
		"Run 'patchkit <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "patchkit"}
	cache := &Command{Name: "cache", parent: root}
	show := &Command{Name: "show", parent: cache}

	if got := show.fullName(); got != "patchkit cache show" {
		t.Errorf("show.fullName() = %q, want %q", got, "patchkit cache show")
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 2 {
		t.Errorf("ExitError does not report code 2")
	}
}
