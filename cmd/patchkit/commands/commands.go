// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the patchkit command tree.
package commands

import (
	"fmt"
	"io"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/cli"
	"github.com/bureau-foundation/patchkit/lib/version"
)

// Root builds the command tree. Command results go to stdout; help
// and diagnostics go to stderr.
func Root(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name: "patchkit",
		Description: `patchkit: patch files inside nested game containers.

Edits address data through path specs such as
content/Pack/Title.pack@YAZ0@SARC@Layout/title.bin. Each container
on the path is decoded once, edited in memory, and rebuilt from the
innermost change outwards when the plan is committed.`,
		Output: stderr,
		Subcommands: []*cli.Command{
			applyCommand(stdout),
			restoreCommand(stdout),
			lsCommand(stdout, stderr),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(stdout, "patchkit %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Apply an edit plan",
				Command:     "patchkit apply --config patchkit.yaml --plan edits.yaml",
			},
			{
				Description: "See what is inside a compressed archive",
				Command:     "patchkit ls content/Pack/Title.pack@YAZ0@SARC",
			},
			{
				Description: "Put one file back the way it shipped",
				Command:     "patchkit restore content/Pack/Title.pack",
			},
		},
	}
}
