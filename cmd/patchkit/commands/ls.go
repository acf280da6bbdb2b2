// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/cli"
	"github.com/bureau-foundation/patchkit/lib/compress"
	"github.com/bureau-foundation/patchkit/lib/session"
)

func lsCommand(stdout, stderr io.Writer) *cli.Command {
	var configFlag configFlag

	return &cli.Command{
		Name:    "ls",
		Summary: "Describe the node a path spec resolves to",
		Description: `Open a path spec against the base distribution and describe it:
payload kind, size for raw data, the stream codec it was decoded
from, and members for archives and typed resources. Nothing is
written.`,
		Usage: "patchkit ls [flags] <spec>",
		Args:  1,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("ls", pflag.ContinueOnError)
			configFlag.register(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "List the members of a compressed archive",
				Command:     "patchkit ls content/Pack/Title.pack@YAZ0@SARC",
			},
		},
		Run: func(args []string) error {
			s, _, err := configFlag.openSession("ls")
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := s.Open(args[0])
			if errors.Is(err, session.ErrMemberNotFound) {
				fmt.Fprintf(stderr, "%v\n", err)
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			info, err := s.Inspect(h)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "key:    %s\n", info.Key)
			fmt.Fprintf(stdout, "kind:   %s\n", info.Kind)
			if info.Kind == session.KindRaw {
				fmt.Fprintf(stdout, "size:   %d\n", info.Size)
			}
			if info.Stream != compress.CodecNone {
				fmt.Fprintf(stdout, "stream: %s\n", info.Stream)
			}
			for _, member := range info.Members {
				fmt.Fprintf(stdout, "  %s\n", member)
			}
			return nil
		},
	}
}
