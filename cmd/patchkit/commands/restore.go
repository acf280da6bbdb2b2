// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/cli"
)

func restoreCommand(stdout io.Writer) *cli.Command {
	var configFlag configFlag

	return &cli.Command{
		Name:    "restore",
		Summary: "Copy pristine base files over patched ones",
		Usage:   "patchkit restore [flags] <path>...",
		Args:    1,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("restore", pflag.ContinueOnError)
			configFlag.register(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Undo a patch to one pack",
				Command:     "patchkit restore content/Pack/Title.pack",
			},
		},
		Run: func(args []string) error {
			s, _, err := configFlag.openSession("restore")
			if err != nil {
				return err
			}
			defer s.Close()

			for _, path := range args {
				if err := s.RestorePristine(path); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "restored %s\n", path)
			}
			return nil
		},
	}
}
