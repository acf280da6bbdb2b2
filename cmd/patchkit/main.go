// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command patchkit applies edit plans to files inside nested game
// containers.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an error with an
		// ExitCode method. Don't print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root(os.Stdout, os.Stderr).Execute(os.Args[1:])
}
