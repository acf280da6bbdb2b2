// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/cli"
	"github.com/bureau-foundation/patchkit/lib/plan"
	"github.com/bureau-foundation/patchkit/lib/session"
)

func applyCommand(stdout io.Writer) *cli.Command {
	var (
		configFlag configFlag
		planPath   string
		dryRun     bool
	)

	return &cli.Command{
		Name:    "apply",
		Summary: "Apply an edit plan and write patched files",
		Description: `Apply an edit plan to the base distribution.

Every edit's path is opened, its change registered, and the whole
cache committed: nested containers are rebuilt from the innermost
edit outwards and written to the output directory. Files the plan
touches but does not change are copied through unchanged.`,
		Usage: "patchkit apply --plan <file> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
			configFlag.register(flagSet)
			flagSet.StringVar(&planPath, "plan", "", "edit plan file (required)")
			flagSet.BoolVar(&dryRun, "dry-run", false, "print the cache tree instead of writing files")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Apply a plan using the config named by $PATCHKIT_CONFIG",
				Command:     "patchkit apply --plan edits.yaml",
			},
			{
				Description: "Show which containers a plan would rebuild",
				Command:     "patchkit apply --config patchkit.yaml --plan edits.yaml --dry-run",
			},
		},
		Run: func(args []string) error {
			if planPath == "" {
				return errors.New("--plan is required")
			}
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			edits, err := plan.Load(planPath)
			if err != nil {
				return err
			}

			s, logger, err := configFlag.openSession("apply")
			if err != nil {
				return err
			}
			defer s.Close()

			if err := edits.Apply(s); err != nil {
				return err
			}
			logger.Info("plan registered", "plan", planPath, "edits", len(edits.Edits))

			if dryRun {
				fmt.Fprint(stdout, s.Describe())
				return nil
			}

			report, err := s.Commit()
			if err != nil {
				return err
			}
			printReport(stdout, report)
			return nil
		},
	}
}

// printReport lists written files with their sizes and digests.
func printReport(w io.Writer, report session.Report) {
	var total uint64
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, file := range report.Files {
		total += uint64(file.Size)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", file.Path, humanize.IBytes(uint64(file.Size)), file.Digest.Short())
	}
	tw.Flush()
	fmt.Fprintf(w, "%d files written (%s), %d nodes repacked in %s (run %s)\n",
		len(report.Files), humanize.IBytes(total), report.Nodes, report.Duration.Round(time.Millisecond), report.RunID)
}
