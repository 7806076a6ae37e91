// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Command dumpctl inspects dump files produced by a decldbg session
// started with --dump.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/wangp/decldbg/internal/dump"
)

func main() {
	app := &cli.App{
		Name:  "dumpctl",
		Usage: "inspect decldbg dump files",
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print a summary of a dump file",
				ArgsUsage: "<file>",
				Action:    inspect,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("dumpctl: inspect requires exactly one file argument")
	}

	f, err := os.Open(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("dumpctl: %w", err)
	}
	defer f.Close()

	snap, err := dump.NewReader(f).Read()
	if err != nil {
		return fmt.Errorf("dumpctl: %w", err)
	}

	fmt.Printf("root: %d\n", snap.Root)
	fmt.Printf("store_version: %d\n", snap.Version)
	fmt.Printf("nodes: %d\n", len(snap.Nodes))

	counts := map[string]int{}
	for _, n := range snap.Nodes {
		counts[n.Kind.String()]++
	}
	for kind, n := range counts {
		fmt.Printf("  %-12s %d\n", kind, n)
	}
	return nil
}
