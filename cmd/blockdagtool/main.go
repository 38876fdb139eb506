// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The CasperLabs Authors
// (modifications)
// This file is part of BlockDAG.
//
// BlockDAG is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BlockDAG is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with BlockDAG. If not, see <http://www.gnu.org/licenses/>.

// Command blockdagtool opens a Block DAG store and inspects it: summary
// stats, a topo-sort dump, or a DOT graph render. Its commands never insert
// or clear anything, but the store is opened through dag.Open, which runs
// normal recovery: it may truncate a dangling log tail, rewrites the CRC
// sibling files, and creates the data, checkpoint and index directories if
// they are absent.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag"
	"github.com/casperlabs/blockdag/extern/dagviz"
)

func main() {
	app := &cli.App{
		Name:  "blockdagtool",
		Usage: "inspect a Block DAG store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Required: true, Usage: "path to the store's data directory"},
		},
		Commands: []*cli.Command{
			statsCommand,
			topoCommand,
			dotCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blockdagtool:", err)
		os.Exit(1)
	}
}

func openReadOnly(c *cli.Context) (*dag.Engine, error) {
	cfg := dag.DefaultConfig(c.String("datadir"))
	return dag.Open(cfg, log.New())
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "print summary counts for the store",
	Action: func(c *cli.Context) error {
		e, err := openReadOnly(c)
		if err != nil {
			return err
		}
		defer e.Close()

		rep := e.GetRepresentation()
		fmt.Printf("latest messages:     %d\n", len(rep.LatestMessageHashes()))
		fmt.Printf("invalid blocks:      %d\n", len(rep.InvalidBlocks()))
		rows, err := rep.TopoSort(0)
		if err != nil {
			return err
		}
		total := 0
		for _, row := range rows {
			total += len(row)
		}
		fmt.Printf("topo-sort rows:      %d\n", len(rows))
		fmt.Printf("topo-sort blocks:    %d\n", total)
		return nil
	},
}

var topoCommand = &cli.Command{
	Name:      "topo",
	Usage:     "dump the topo-sort slice starting at a block number",
	ArgsUsage: "<start-block-number>",
	Action: func(c *cli.Context) error {
		start, err := parseBlockNumberArg(c)
		if err != nil {
			return err
		}

		e, err := openReadOnly(c)
		if err != nil {
			return err
		}
		defer e.Close()

		rep := e.GetRepresentation()
		rows, err := rep.TopoSort(start)
		if err != nil {
			return err
		}
		for i, row := range rows {
			fmt.Printf("%d:", start+int64(i))
			for _, h := range row {
				fmt.Printf(" %s", h)
			}
			fmt.Println()
		}
		return nil
	},
}

var dotCommand = &cli.Command{
	Name:      "dot",
	Usage:     "render the topo-sort slice starting at a block number as a DOT graph",
	ArgsUsage: "<start-block-number>",
	Action: func(c *cli.Context) error {
		start, err := parseBlockNumberArg(c)
		if err != nil {
			return err
		}

		e, err := openReadOnly(c)
		if err != nil {
			return err
		}
		defer e.Close()

		rep := e.GetRepresentation()
		g, err := dagviz.Window(rep, start)
		if err != nil {
			return err
		}
		fmt.Println(g.String())
		return nil
	},
}

func parseBlockNumberArg(c *cli.Context) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one argument: <start-block-number>")
	}
	var start int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &start); err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", c.Args().First(), err)
	}
	return start, nil
}
