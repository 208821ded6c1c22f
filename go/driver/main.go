// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"os"

	cliUtils "github.com/skribe-dev/skribe/go/driver/cli"
	"github.com/urfave/cli/v2"

	// registers the native example contracts
	_ "github.com/skribe-dev/skribe/go/examples"
)

func main() {
	app := &cli.App{
		Name:      "skribe",
		Usage:     "Property test runner for smart contracts",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags:     []cli.Flag{},
		Commands: []*cli.Command{
			cmd(RunCmd),
			cmd(InitCodeCmd),
			cmd(CheatcodesCmd),
			cmd(SimulateCmd),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmd(command cli.Command) *cli.Command {
	res := cliUtils.AddCommonFlags(command)
	return &res
}
