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
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/deploy"
	"github.com/urfave/cli/v2"
)

var InitCodeCmd = cli.Command{
	Action:    doInitCode,
	Name:      "init-code",
	Usage:     "Print the init code deploying the module named in the given file",
	ArgsUsage: "FILE",
}

func doInitCode(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected exactly one module file, got %d arguments", context.NArg())
	}
	code, err := initCodeOf(context.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(hexutil.Encode(code))
	return nil
}

func initCodeOf(path string) ([]byte, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	module = []byte(strings.TrimSpace(string(module)))
	if len(module) == 0 {
		return nil, fmt.Errorf("module file %s is empty", path)
	}
	return deploy.BuildInitCode(module), nil
}

var CheatcodesCmd = cli.Command{
	Action: doCheatcodes,
	Name:   "cheatcodes",
	Usage:  "List the supported cheatcodes and their selectors",
}

func doCheatcodes(*cli.Context) error {
	return printCheatcodes(os.Stdout)
}

func printCheatcodes(out io.Writer) error {
	writer := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintf(writer, "address\t%v\n", cheatcodes.Address())
	for _, op := range cheatcodes.Ops() {
		selector := op.Selector()
		fmt.Fprintf(writer, "0x%x\t%s\n", selector[:], op.Signature())
	}
	return writer.Flush()
}

var SimulateCmd = cli.Command{
	Action:    doSimulate,
	Name:      "simulate",
	Usage:     "Execute the steps of a simulation program",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "name of the interpreter executing the contracts",
			Value: "native",
		},
	},
}

func doSimulate(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected exactly one program file, got %d arguments", context.NArg())
	}
	return simulate(context.Args().First(), context.String("interpreter"))
}
