// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

type idFlagType struct {
	cli.StringFlag
}

var IdFlag = &idFlagType{
	cli.StringFlag{
		Name:  "id",
		Usage: "run only the tests of the given contract or the test `Contract.method`",
	},
}

func (f *idFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type jobsFlagType struct {
	cli.IntFlag
}

var JobsFlag = &jobsFlagType{
	cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of tests run simultaneously",
	},
}

// Fetch returns the number of jobs and whether it was set explicitly.
func (f *jobsFlagType) Fetch(context *cli.Context) (int, bool) {
	return context.Int(f.Name), context.IsSet(f.Name)
}

type seedFlagType struct {
	cli.Uint64Flag
}

var SeedFlag = &seedFlagType{
	cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for the random number generator",
	},
}

func (f *seedFlagType) Fetch(context *cli.Context) (uint64, bool) {
	return context.Uint64(f.Name), context.IsSet(f.Name)
}

type maxExamplesFlagType struct {
	cli.IntFlag
}

var MaxExamplesFlag = &maxExamplesFlagType{
	cli.IntFlag{
		Name:    "max-examples",
		Aliases: []string{"n"},
		Usage:   "number of examples run for each fuzzed test",
	},
}

func (f *maxExamplesFlagType) Fetch(context *cli.Context) (int, bool) {
	return context.Int(f.Name), context.IsSet(f.Name)
}

type interpreterFlagType struct {
	cli.StringFlag
}

var InterpreterFlag = &interpreterFlagType{
	cli.StringFlag{
		Name:  "interpreter",
		Usage: "name of the interpreter executing the contracts",
	},
}

func (f *interpreterFlagType) Fetch(context *cli.Context) (string, bool) {
	return context.String(f.Name), context.IsSet(f.Name)
}

type configFlagType struct {
	cli.StringFlag
}

var ConfigFlag = &configFlagType{
	cli.StringFlag{
		Name:      "config",
		Aliases:   []string{"c"},
		Usage:     "configuration file, defaults to skribe.yaml in the project directory",
		TakesFile: true,
	},
}

func (f *configFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type metricsAddrFlagType struct {
	cli.StringFlag
}

var MetricsAddrFlag = &metricsAddrFlagType{
	cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "if set, metrics are served on the given address, e.g. localhost:9090",
	},
}

func (f *metricsAddrFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
	VerbosityFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:  "cpuprofile",
	Usage: "store CPU profile in the provided filename",
}

// AddCommonFlags adds the profiling and logging flags to the given command.
func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {
		SetDefaultLogger(VerbosityFlag.Fetch(ctx))

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}

// SetDefaultLogger installs a terminal logger on stderr filtering records
// below the given legacy verbosity level.
func SetDefaultLogger(verbosity int) {
	handler := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	handler.Verbosity(log.FromLegacyLevel(verbosity))
	log.SetDefault(log.NewLogger(handler))
}
