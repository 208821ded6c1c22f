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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	cliUtils "github.com/skribe-dev/skribe/go/driver/cli"
	"github.com/skribe-dev/skribe/go/harness"
	"github.com/urfave/cli/v2"
)

var nativeFlag = &cli.BoolFlag{
	Name:  "native",
	Usage: "include the test contracts implemented by registered native modules",
}

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run the tests of all test contracts of a project",
	ArgsUsage: "[PROJECT_DIR]",
	Flags: []cli.Flag{
		cliUtils.IdFlag,
		cliUtils.MaxExamplesFlag,
		cliUtils.SeedFlag,
		cliUtils.JobsFlag,
		cliUtils.ConfigFlag,
		cliUtils.InterpreterFlag,
		cliUtils.MetricsAddrFlag,
		nativeFlag,
	},
}

type runOptions struct {
	dir    string
	id     string
	native bool
}

func doRun(context *cli.Context) error {
	options := runOptions{
		dir:    ".",
		id:     cliUtils.IdFlag.Fetch(context),
		native: context.Bool(nativeFlag.Name),
	}
	if context.Args().Present() {
		options.dir = context.Args().First()
	}

	config, err := loadConfig(options.dir, cliUtils.ConfigFlag.Fetch(context))
	if err != nil {
		return err
	}
	if value, set := cliUtils.MaxExamplesFlag.Fetch(context); set {
		config.MaxExamples = value
	}
	if value, set := cliUtils.SeedFlag.Fetch(context); set {
		config.Seed = value
	}
	if value, set := cliUtils.JobsFlag.Fetch(context); set {
		config.Jobs = value
	}
	if value, set := cliUtils.InterpreterFlag.Fetch(context); set {
		config.Interpreter = value
	}

	registry := prometheus.NewRegistry()
	metrics := harness.NewMetrics(registry)
	if addr := cliUtils.MetricsAddrFlag.Fetch(context); addr != "" {
		serveMetrics(addr, registry)
	}

	ctx, stop := signal.NotifyContext(context.Context, os.Interrupt)
	defer stop()
	report, err := runTests(ctx, config, options, metrics, os.Stdout)
	if err != nil {
		return err
	}
	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d tests failed", failed, len(report.Results))
	}
	return nil
}

// loadConfig reads the given configuration file. Without an explicit file,
// the configuration file of the project is used if present.
func loadConfig(dir, path string) (harness.Config, error) {
	if path != "" {
		return harness.LoadConfig(path)
	}
	path = filepath.Join(dir, harness.ConfigFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return harness.DefaultConfig(), nil
	}
	return harness.LoadConfig(path)
}

func runTests(ctx context.Context, config harness.Config, options runOptions, metrics *harness.Metrics, out io.Writer) (*harness.Report, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	contracts, err := harness.LoadArtifacts(filepath.Join(options.dir, config.Artifacts))
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("No compiler output found", "dir", options.dir)
	} else if err != nil {
		return nil, err
	}
	if options.native {
		natives, err := harness.NativeTestContracts()
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, natives...)
	}
	contracts, err = harness.Select(contracts, options.id)
	if err != nil {
		return nil, err
	}

	files, err := cheatcodes.NewProjectFiles(cheatcodes.FilesConfig{
		Root:      options.dir,
		CacheSize: config.FileCacheSize,
	})
	if err != nil {
		return nil, err
	}
	runner, err := harness.NewRunner(config, files, metrics)
	if err != nil {
		return nil, err
	}
	report, err := runner.Run(ctx, contracts)
	if err != nil {
		return nil, err
	}

	for _, result := range report.Results {
		fmt.Fprintln(out, result)
	}
	fmt.Fprintln(out, report.Summary())
	return report, nil
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.Info("Serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Metrics server failed", "err", err)
		}
	}()
}
