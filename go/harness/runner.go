// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/simulation"
	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rand"
)

const (
	ErrReverted        = tosca.ConstError("test reverted")
	ErrReturnedFalse   = tosca.ConstError("test returned false")
	ErrTooManyDiscards = tosca.ConstError("all examples were discarded")
	ErrInvalidOutput   = tosca.ConstError("invalid test output")
)

// Runner executes the tests of test contracts. Each contract is deployed
// and set up once; every example runs on an independent fork of the
// resulting state.
type Runner struct {
	config      Config
	interpreter tosca.Interpreter
	files       cheatcodes.Files
	policy      cheatcodes.RearmPolicy
	metrics     *Metrics
	log         log.Logger
}

// NewRunner creates a runner for the given configuration. Files serves the
// file cheatcodes and metrics may be nil.
func NewRunner(config Config, files cheatcodes.Files, metrics *Metrics) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	interpreter, err := tosca.NewInterpreter(config.Interpreter)
	if err != nil {
		return nil, err
	}
	policy, err := cheatcodes.ParseRearmPolicy(config.RearmPolicy)
	if err != nil {
		return nil, err
	}
	return &Runner{
		config:      config,
		interpreter: interpreter,
		files:       files,
		policy:      policy,
		metrics:     metrics,
		log:         log.New("module", "harness"),
	}, nil
}

type testJob struct {
	contract *TestContract
	template *simulation.Simulation
	test     abi.Method
	setUpErr error
}

// Run executes all tests of the given contracts. Failing tests are reported
// in the results; an error is only returned if the run was aborted.
func (r *Runner) Run(ctx context.Context, contracts []*TestContract) (*Report, error) {
	start := time.Now()
	r.log.Info("Running tests", "contracts", len(contracts), "seed", r.config.Seed, "jobs", r.config.Jobs)

	var jobs []testJob
	for _, contract := range contracts {
		template, err := r.setUp(contract)
		if err != nil {
			r.log.Error("Set up failed", "contract", contract.Name, "err", err)
		}
		for _, test := range contract.Tests {
			jobs = append(jobs, testJob{contract, template, test, err})
		}
	}

	results := make([]Result, len(jobs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Jobs)
	for i, job := range jobs {
		i, job := i, job
		group.Go(func() error {
			result, err := r.runTest(ctx, job)
			if err != nil {
				return err
			}
			results[i] = result
			r.metrics.test(result.Status)
			if result.Status == Passed {
				r.log.Info("Test passed", "test", result.ID(), "examples", result.Examples, "discards", result.Discards)
			} else {
				r.log.Error("Test failed", "test", result.ID(), "err", result.Err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results, Duration: time.Since(start)}
	r.log.Info("Tests completed", "summary", report.Summary())
	return report, nil
}

// setUp deploys the contract into a fresh state and runs its setUp method.
// The resulting state is the template of all examples.
func (r *Runner) setUp(contract *TestContract) (*simulation.Simulation, error) {
	engine := cheatcodes.NewEngine(cheatcodes.Config{
		Files:       r.files,
		RearmPolicy: r.policy,
		Logger:      log.New("module", "cheatcodes", "contract", contract.Name),
	})
	sim := simulation.New(r.interpreter, engine)
	sim.NewAccount(simulation.TestCallerAddress())
	sim.SetContract(cheatcodes.Address(), tosca.Code{0x00}, nil)
	sim.SetContract(simulation.TestContractAddress(), contract.Code, nil)
	if contract.SetUp == nil {
		return sim, nil
	}

	result, err := sim.Call(simulation.TestCallerAddress(), simulation.TestContractAddress(), contract.SetUp.ID, tosca.Value{})
	if err == nil {
		err = engine.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInitialization, contract.Name, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w %s: setUp reverted with %s", ErrInitialization, contract.Name, formatRevert(result.Output))
	}
	return sim, nil
}

func (r *Runner) runTest(ctx context.Context, job testJob) (Result, error) {
	res := Result{
		Contract: job.contract.Name,
		Test:     job.test.Name,
		inputs:   job.test.Inputs,
	}
	if job.setUpErr != nil {
		res.Status = Failed
		res.Err = job.setUpErr
		return res, nil
	}

	// each test draws from its own random source to be reproducible
	id := TestID(job.contract, job.test)
	rnd := rand.New(r.config.Seed, binary.BigEndian.Uint64(crypto.Keccak256([]byte(id))))

	examples := r.config.MaxExamples
	maxDiscards := examples * r.config.MaxDiscardRatio
	if len(job.test.Inputs) == 0 {
		examples, maxDiscards = 1, 0
	}

	for res.Examples < examples {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		args, err := generateArguments(rnd, job.test.Inputs)
		if err != nil {
			res.Status = Failed
			res.Err = err
			return res, nil
		}
		result, err := r.runExample(job, args)
		r.metrics.example(result)
		switch result {
		case pass:
			res.Examples++
		case discard:
			res.Discards++
			if res.Discards > maxDiscards {
				if res.Examples == 0 {
					res.Status = Failed
					res.Err = ErrTooManyDiscards
				}
				return res, nil
			}
		case fail:
			res.Status = Failed
			res.Err = err
			res.Counterexample = args
			return res, nil
		}
	}
	return res, nil
}

func (r *Runner) runExample(job testJob, args []any) (outcome, error) {
	encoded, err := job.test.Inputs.Pack(args...)
	if err != nil {
		return fail, fmt.Errorf("failed to encode arguments: %w", err)
	}
	input := append(slices.Clone(job.test.ID), encoded...)

	sim := job.template.Fork()
	result, err := sim.Call(simulation.TestCallerAddress(), simulation.TestContractAddress(), input, tosca.Value{})
	if sim.Engine().TakeAssumeSignal() || errors.Is(err, cheatcodes.ErrDiscard) {
		return discard, nil
	}
	if err != nil {
		return fail, err
	}
	if err := sim.Engine().Err(); err != nil {
		return fail, err
	}
	if !result.Success {
		return fail, fmt.Errorf("%w with %s", ErrReverted, formatRevert(result.Output))
	}
	if len(job.test.Outputs) == 0 {
		return pass, nil
	}
	values, err := job.test.Outputs.Unpack(result.Output)
	if err != nil {
		return fail, fmt.Errorf("%w 0x%x: %v", ErrInvalidOutput, []byte(result.Output), err)
	}
	if passed, _ := values[0].(bool); !passed {
		return fail, ErrReturnedFalse
	}
	return pass, nil
}
