// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package simulation executes calls between accounts of an in-memory world
// state. It is the runtime the cheatcode engine is plugged into: it routes
// calls to the cheatcode address to the engine and brackets all other calls
// with the engine's call hook.
package simulation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/tosca"
)

// DefaultGasLimit is the gas provided to calls issued through a Simulation.
// Gas is passed through but not accounted for.
const DefaultGasLimit = tosca.Gas(1 << 40)

// TestCallerAddress is the account issuing the calls of the test runner.
// It is wrapped in a function to be immutable.
func TestCallerAddress() tosca.Address {
	return tosca.Address(common.HexToAddress("0x1804c8AB1F12E6bbf3894d4083f33e07309d1f38"))
}

// TestContractAddress is the address test contracts are deployed at.
// It is wrapped in a function to be immutable.
func TestContractAddress() tosca.Address {
	return tosca.Address(common.HexToAddress("0x7FA9385bE102ac3EAc297483Dd6233D62b3e1496"))
}

// Simulation is a single-threaded execution environment bound to one
// cheatcode engine.
type Simulation struct {
	interpreter tosca.Interpreter
	engine      *cheatcodes.Engine
	log         log.Logger
}

func New(interpreter tosca.Interpreter, engine *cheatcodes.Engine) *Simulation {
	return &Simulation{
		interpreter: interpreter,
		engine:      engine,
		log:         log.New("module", "simulation"),
	}
}

// Fork creates an independent simulation operating on a fork of the engine.
func (s *Simulation) Fork() *Simulation {
	return &Simulation{
		interpreter: s.interpreter,
		engine:      s.engine.Fork(),
		log:         s.log,
	}
}

func (s *Simulation) Engine() *cheatcodes.Engine {
	return s.engine
}

func (s *Simulation) State() *cheatcodes.Store {
	return s.engine.Store()
}

// NewAccount creates an empty account.
func (s *Simulation) NewAccount(address tosca.Address) {
	s.State().Touch(address)
}

// SetContract installs code and storage at the given address, replacing any
// code present before.
func (s *Simulation) SetContract(address tosca.Address, code tosca.Code, storage map[tosca.Key]tosca.Word) {
	state := s.State()
	state.SetCode(address, code)
	for key, value := range storage {
		state.SetStorage(address, key, value)
	}
}

// Call sends a message call with the given input and value. A reverted call
// is reported through the result; errors are reserved for failures aborting
// the whole run, like cheatcode failures or interpreter errors.
func (s *Simulation) Call(from, to tosca.Address, input []byte, value tosca.Value) (tosca.CallResult, error) {
	result, err := s.run(tosca.Call, tosca.CallParameters{
		Sender:    from,
		Recipient: to,
		Value:     value,
		Input:     input,
		Gas:       DefaultGasLimit,
	})
	s.log.Debug("Call", "from", from, "to", to, "success", result.Success, "err", err)
	return result, err
}

// Deploy runs the given init code and installs its output as the code of a
// new contract. The address of the new contract is reported in the result.
func (s *Simulation) Deploy(from tosca.Address, initCode []byte, value tosca.Value) (tosca.CallResult, error) {
	result, err := s.run(tosca.Create, tosca.CallParameters{
		Sender: from,
		Value:  value,
		Input:  initCode,
		Gas:    DefaultGasLimit,
	})
	s.log.Debug("Deploy", "from", from, "address", result.CreatedAddress, "success", result.Success, "err", err)
	return result, err
}

func (s *Simulation) run(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	if s.interpreter == nil {
		return tosca.CallResult{}, fmt.Errorf("no interpreter configured")
	}
	context := runContext{
		Store:       s.State(),
		engine:      s.engine,
		interpreter: s.interpreter,
	}
	return context.Call(kind, parameters)
}
