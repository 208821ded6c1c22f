// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package examples contains contracts implemented as native modules. Besides
// plain contracts it provides test contracts exercising the cheatcodes the way
// test suites written against the harness do.
package examples

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

// Example is a contract implemented by a registered native module.
type Example struct {
	Name     string
	Contract *native.Contract
}

// Code returns the deployed code of the example.
func (e Example) Code() tosca.Code {
	return native.Code(e.Name)
}

// InitCode returns the init code deploying the example.
func (e Example) InitCode() []byte {
	return native.InitCode(e.Name)
}

// All lists the examples in registration order.
func All() []Example {
	return []Example{Counter, Forwarder, CounterSuite, FailingSuite}
}

func register(name string, contract *native.Contract) Example {
	native.MustRegisterModule(name, contract)
	return Example{Name: name, Contract: contract}
}

// call invokes a method of another contract and decodes its results. A
// revert of the callee is passed on to the caller.
func call(f *native.Frame, target tosca.Address, example Example, method string, args ...any) ([]any, error) {
	return callWithValue(f, target, tosca.Value{}, example, method, args...)
}

func callWithValue(f *native.Frame, target tosca.Address, value tosca.Value, example Example, method string, args ...any) ([]any, error) {
	definition := example.Contract.ABI()
	input, err := definition.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	result, err := f.Call(target, input, value)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, native.Revert(result.Output)
	}
	if len(definition.Methods[method].Outputs) == 0 {
		return nil, nil
	}
	return definition.Unpack(method, result.Output)
}

// assertTrue fails the current test case if the condition does not hold.
func assertTrue(f *native.Frame, condition bool) error {
	_, err := f.Cheat(cheatcodes.OpAssertTrue, condition)
	return err
}

func addressAt(f *native.Frame, key tosca.Key) tosca.Address {
	word := f.Load(key)
	return tosca.Address(common.BytesToAddress(word[:]))
}

func storeAddress(f *native.Frame, key tosca.Key, address tosca.Address) error {
	return f.Store(key, tosca.Word(common.BytesToHash(address[:])))
}

func toBig(value tosca.Value) *big.Int {
	return value.ToUint256().ToBig()
}
