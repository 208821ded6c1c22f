// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package native

import (
	"bytes"
	"fmt"

	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/tosca"
)

// Frame is the view of a running module on its call and the world state.
type Frame struct {
	params tosca.Parameters
}

func newFrame(params tosca.Parameters) *Frame {
	return &Frame{params: params}
}

func (f *Frame) Self() tosca.Address {
	return f.params.Recipient
}

func (f *Frame) Sender() tosca.Address {
	return f.params.Sender
}

func (f *Frame) Value() tosca.Value {
	return f.params.Value
}

func (f *Frame) Input() []byte {
	return bytes.Clone(f.params.Input)
}

func (f *Frame) Static() bool {
	return f.params.Static
}

func (f *Frame) Depth() int {
	return f.params.Depth
}

func (f *Frame) Gas() tosca.Gas {
	return f.params.Gas
}

// Block returns the current block parameters. If the context tracks changes
// of the block parameters during the call, the current values are reported.
func (f *Frame) Block() tosca.BlockParameters {
	if block, ok := f.params.Context.(tosca.BlockContext); ok {
		return block.CurrentBlockParameters()
	}
	return f.params.BlockParameters
}

func (f *Frame) Load(key tosca.Key) tosca.Word {
	return f.params.Context.GetStorage(f.params.Recipient, key)
}

func (f *Frame) Store(key tosca.Key, value tosca.Word) error {
	if f.params.Static {
		return Revert([]byte(ErrWriteProtection))
	}
	f.params.Context.SetStorage(f.params.Recipient, key, value)
	return nil
}

func (f *Frame) Balance(address tosca.Address) tosca.Value {
	return f.params.Context.GetBalance(address)
}

func (f *Frame) Emit(topics []tosca.Hash, data []byte) error {
	if f.params.Static {
		return Revert([]byte(ErrWriteProtection))
	}
	f.params.Context.EmitLog(tosca.Log{
		Address: f.params.Recipient,
		Topics:  topics,
		Data:    bytes.Clone(data),
	})
	return nil
}

// Call sends a message call from the running module.
func (f *Frame) Call(to tosca.Address, input []byte, value tosca.Value) (tosca.CallResult, error) {
	kind := tosca.Call
	if f.params.Static {
		if !value.IsZero() {
			return tosca.CallResult{}, Revert([]byte(ErrWriteProtection))
		}
		kind = tosca.StaticCall
	}
	return f.params.Context.Call(kind, tosca.CallParameters{
		Sender:    f.params.Recipient,
		Recipient: to,
		Value:     value,
		Input:     input,
		Gas:       f.params.Gas,
	})
}

// StaticCall sends a read-only message call from the running module.
func (f *Frame) StaticCall(to tosca.Address, input []byte) (tosca.CallResult, error) {
	return f.params.Context.Call(tosca.StaticCall, tosca.CallParameters{
		Sender:    f.params.Recipient,
		Recipient: to,
		Input:     input,
		Gas:       f.params.Gas,
	})
}

// DelegateCall runs the code of the given account in the context of the
// running module.
func (f *Frame) DelegateCall(codeAddress tosca.Address, input []byte) (tosca.CallResult, error) {
	return f.params.Context.Call(tosca.DelegateCall, tosca.CallParameters{
		Sender:      f.params.Sender,
		Recipient:   f.params.Recipient,
		Value:       f.params.Value,
		Input:       input,
		Gas:         f.params.Gas,
		CodeAddress: codeAddress,
	})
}

// Deploy creates a new contract running the given init code.
func (f *Frame) Deploy(initCode []byte, value tosca.Value) (tosca.CallResult, error) {
	if f.params.Static {
		return tosca.CallResult{}, Revert([]byte(ErrWriteProtection))
	}
	return f.params.Context.Call(tosca.Create, tosca.CallParameters{
		Sender: f.params.Recipient,
		Value:  value,
		Input:  initCode,
		Gas:    f.params.Gas,
	})
}

// Cheat invokes a cheatcode and returns its decoded results. A failing
// cheatcode aborts the run; the returned error must be passed on.
func (f *Frame) Cheat(op cheatcodes.Op, args ...any) ([]any, error) {
	input, err := cheatcodes.Encode(op, args...)
	if err != nil {
		return nil, err
	}
	result, err := f.params.Context.Call(tosca.Call, tosca.CallParameters{
		Sender:    f.params.Recipient,
		Recipient: cheatcodes.Address(),
		Input:     input,
		Gas:       f.params.Gas,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("cheatcode %v failed", op)
	}
	return cheatcodes.Decode(op, result.Output)
}
