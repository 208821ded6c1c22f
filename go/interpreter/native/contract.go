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
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/exp/maps"
)

// Method implements a function of a Contract. It receives the decoded
// arguments and returns the values to be encoded as the call's output.
type Method func(f *Frame, args []any) ([]any, error)

// Contract is a Module dispatching calls to Go functions according to an
// ABI definition.
type Contract struct {
	abi       abi.ABI
	methods   map[[4]byte]boundMethod
	construct func(*Frame) error
}

type boundMethod struct {
	method abi.Method
	impl   Method
}

// NewContract creates a contract from a JSON ABI definition. Every function
// of the ABI needs an implementation and vice versa.
func NewContract(definition string, methods map[string]Method) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI: %w", err)
	}
	res := &Contract{
		abi:     parsed,
		methods: map[[4]byte]boundMethod{},
	}
	for name, method := range parsed.Methods {
		impl, found := methods[name]
		if !found || impl == nil {
			return nil, fmt.Errorf("missing implementation of %s", method.Sig)
		}
		res.methods[[4]byte(method.ID)] = boundMethod{method: method, impl: impl}
	}
	for _, name := range maps.Keys(methods) {
		if _, found := parsed.Methods[name]; !found {
			return nil, fmt.Errorf("implementation of %s is not part of the ABI", name)
		}
	}
	return res, nil
}

func MustNewContract(definition string, methods map[string]Method) *Contract {
	res, err := NewContract(definition, methods)
	if err != nil {
		panic(err)
	}
	return res
}

// WithConstructor sets a function to be run when the contract is deployed.
func (c *Contract) WithConstructor(construct func(*Frame) error) *Contract {
	c.construct = construct
	return c
}

func (c *Contract) ABI() abi.ABI {
	return c.abi
}

func (c *Contract) Construct(f *Frame) error {
	if c.construct == nil {
		return nil
	}
	return c.construct(f)
}

func (c *Contract) Call(f *Frame) ([]byte, error) {
	input := f.params.Input
	if len(input) < 4 {
		return nil, Revert([]byte(ErrUnknownMethod))
	}
	bound, found := c.methods[[4]byte(input[:4])]
	if !found {
		return nil, Revert([]byte(ErrUnknownMethod))
	}
	if !bound.method.IsPayable() && !f.Value().IsZero() {
		return nil, Revert([]byte(fmt.Sprintf("%s is not payable", bound.method.Name)))
	}
	args, err := bound.method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, Revert([]byte(fmt.Sprintf("invalid arguments for %s: %v", bound.method.Name, err)))
	}
	results, err := bound.impl(f, args)
	if err != nil {
		return nil, err
	}
	output, err := bound.method.Outputs.Pack(results...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results of %s: %w", bound.method.Name, err)
	}
	return output, nil
}

// Emit emits the named event of the contract's ABI. Indexed arguments become
// topics, all others are encoded into the log's data.
func (c *Contract) Emit(f *Frame, name string, args ...any) error {
	event, found := c.abi.Events[name]
	if !found {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(args) != len(event.Inputs) {
		return fmt.Errorf("event %s expects %d arguments, got %d", name, len(event.Inputs), len(args))
	}
	topics := []tosca.Hash{tosca.Hash(event.ID)}
	var values []any
	for i, input := range event.Inputs {
		if !input.Indexed {
			values = append(values, args[i])
			continue
		}
		encoded, err := abi.Arguments{{Type: input.Type}}.Pack(args[i])
		if err != nil {
			return fmt.Errorf("invalid argument %s of event %s: %w", input.Name, name, err)
		}
		if len(encoded) != len(tosca.Hash{}) {
			return fmt.Errorf("indexed argument %s of event %s is not a value type", input.Name, name)
		}
		topics = append(topics, tosca.Hash(encoded))
	}
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return fmt.Errorf("invalid arguments of event %s: %w", name, err)
	}
	return f.Emit(topics, data)
}
