// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package harness runs the tests of test contracts. Every method of a test
// contract whose name starts with "test" is a test; methods with inputs are
// fuzzed with random arguments.
package harness

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ErrInvalidSetUp         = tosca.ConstError("setUp must not have inputs")
	ErrInvalidTestSignature = tosca.ConstError("tests must return nothing or a bool")
	ErrUnknownTest          = tosca.ConstError("unknown test")
	ErrInitialization       = tosca.ConstError("failed to initialize test contract")
)

const (
	setUpMethod = "setUp"
	testPrefix  = "test"
)

// TestContract is a contract containing tests.
type TestContract struct {
	Name string
	ABI  abi.ABI
	// Code is the deployed code of the contract.
	Code tosca.Code
	// SetUp is run once before the tests, if present.
	SetUp *abi.Method
	// Tests are sorted by name.
	Tests []abi.Method
}

// IsTestContract reports whether the given interface has at least one test.
func IsTestContract(definition abi.ABI) bool {
	for name := range definition.Methods {
		if strings.HasPrefix(name, testPrefix) {
			return true
		}
	}
	return false
}

func NewTestContract(name string, definition abi.ABI, code tosca.Code) (*TestContract, error) {
	res := &TestContract{
		Name: name,
		ABI:  definition,
		Code: code,
	}
	if setUp, found := definition.Methods[setUpMethod]; found {
		if len(setUp.Inputs) != 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrInvalidSetUp)
		}
		res.SetUp = &setUp
	}

	names := maps.Keys(definition.Methods)
	slices.Sort(names)
	for _, method := range names {
		if !strings.HasPrefix(method, testPrefix) {
			continue
		}
		test := definition.Methods[method]
		if !hasTestOutputs(test) {
			return nil, fmt.Errorf("%s.%s: %w, got %v", name, method, ErrInvalidTestSignature, test.Outputs)
		}
		res.Tests = append(res.Tests, test)
	}
	return res, nil
}

func hasTestOutputs(method abi.Method) bool {
	switch len(method.Outputs) {
	case 0:
		return true
	case 1:
		return method.Outputs[0].Type.T == abi.BoolTy
	}
	return false
}

// TestID is the name of a test, formatted as Contract.method.
func TestID(contract *TestContract, test abi.Method) string {
	return contract.Name + "." + test.Name
}

// Select filters the given contracts by an id. The id is either empty,
// selecting all tests, the name of a contract, or the id of a single test.
func Select(contracts []*TestContract, id string) ([]*TestContract, error) {
	if id == "" {
		return contracts, nil
	}
	contractName, method, single := strings.Cut(id, ".")
	for _, contract := range contracts {
		if contract.Name != contractName {
			continue
		}
		if !single {
			return []*TestContract{contract}, nil
		}
		for _, test := range contract.Tests {
			if test.Name == method {
				selected := *contract
				selected.Tests = []abi.Method{test}
				return []*TestContract{&selected}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTest, id)
}
