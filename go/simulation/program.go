// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package simulation

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
	"gopkg.in/yaml.v3"
)

// Program is a sequence of simulation steps, loaded from a YAML or JSON file.
//
//	steps:
//	  - type: newAccount
//	    address: "0x1804c8ab1f12e6bbf3894d4083f33e07309d1f38"
//	  - type: setContract
//	    address: "0x7fa9385be102ac3eac297483dd6233d62b3e1496"
//	    module: Counter
//	  - type: call
//	    from: "0x1804c8ab1f12e6bbf3894d4083f33e07309d1f38"
//	    to: "0x7fa9385be102ac3eac297483dd6233d62b3e1496"
//	    data: {function: setNumber, types: [uint256], args: [5]}
type Program struct {
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Type string `yaml:"type"`

	// newAccount and setContract
	Address tosca.Address `yaml:"address"`
	// setContract; exactly one of Code, File and Module must be set
	Code    string            `yaml:"code"`
	File    string            `yaml:"file"`
	Module  string            `yaml:"module"`
	Storage map[string]string `yaml:"storage"`

	// call
	From   tosca.Address `yaml:"from"`
	To     tosca.Address `yaml:"to"`
	Value  string        `yaml:"value"`
	Data   CallData      `yaml:"data"`
	Output *Output       `yaml:"output"`
	Revert bool          `yaml:"revert"`
}

type CallData struct {
	Function string   `yaml:"function"`
	Types    []string `yaml:"types"`
	Args     []any    `yaml:"args"`
}

type Output struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// LoadProgram reads a program from the given file.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program := &Program{}
	if err := yaml.Unmarshal(data, program); err != nil {
		return nil, fmt.Errorf("failed to parse program %s: %w", path, err)
	}
	return program, nil
}

// Run executes all steps of the program. Relative file references are
// resolved against baseDir. Execution stops at the first failing step.
func (p *Program) Run(sim *Simulation, baseDir string) error {
	for i, step := range p.Steps {
		if err := step.run(sim, baseDir); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Type, err)
		}
		if err := sim.Engine().Err(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Type, err)
		}
	}
	return nil
}

func (s *Step) run(sim *Simulation, baseDir string) error {
	switch s.Type {
	case "newAccount":
		sim.NewAccount(s.Address)
		return nil
	case "setContract":
		code, err := s.contractCode(baseDir)
		if err != nil {
			return err
		}
		storage := make(map[tosca.Key]tosca.Word, len(s.Storage))
		for key, value := range s.Storage {
			storage[tosca.Key(common.HexToHash(key))] = tosca.Word(common.HexToHash(value))
		}
		sim.SetContract(s.Address, code, storage)
		return nil
	case "call":
		return s.call(sim)
	}
	return fmt.Errorf("invalid step type %q", s.Type)
}

func (s *Step) contractCode(baseDir string) (tosca.Code, error) {
	set := 0
	for _, source := range []string{s.Code, s.File, s.Module} {
		if source != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of code, file and module must be set")
	}
	switch {
	case s.Code != "":
		return hex.DecodeString(strings.TrimPrefix(s.Code, "0x"))
	case s.File != "":
		path := s.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return os.ReadFile(path)
	}
	if _, found := native.LookupModule(s.Module); !found {
		return nil, fmt.Errorf("unknown module %q", s.Module)
	}
	return native.Code(s.Module), nil
}

func (s *Step) call(sim *Simulation) error {
	value := tosca.Value{}
	if s.Value != "" {
		parsed, err := uint256.FromDecimal(s.Value)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", s.Value, err)
		}
		value = tosca.ValueFromUint256(parsed)
	}
	input, err := s.Data.encode()
	if err != nil {
		return err
	}

	result, err := sim.Call(s.From, s.To, input, value)
	if err != nil {
		return err
	}
	if s.Revert {
		if result.Success {
			return fmt.Errorf("expected call to revert")
		}
		return nil
	}
	if !result.Success {
		return fmt.Errorf("call reverted with 0x%x", []byte(result.Output))
	}
	if s.Output == nil {
		return nil
	}
	want, err := encodeArguments([]string{s.Output.Type}, []any{s.Output.Value})
	if err != nil {
		return fmt.Errorf("invalid output: %w", err)
	}
	if !bytes.Equal(want, result.Output) {
		return fmt.Errorf("unexpected output, wanted 0x%x, got 0x%x", want, []byte(result.Output))
	}
	return nil
}

// encode produces the call data of the described function call.
func (d CallData) encode() ([]byte, error) {
	if d.Function == "" {
		return nil, nil
	}
	signature := fmt.Sprintf("%s(%s)", d.Function, strings.Join(d.Types, ","))
	args, err := encodeArguments(d.Types, d.Args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", signature, err)
	}
	return append(crypto.Keccak256([]byte(signature))[:4], args...), nil
}

func encodeArguments(types []string, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("got %d values for %d types", len(values), len(types))
	}
	arguments := make(abi.Arguments, 0, len(types))
	converted := make([]any, 0, len(values))
	for i, name := range types {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, err
		}
		value, err := convertArgument(typ, values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
		converted = append(converted, value)
	}
	return arguments.Pack(converted...)
}

// convertArgument converts a value decoded from a program file into the Go
// type expected by the ABI encoder for the given type.
func convertArgument(typ abi.Type, value any) (any, error) {
	switch typ.T {
	case abi.BoolTy:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case abi.StringTy:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case abi.AddressTy:
		if s, ok := value.(string); ok && common.IsHexAddress(s) {
			return common.HexToAddress(s), nil
		}
	case abi.UintTy, abi.IntTy:
		number, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		if typ.T == abi.UintTy && (number.Sign() < 0 || number.BitLen() > typ.Size) {
			return nil, fmt.Errorf("%v does not fit into %v", number, typ)
		}
		target := typ.GetType()
		if target.Kind() == reflect.Ptr {
			return number, nil
		}
		if typ.T == abi.UintTy {
			return reflect.ValueOf(number.Uint64()).Convert(target).Interface(), nil
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		if number.Cmp(limit) >= 0 || number.Cmp(limit.Neg(limit)) < 0 {
			return nil, fmt.Errorf("%v does not fit into %v", number, typ)
		}
		return reflect.ValueOf(number.Int64()).Convert(target).Interface(), nil
	case abi.BytesTy, abi.FixedBytesTy:
		s, ok := value.(string)
		if !ok {
			break
		}
		data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, err
		}
		if typ.T == abi.BytesTy {
			return data, nil
		}
		if len(data) != typ.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", typ.Size, len(data))
		}
		res := reflect.New(typ.GetType()).Elem()
		reflect.Copy(res, reflect.ValueOf(data))
		return res.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported type %v", typ)
	}
	return nil, fmt.Errorf("invalid value %v for type %v", value, typ)
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case string:
		if res, ok := new(big.Int).SetString(v, 0); ok {
			return res, nil
		}
	}
	return nil, fmt.Errorf("invalid number %v", value)
}
