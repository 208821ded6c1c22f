// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/deploy"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

var (
	counterSlot   = tosca.Key{31: 0x10}
	forwarderSlot = tosca.Key{31: 0x11}
)

// ModuleFile is the project file read by CounterSuite.testDeployFromFile. It
// contains the name of the module to deploy.
const ModuleFile = "testdata/counter.module"

const counterSuiteABI = `[
	{"type":"function","name":"setUp","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testIncrement","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testSetNumber","inputs":[{"name":"x","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testDeal","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testWarp","inputs":[{"name":"timestamp","type":"uint64"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testRoll","inputs":[{"name":"height","type":"uint64"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testFee","inputs":[{"name":"fee","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testStoreLoad","inputs":[{"name":"value","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testNonce","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testPrank","inputs":[{"name":"who","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testPrankIsNotInherited","inputs":[{"name":"who","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testStartPrank","inputs":[{"name":"who","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testExpectRevert","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testExpectEmit","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testAssume","inputs":[{"name":"x","type":"uint8"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testSign","inputs":[{"name":"digest","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testEtch","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testReadFile","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testDeployFromFile","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"by","type":"address","indexed":true},{"name":"number","type":"uint256","indexed":false}],"anonymous":false}
]`

// CounterSuite is a test contract for the Counter. All of its tests pass.
var CounterSuite = register("CounterSuite", newCounterSuite())

func newCounterSuite() *native.Contract {
	var suite *native.Contract
	suite = native.MustNewContract(counterSuiteABI, map[string]native.Method{
		"setUp": func(f *native.Frame, _ []any) ([]any, error) {
			deployments := []struct {
				slot    tosca.Key
				example Example
			}{
				{counterSlot, Counter},
				{forwarderSlot, Forwarder},
			}
			for _, deployment := range deployments {
				example := deployment.example
				result, err := f.Deploy(example.InitCode(), tosca.Value{})
				if err != nil {
					return nil, err
				}
				if !result.Success {
					return nil, native.Revert([]byte("deployment of " + example.Name + " failed"))
				}
				if err := storeAddress(f, deployment.slot, result.CreatedAddress); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},

		"testIncrement": func(f *native.Frame, _ []any) ([]any, error) {
			counter := addressAt(f, counterSlot)
			if _, err := call(f, counter, Counter, "increment"); err != nil {
				return nil, err
			}
			number, err := call(f, counter, Counter, "number")
			if err != nil {
				return nil, err
			}
			return []any{number[0].(*big.Int).Cmp(common.Big1) == 0}, nil
		},

		"testSetNumber": func(f *native.Frame, args []any) ([]any, error) {
			counter := addressAt(f, counterSlot)
			x := args[0].(*big.Int)
			if _, err := call(f, counter, Counter, "setNumber", x); err != nil {
				return nil, err
			}
			number, err := call(f, counter, Counter, "number")
			if err != nil {
				return nil, err
			}
			return []any{number[0].(*big.Int).Cmp(x) == 0}, nil
		},

		"testDeal": func(f *native.Frame, args []any) ([]any, error) {
			amount := args[0].(*big.Int)
			if _, err := f.Cheat(cheatcodes.OpDeal, common.Address(f.Self()), amount); err != nil {
				return nil, err
			}
			return nil, assertTrue(f, toBig(f.Balance(f.Self())).Cmp(amount) == 0)
		},

		"testWarp": func(f *native.Frame, args []any) ([]any, error) {
			timestamp := args[0].(uint64)
			if _, err := f.Cheat(cheatcodes.OpWarp, new(big.Int).SetUint64(timestamp)); err != nil {
				return nil, err
			}
			return nil, assertTrue(f, f.Block().Timestamp == timestamp)
		},

		"testRoll": func(f *native.Frame, args []any) ([]any, error) {
			height := args[0].(uint64)
			if _, err := f.Cheat(cheatcodes.OpRoll, new(big.Int).SetUint64(height)); err != nil {
				return nil, err
			}
			return nil, assertTrue(f, f.Block().BlockNumber == height)
		},

		"testFee": func(f *native.Frame, args []any) ([]any, error) {
			fee := args[0].(*big.Int)
			if _, err := f.Cheat(cheatcodes.OpFee, fee); err != nil {
				return nil, err
			}
			return nil, assertTrue(f, toBig(f.Block().BaseFee).Cmp(fee) == 0)
		},

		"testStoreLoad": func(f *native.Frame, args []any) ([]any, error) {
			counter := addressAt(f, counterSlot)
			value := args[0].([32]byte)
			if _, err := f.Cheat(cheatcodes.OpStore, common.Address(counter), [32]byte(numberSlot), value); err != nil {
				return nil, err
			}
			loaded, err := f.Cheat(cheatcodes.OpLoad, common.Address(counter), [32]byte(numberSlot))
			if err != nil {
				return nil, err
			}
			number, err := call(f, counter, Counter, "number")
			if err != nil {
				return nil, err
			}
			matches := loaded[0].([32]byte) == value && number[0].(*big.Int).Cmp(new(big.Int).SetBytes(value[:])) == 0
			return []any{matches}, nil
		},

		"testNonce": func(f *native.Frame, _ []any) ([]any, error) {
			// setUp deployed two contracts
			nonce, err := f.Cheat(cheatcodes.OpGetNonce, common.Address(f.Self()))
			if err != nil {
				return nil, err
			}
			return nil, assertTrue(f, nonce[0].(uint64) == 2)
		},

		"testPrank": func(f *native.Frame, args []any) ([]any, error) {
			who := tosca.Address(args[0].(common.Address))
			counter := addressAt(f, counterSlot)
			if _, err := f.Cheat(cheatcodes.OpPrank, common.Address(who)); err != nil {
				return nil, err
			}
			for _, want := range []tosca.Address{who, f.Self()} {
				if _, err := call(f, counter, Counter, "increment"); err != nil {
					return nil, err
				}
				if err := assertLastCaller(f, counter, want); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},

		"testPrankIsNotInherited": func(f *native.Frame, args []any) ([]any, error) {
			who := args[0].(common.Address)
			counter, forwarder := addressAt(f, counterSlot), addressAt(f, forwarderSlot)
			if _, err := f.Cheat(cheatcodes.OpPrank, who); err != nil {
				return nil, err
			}
			increment, err := Counter.Contract.ABI().Pack("increment")
			if err != nil {
				return nil, err
			}
			if _, err := call(f, forwarder, Forwarder, "forward", common.Address(counter), increment); err != nil {
				return nil, err
			}
			return nil, assertLastCaller(f, counter, forwarder)
		},

		"testStartPrank": func(f *native.Frame, args []any) ([]any, error) {
			who := tosca.Address(args[0].(common.Address))
			counter := addressAt(f, counterSlot)
			if _, err := f.Cheat(cheatcodes.OpStartPrank, common.Address(who)); err != nil {
				return nil, err
			}
			for i := 0; i < 2; i++ {
				if _, err := call(f, counter, Counter, "increment"); err != nil {
					return nil, err
				}
				if err := assertLastCaller(f, counter, who); err != nil {
					return nil, err
				}
			}
			if _, err := f.Cheat(cheatcodes.OpStopPrank); err != nil {
				return nil, err
			}
			if _, err := call(f, counter, Counter, "increment"); err != nil {
				return nil, err
			}
			return nil, assertLastCaller(f, counter, f.Self())
		},

		"testExpectRevert": func(f *native.Frame, _ []any) ([]any, error) {
			if _, err := f.Cheat(cheatcodes.OpExpectRevert); err != nil {
				return nil, err
			}
			input, err := Counter.Contract.ABI().Pack("fail")
			if err != nil {
				return nil, err
			}
			result, err := f.Call(addressAt(f, counterSlot), input, tosca.Value{})
			if err != nil {
				return nil, err
			}
			return []any{result.Success && string(result.Output) == "Counter: failure"}, nil
		},

		"testExpectEmit": func(f *native.Frame, _ []any) ([]any, error) {
			if _, err := f.Cheat(cheatcodes.OpExpectEmit); err != nil {
				return nil, err
			}
			if err := suite.Emit(f, "Incremented", common.Address(f.Self()), common.Big1); err != nil {
				return nil, err
			}
			_, err := call(f, addressAt(f, counterSlot), Counter, "increment")
			return nil, err
		},

		"testAssume": func(f *native.Frame, args []any) ([]any, error) {
			x := args[0].(uint8)
			if _, err := f.Cheat(cheatcodes.OpAssume, x != 0); err != nil {
				return nil, err
			}
			return []any{255/x >= 1}, nil
		},

		"testSign": func(f *native.Frame, args []any) ([]any, error) {
			digest := args[0].([32]byte)
			key := big.NewInt(0xC0FFEE)
			signer, err := f.Cheat(cheatcodes.OpAddr, key)
			if err != nil {
				return nil, err
			}
			signature, err := f.Cheat(cheatcodes.OpSign, key, digest)
			if err != nil {
				return nil, err
			}
			v, r, s := signature[0].(uint8), signature[1].([32]byte), signature[2].([32]byte)
			sig := append(append(r[:], s[:]...), v-27)
			pub, err := crypto.SigToPub(digest[:], sig)
			if err != nil {
				return []any{false}, nil
			}
			return []any{crypto.PubkeyToAddress(*pub) == signer[0].(common.Address)}, nil
		},

		"testEtch": func(f *native.Frame, _ []any) ([]any, error) {
			target := common.Address{0x42}
			if _, err := f.Cheat(cheatcodes.OpEtch, target, []byte(Counter.Code())); err != nil {
				return nil, err
			}
			if _, err := call(f, tosca.Address(target), Counter, "setNumber", big.NewInt(7)); err != nil {
				return nil, err
			}
			number, err := call(f, tosca.Address(target), Counter, "number")
			if err != nil {
				return nil, err
			}
			return []any{number[0].(*big.Int).Int64() == 7}, nil
		},

		"testReadFile": func(f *native.Frame, _ []any) ([]any, error) {
			root, err := f.Cheat(cheatcodes.OpProjectRoot)
			if err != nil {
				return nil, err
			}
			text, err := f.Cheat(cheatcodes.OpReadFile, ModuleFile)
			if err != nil {
				return nil, err
			}
			binary, err := f.Cheat(cheatcodes.OpReadFileBinary, ModuleFile)
			if err != nil {
				return nil, err
			}
			same := text[0].(string) == string(binary[0].([]byte))
			return nil, assertTrue(f, root[0].(string) != "" && same)
		},

		"testDeployFromFile": func(f *native.Frame, _ []any) ([]any, error) {
			content, err := f.Cheat(cheatcodes.OpReadFileBinary, ModuleFile)
			if err != nil {
				return nil, err
			}
			module := bytes.TrimSpace(content[0].([]byte))
			result, err := f.Deploy(deploy.BuildInitCode(module), tosca.Value{})
			if err != nil || !result.Success {
				return []any{false}, err
			}
			if _, err := call(f, result.CreatedAddress, Counter, "increment"); err != nil {
				return nil, err
			}
			number, err := call(f, result.CreatedAddress, Counter, "number")
			if err != nil {
				return nil, err
			}
			return []any{number[0].(*big.Int).Cmp(common.Big1) == 0}, nil
		},
	})
	return suite
}

func assertLastCaller(f *native.Frame, counter, want tosca.Address) error {
	caller, err := call(f, counter, Counter, "lastCaller")
	if err != nil {
		return err
	}
	return assertTrue(f, tosca.Address(caller[0].(common.Address)) == want)
}
