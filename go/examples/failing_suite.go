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
	"github.com/ethereum/go-ethereum/common"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

const failingSuiteABI = `[
	{"type":"function","name":"testReturnsFalse","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testReverts","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testBound","inputs":[{"name":"x","type":"uint8"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testAssertFails","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testSwallowedFailure","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"testUnmetExpectRevert","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testUnmetExpectEmit","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"testAlwaysDiscards","inputs":[{"name":"x","type":"uint8"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Ping","inputs":[{"name":"id","type":"uint256","indexed":false}],"anonymous":false}
]`

// FailingSuite is a test contract of which every test fails.
var FailingSuite = register("FailingSuite", newFailingSuite())

func newFailingSuite() *native.Contract {
	var suite *native.Contract
	suite = native.MustNewContract(failingSuiteABI, map[string]native.Method{
		"testReturnsFalse": func(*native.Frame, []any) ([]any, error) {
			return []any{false}, nil
		},
		"testReverts": func(*native.Frame, []any) ([]any, error) {
			return nil, native.Revert([]byte("FailingSuite: revert"))
		},
		"testBound": func(f *native.Frame, args []any) ([]any, error) {
			return []any{args[0].(uint8) < 100}, nil
		},
		"testAssertFails": func(f *native.Frame, _ []any) ([]any, error) {
			return nil, assertTrue(f, false)
		},
		"testSwallowedFailure": func(f *native.Frame, _ []any) ([]any, error) {
			_ = assertTrue(f, false)
			return []any{true}, nil
		},
		"testUnmetExpectRevert": func(f *native.Frame, _ []any) ([]any, error) {
			if _, err := f.Cheat(cheatcodes.OpExpectRevert); err != nil {
				return nil, err
			}
			_, err := f.Call(tosca.Address{0x01, 0x02}, nil, tosca.Value{})
			return nil, err
		},
		"testUnmetExpectEmit": func(f *native.Frame, _ []any) ([]any, error) {
			if _, err := f.Cheat(cheatcodes.OpExpectEmit); err != nil {
				return nil, err
			}
			if err := suite.Emit(f, "Ping", common.Big1); err != nil {
				return nil, err
			}
			_, err := f.Call(tosca.Address{0x01, 0x02}, nil, tosca.Value{})
			return nil, err
		},
		"testAlwaysDiscards": func(f *native.Frame, _ []any) ([]any, error) {
			_, err := f.Cheat(cheatcodes.OpAssume, false)
			return nil, err
		},
	})
	return suite
}
