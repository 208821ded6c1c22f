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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

var (
	numberSlot     = tosca.Key{}
	lastCallerSlot = tosca.Key{31: 1}
)

const counterABI = `[
	{"type":"function","name":"number","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"setNumber","inputs":[{"name":"newNumber","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"increment","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"lastCaller","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"fail","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"by","type":"address","indexed":true},{"name":"number","type":"uint256","indexed":false}],"anonymous":false}
]`

// Counter is a contract maintaining a single number. It records the sender
// of the last modification.
var Counter = register("Counter", newCounter())

func newCounter() *native.Contract {
	var counter *native.Contract
	counter = native.MustNewContract(counterABI, map[string]native.Method{
		"number": func(f *native.Frame, _ []any) ([]any, error) {
			return []any{getNumber(f)}, nil
		},
		"setNumber": func(f *native.Frame, args []any) ([]any, error) {
			return nil, setNumber(f, args[0].(*big.Int))
		},
		"increment": func(f *native.Frame, _ []any) ([]any, error) {
			next := new(big.Int).Add(getNumber(f), common.Big1)
			if next.BitLen() > 256 {
				return nil, native.Revert([]byte("Counter: overflow"))
			}
			if err := setNumber(f, next); err != nil {
				return nil, err
			}
			return nil, counter.Emit(f, "Incremented", common.Address(f.Sender()), next)
		},
		"lastCaller": func(f *native.Frame, _ []any) ([]any, error) {
			return []any{common.Address(addressAt(f, lastCallerSlot))}, nil
		},
		"fail": func(*native.Frame, []any) ([]any, error) {
			return nil, native.Revert([]byte("Counter: failure"))
		},
	})
	return counter
}

func getNumber(f *native.Frame) *big.Int {
	value := f.Load(numberSlot)
	return new(big.Int).SetBytes(value[:])
}

func setNumber(f *native.Frame, number *big.Int) error {
	if err := f.Store(numberSlot, tosca.Word(common.BigToHash(number))); err != nil {
		return err
	}
	return storeAddress(f, lastCallerSlot, f.Sender())
}
