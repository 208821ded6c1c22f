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
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

const forwarderABI = `[
	{"type":"function","name":"forward","inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[{"name":"success","type":"bool"},{"name":"result","type":"bytes"}],"stateMutability":"payable"}
]`

// Forwarder passes calls and their value on to another contract.
var Forwarder = register("Forwarder", native.MustNewContract(forwarderABI, map[string]native.Method{
	"forward": func(f *native.Frame, args []any) ([]any, error) {
		target := tosca.Address(args[0].(common.Address))
		result, err := f.Call(target, args[1].([]byte), f.Value())
		if err != nil {
			return nil, err
		}
		return []any{result.Success, []byte(result.Output)}, nil
	},
}))
