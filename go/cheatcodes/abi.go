// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cheatcodes

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/skribe-dev/skribe/go/tosca"
)

// Address is the reserved address routed to the cheatcode engine.
// It is wrapped in a function to be immutable.
func Address() tosca.Address {
	return tosca.Address(common.HexToAddress("0x7109709ECFA91A80626FF3989D68F67F5B1DD12D"))
}

// Op enumerates the supported cheatcodes.
type Op int

const (
	OpUnknown Op = iota
	OpSign
	OpAddr
	OpGetNonce
	OpLoad
	OpProjectRoot
	OpReadFile
	OpReadFileBinary
	OpAssertTrue
	OpAssume
	OpDeal
	OpEtch
	OpFee
	OpRoll
	OpPrank
	OpStartPrank
	OpStopPrank
	OpStore
	OpWarp
	OpExpectEmit
	OpExpectRevert
	numOps
)

var opNames = [numOps]string{
	OpSign:           "sign",
	OpAddr:           "addr",
	OpGetNonce:       "getNonce",
	OpLoad:           "load",
	OpProjectRoot:    "projectRoot",
	OpReadFile:       "readFile",
	OpReadFileBinary: "readFileBinary",
	OpAssertTrue:     "assertTrue",
	OpAssume:         "assume",
	OpDeal:           "deal",
	OpEtch:           "etch",
	OpFee:            "fee",
	OpRoll:           "roll",
	OpPrank:          "prank",
	OpStartPrank:     "startPrank",
	OpStopPrank:      "stopPrank",
	OpStore:          "store",
	OpWarp:           "warp",
	OpExpectEmit:     "expectEmit",
	OpExpectRevert:   "expectRevert",
}

func (o Op) String() string {
	if o > OpUnknown && o < numOps {
		return opNames[o]
	}
	return "unknown"
}

// cheatcodeABI is the interface of the cheatcode contract.
var cheatcodeABI = `[
	{"type":"function","name":"sign","inputs":[{"name":"private_key","type":"uint256"},{"name":"digest","type":"bytes32"}],"outputs":[{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"stateMutability":"pure"},
	{"type":"function","name":"addr","inputs":[{"name":"private_key","type":"uint256"}],"outputs":[{"name":"keyAddr","type":"address"}],"stateMutability":"pure"},
	{"type":"function","name":"getNonce","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"nonce","type":"uint64"}],"stateMutability":"view"},
	{"type":"function","name":"load","inputs":[{"name":"target","type":"address"},{"name":"slot","type":"bytes32"}],"outputs":[{"name":"data","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"projectRoot","inputs":[],"outputs":[{"name":"path","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"readFile","inputs":[{"name":"path","type":"string"}],"outputs":[{"name":"data","type":"string"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"readFileBinary","inputs":[{"name":"path","type":"string"}],"outputs":[{"name":"data","type":"bytes"}],"stateMutability":"view"},
	{"type":"function","name":"assertTrue","inputs":[{"name":"condition","type":"bool"}],"outputs":[],"stateMutability":"pure"},
	{"type":"function","name":"assume","inputs":[{"name":"condition","type":"bool"}],"outputs":[],"stateMutability":"pure"},
	{"type":"function","name":"deal","inputs":[{"name":"account","type":"address"},{"name":"new_balance","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"etch","inputs":[{"name":"target","type":"address"},{"name":"new_runtime_bytecode","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"fee","inputs":[{"name":"new_basefee","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"roll","inputs":[{"name":"new_height","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"prank","inputs":[{"name":"msg_sender","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"startPrank","inputs":[{"name":"msg_sender","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"stopPrank","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"store","inputs":[{"name":"target","type":"address"},{"name":"slot","type":"bytes32"},{"name":"value","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"warp","inputs":[{"name":"new_timestamp","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"expectEmit","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"expectRevert","inputs":[],"outputs":[],"stateMutability":"nonpayable"}
]`

var (
	cheatcodes abi.ABI
	opMethods  [numOps]*abi.Method
	selectors  = map[[4]byte]Op{}
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(cheatcodeABI))
	if err != nil {
		panic(fmt.Errorf("failed to parse cheatcode ABI: %w", err))
	}
	cheatcodes = parsed

	for op := OpUnknown + 1; op < numOps; op++ {
		method, exist := parsed.Methods[op.String()]
		if !exist {
			panic(fmt.Sprintf("cheatcode ABI lacks method %v", op))
		}
		opMethods[op] = &method
		selectors[[4]byte(method.ID)] = op
	}
}

// ABI returns the interface of the cheatcode contract.
func ABI() abi.ABI {
	return cheatcodes
}

// Selector returns the 4-byte selector of the given operation.
func (o Op) Selector() [4]byte {
	if o <= OpUnknown || o >= numOps {
		return [4]byte{}
	}
	return [4]byte(opMethods[o].ID)
}

// Signature returns the canonical signature of the operation.
func (o Op) Signature() string {
	if o <= OpUnknown || o >= numOps {
		return ""
	}
	return opMethods[o].Sig
}

// Ops lists all supported operations in declaration order.
func Ops() []Op {
	res := make([]Op, 0, numOps-1)
	for op := OpUnknown + 1; op < numOps; op++ {
		res = append(res, op)
	}
	return res
}

// lookup resolves the operation addressed by the given call data.
func lookup(input []byte) (Op, bool) {
	if len(input) < 4 {
		return OpUnknown, false
	}
	op, found := selectors[[4]byte(input[:4])]
	return op, found
}

// Encode produces call data invoking the given operation. It is the client
// side of the cheatcode interface, used by modules implemented in Go.
func Encode(op Op, args ...any) ([]byte, error) {
	if op <= OpUnknown || op >= numOps {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCheatcode, op)
	}
	return cheatcodes.Pack(op.String(), args...)
}

// Decode unpacks the result of a cheatcode call.
func Decode(op Op, output []byte) ([]any, error) {
	if op <= OpUnknown || op >= numOps {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCheatcode, op)
	}
	return opMethods[op].Outputs.Unpack(output)
}
