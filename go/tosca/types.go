// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Address represents the 160-bit (20 bytes) address of an account.
type Address [20]byte

// Key represents the 256-bit (32 bytes) key of a storage slot.
type Key [32]byte

// Word represents an arbitrary 256-bit (32 byte) word, e.g. a storage value.
type Word [32]byte

// Value represents an amount of chain currency or any other unsigned
// 256-bit quantity, e.g. a base fee.
type Value [32]byte

// Hash represents the 256-bit (32 bytes) hash of a code, a log topic or
// similar sequence of cryptographic summary information.
type Hash [32]byte

// Code represents the deployed code of a contract.
type Code []byte

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents the type used to represent the Gas values.
type Gas int64

// Log is the type summarizing a log message emitted as a side effect of a
// contract execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}

// Equal compares the topics and data of two logs. The emitting address is
// not considered.
func (l Log) Equal(other Log) bool {
	if len(l.Topics) != len(other.Topics) {
		return false
	}
	for i := range l.Topics {
		if l.Topics[i] != other.Topics[i] {
			return false
		}
	}
	return bytes.Equal(l.Data, other.Data)
}

func (l Log) String() string {
	topics := make([]string, 0, len(l.Topics))
	for _, topic := range l.Topics {
		topics = append(topics, topic.String())
	}
	return fmt.Sprintf("log{emitter: %v, topics: [%s], data: 0x%x}", l.Address, strings.Join(topics, ", "), []byte(l.Data))
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (k Key) MarshalText() ([]byte, error) {
	return bytesToText(k[:])
}

func (k *Key) UnmarshalText(data []byte) error {
	return textToBytes(k[:], data)
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (w Word) MarshalText() ([]byte, error) {
	return bytesToText(w[:])
}

func (w *Word) UnmarshalText(data []byte) error {
	return textToBytes(w[:], data)
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// NewValue creates a Value from up to 4 uint64 limbs, given from the most to
// the least significant one. No argument results in a value of zero.
func NewValue(args ...uint64) (result Value) {
	if len(args) > 4 {
		panic("too many arguments")
	}
	offset := (4 - len(args)) * 8
	for i, arg := range args {
		binary.BigEndian.PutUint64(result[offset+i*8:], arg)
	}
	return
}

// ValueFromUint256 converts a *uint256.Int to a Value. A nil input is zero.
func ValueFromUint256(value *uint256.Int) Value {
	if value == nil {
		return Value{}
	}
	return value.Bytes32()
}

func (v Value) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(v[:])
}

func (v Value) IsZero() bool {
	return v == Value{}
}

func (v Value) Cmp(o Value) int {
	return bytes.Compare(v[:], o[:])
}

func (v Value) String() string {
	return v.ToUint256().Dec()
}

func (v Value) MarshalText() ([]byte, error) {
	return bytesToText(v[:])
}

func (v *Value) UnmarshalText(data []byte) error {
	return textToBytes(v[:], data)
}

// Add computes a+b and reports whether the sum overflowed 256 bits.
func Add(a, b Value) (Value, bool) {
	sum, overflow := new(uint256.Int).AddOverflow(a.ToUint256(), b.ToUint256())
	return sum.Bytes32(), overflow
}

// Sub computes a-b and reports whether the subtraction underflowed.
func Sub(a, b Value) (Value, bool) {
	diff, underflow := new(uint256.Int).SubOverflow(a.ToUint256(), b.ToUint256())
	return diff.Bytes32(), underflow
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}

// CallKind is an enum enabling the differentiation of the different types
// of recursive contract calls.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case StaticCall:
		return "static_call"
	case DelegateCall:
		return "delegate_call"
	case CallCode:
		return "call_code"
	case Create:
		return "create"
	case Create2:
		return "create2"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// IsCreate reports whether the call kind deploys a new contract.
func (k CallKind) IsCreate() bool {
	return k == Create || k == Create2
}
