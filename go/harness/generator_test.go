// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"pgregory.net/rand"
)

func newArguments(t *testing.T, types ...string) abi.Arguments {
	t.Helper()
	var res abi.Arguments
	for _, name := range types {
		typ, err := abi.NewType(name, "", nil)
		require.NoError(t, err, name)
		res = append(res, abi.Argument{Type: typ})
	}
	return res
}

func TestGenerateArguments_ProducesEncodableValues(t *testing.T) {
	arguments := newArguments(t,
		"bool", "uint8", "uint24", "uint64", "uint256", "int8", "int128", "int256",
		"address", "bytes1", "bytes32", "bytes", "string",
		"uint16[]", "address[3]", "bytes32[][2]",
	)
	rnd := rand.New(1)
	for i := 0; i < 200; i++ {
		values, err := generateArguments(rnd, arguments)
		require.NoError(t, err)
		_, err = arguments.Pack(values...)
		require.NoError(t, err)
	}
}

func TestGenerateArguments_SupportsTuples(t *testing.T) {
	typ, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "flag", Type: "bool"},
		{Name: "amount", Type: "uint256"},
		{Name: "owner", Type: "address"},
	})
	require.NoError(t, err)
	arguments := abi.Arguments{{Type: typ}}

	values, err := generateArguments(rand.New(2), arguments)
	require.NoError(t, err)
	_, err = arguments.Pack(values...)
	require.NoError(t, err)
}

func TestGenerateArguments_IsDeterministic(t *testing.T) {
	arguments := newArguments(t, "uint256", "bytes", "string", "address")
	first, err := generateArguments(rand.New(7, 8), arguments)
	require.NoError(t, err)
	second, err := generateArguments(rand.New(7, 8), arguments)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGenerateArguments_StaysInRange(t *testing.T) {
	arguments := newArguments(t, "uint24", "int24")
	rnd := rand.New(3)
	maxUint := big.NewInt(1<<24 - 1)
	maxInt, minInt := big.NewInt(1<<23-1), big.NewInt(-1<<23)
	for i := 0; i < 1000; i++ {
		values, err := generateArguments(rnd, arguments)
		require.NoError(t, err)
		u, s := values[0].(*big.Int), values[1].(*big.Int)
		require.True(t, u.Sign() >= 0 && u.Cmp(maxUint) <= 0, "uint24 out of range: %v", u)
		require.True(t, s.Cmp(minInt) >= 0 && s.Cmp(maxInt) <= 0, "int24 out of range: %v", s)
	}
}

func TestGenerateArguments_HitsBoundaries(t *testing.T) {
	arguments := newArguments(t, "uint8", "int64", "address")
	rnd := rand.New(4)
	seen := map[any]bool{}
	for i := 0; i < 2000; i++ {
		values, err := generateArguments(rnd, arguments)
		require.NoError(t, err)
		for _, value := range values {
			seen[value] = true
		}
	}
	for _, want := range []any{
		uint8(0), uint8(255),
		int64(-1 << 63), int64(1<<63 - 1), int64(0),
		common.Address{},
	} {
		require.True(t, seen[want], "boundary value %v was never generated", want)
	}
}

func TestGenerateArguments_StringsArePrintable(t *testing.T) {
	arguments := newArguments(t, "string")
	rnd := rand.New(5)
	for i := 0; i < 100; i++ {
		values, err := generateArguments(rnd, arguments)
		require.NoError(t, err)
		text := values[0].(string)
		require.LessOrEqual(t, len(text), maxDynamicLength)
		require.Empty(t, strings.Trim(text, alphabet))
	}
}

func TestGenerateArguments_RejectsUnsupportedTypes(t *testing.T) {
	arguments := newArguments(t, "function")
	_, err := generateArguments(rand.New(6), arguments)
	require.Error(t, err)
}
