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
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/simulation"
	"pgregory.net/rand"
)

const (
	maxDynamicLength = 64
	maxSliceLength   = 4
)

// generateArguments draws random values for the given arguments. Values at
// the boundaries of their type's domain are preferred.
func generateArguments(rnd *rand.Rand, arguments abi.Arguments) ([]any, error) {
	res := make([]any, 0, len(arguments))
	for _, argument := range arguments {
		value, err := generateValue(rnd, argument.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", argument.Name, err)
		}
		res = append(res, value)
	}
	return res, nil
}

func generateValue(rnd *rand.Rand, typ abi.Type) (any, error) {
	switch typ.T {
	case abi.BoolTy:
		return rnd.Uint64()&1 == 1, nil
	case abi.UintTy, abi.IntTy:
		return toIntegerType(typ, randInteger(rnd, typ)), nil
	case abi.AddressTy:
		if boundary(rnd) {
			candidates := []common.Address{
				{},
				common.Address(simulation.TestCallerAddress()),
				common.Address(simulation.TestContractAddress()),
				common.Address(cheatcodes.Address()),
			}
			return candidates[rnd.Intn(len(candidates))], nil
		}
		var address common.Address
		rnd.Read(address[:])
		return address, nil
	case abi.FixedBytesTy:
		res := reflect.New(typ.GetType()).Elem()
		reflect.Copy(res, reflect.ValueOf(randBytes(rnd, typ.Size)))
		return res.Interface(), nil
	case abi.BytesTy:
		return randBytes(rnd, rnd.Intn(maxDynamicLength+1)), nil
	case abi.StringTy:
		return randString(rnd), nil
	case abi.SliceTy:
		length := rnd.Intn(maxSliceLength + 1)
		res := reflect.MakeSlice(typ.GetType(), length, length)
		return res.Interface(), fillElements(rnd, *typ.Elem, res)
	case abi.ArrayTy:
		res := reflect.New(typ.GetType()).Elem()
		return res.Interface(), fillElements(rnd, *typ.Elem, res)
	case abi.TupleTy:
		res := reflect.New(typ.GetType()).Elem()
		for i, elem := range typ.TupleElems {
			value, err := generateValue(rnd, *elem)
			if err != nil {
				return nil, err
			}
			res.Field(i).Set(reflect.ValueOf(value))
		}
		return res.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported type %v", typ)
}

func fillElements(rnd *rand.Rand, elem abi.Type, target reflect.Value) error {
	for i := 0; i < target.Len(); i++ {
		value, err := generateValue(rnd, elem)
		if err != nil {
			return err
		}
		target.Index(i).Set(reflect.ValueOf(value))
	}
	return nil
}

// boundary decides whether a boundary value is to be produced.
func boundary(rnd *rand.Rand) bool {
	return rnd.Intn(4) == 0
}

func randInteger(rnd *rand.Rand, typ abi.Type) *big.Int {
	one := big.NewInt(1)
	if typ.T == abi.UintTy {
		maxValue := new(big.Int).Sub(new(big.Int).Lsh(one, uint(typ.Size)), one)
		if boundary(rnd) {
			candidates := []*big.Int{big.NewInt(0), one, new(big.Int).Sub(maxValue, one), maxValue}
			return candidates[rnd.Intn(len(candidates))]
		}
		return new(big.Int).SetBytes(randBytes(rnd, typ.Size/8))
	}

	maxValue := new(big.Int).Sub(new(big.Int).Lsh(one, uint(typ.Size-1)), one)
	minValue := new(big.Int).Neg(new(big.Int).Add(maxValue, one))
	if boundary(rnd) {
		candidates := []*big.Int{big.NewInt(0), one, big.NewInt(-1), maxValue, minValue}
		return candidates[rnd.Intn(len(candidates))]
	}
	// interpret random bits as two's complement
	res := new(big.Int).SetBytes(randBytes(rnd, typ.Size/8))
	if res.Cmp(maxValue) > 0 {
		res.Sub(res, new(big.Int).Lsh(one, uint(typ.Size)))
	}
	return res
}

// toIntegerType converts a value into the Go type used by the ABI encoder.
func toIntegerType(typ abi.Type, value *big.Int) any {
	target := typ.GetType()
	if target.Kind() == reflect.Ptr {
		return value
	}
	if typ.T == abi.UintTy {
		return reflect.ValueOf(value.Uint64()).Convert(target).Interface()
	}
	return reflect.ValueOf(value.Int64()).Convert(target).Interface()
}

func randBytes(rnd *rand.Rand, size int) []byte {
	res := make([]byte, size)
	if size > 0 && boundary(rnd) {
		fill := byte(0)
		if rnd.Intn(2) == 0 {
			fill = 0xFF
		}
		for i := range res {
			res[i] = fill
		}
		return res
	}
	rnd.Read(res)
	return res
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ./-_"

func randString(rnd *rand.Rand) string {
	res := make([]byte, rnd.Intn(maxDynamicLength+1))
	for i := range res {
		res[i] = alphabet[rnd.Intn(len(alphabet))]
	}
	return string(res)
}
