// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package deploy packs compiled module images into init code that, when
// executed as a contract creation, returns the image prefixed with the module
// discriminant as the deployed code.
package deploy

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/skribe-dev/skribe/go/tosca"
)

const (
	// preludeSize is the number of bytes of the init code before the version.
	preludeSize = 14
	// HeaderSize is the number of bytes preceding the module image.
	HeaderSize = preludeSize + 1 + len(discriminant)

	// Version is the module format version emitted after the prelude.
	Version = 0x00

	ErrInvalidInitCode = tosca.ConstError("invalid init code")
)

// discriminant marks code as a module rather than plain EVM byte code. The
// last byte is the compression flag; images are never compressed.
var discriminant = [4]byte{0xEF, 0xF0, 0x00, 0x00}

// Discriminant returns the 4-byte marker prefixing deployed modules.
func Discriminant() []byte {
	return bytes.Clone(discriminant[:])
}

// BuildInitCode wraps the given module image into init code. The result is
//
//	63 <len:4> 80 60 0F 60 00 39 60 00 F3 | 00 | EF F0 00 00 | module
//
// where len covers the discriminant and the module. The init code copies
// everything after the version byte into memory and returns it.
func BuildInitCode(module []byte) []byte {
	length := uint32(len(module) + len(discriminant))

	code := make([]byte, 0, HeaderSize+len(module))
	code = append(code, byte(vm.PUSH4))
	code = binary.BigEndian.AppendUint32(code, length)
	code = append(code,
		byte(vm.DUP1),
		byte(vm.PUSH1), preludeSize+1, // offset of the discriminant
		byte(vm.PUSH1), 0,
		byte(vm.CODECOPY),
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
		Version,
	)
	code = append(code, discriminant[:]...)
	return append(code, module...)
}

// ParseInitCode is the inverse of BuildInitCode. It returns the embedded
// module image or an error if the code was not produced by BuildInitCode.
func ParseInitCode(code []byte) ([]byte, error) {
	if len(code) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidInitCode, len(code))
	}
	want := BuildInitCode(nil)
	// the length operand is the only part of the header that varies
	if !bytes.Equal(code[:1], want[:1]) || !bytes.Equal(code[5:preludeSize], want[5:preludeSize]) {
		return nil, fmt.Errorf("%w: unexpected prelude %x", ErrInvalidInitCode, code[:preludeSize])
	}
	if code[preludeSize] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidInitCode, code[preludeSize])
	}
	if !IsModule(code[preludeSize+1:]) {
		return nil, fmt.Errorf("%w: missing module discriminant", ErrInvalidInitCode)
	}
	length := binary.BigEndian.Uint32(code[1:5])
	if got := uint64(len(code) - preludeSize - 1); uint64(length) != got {
		return nil, fmt.Errorf("%w: length field %d does not match payload size %d", ErrInvalidInitCode, length, got)
	}
	return code[HeaderSize:], nil
}

// IsModule reports whether the given deployed code starts with the module
// discriminant.
func IsModule(code []byte) bool {
	return bytes.HasPrefix(code, discriminant[:])
}

// ModuleFromCode strips the discriminant from deployed code.
func ModuleFromCode(code []byte) ([]byte, bool) {
	if !IsModule(code) {
		return nil, false
	}
	return code[len(discriminant):], true
}
