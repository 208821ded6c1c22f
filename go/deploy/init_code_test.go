// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package deploy

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildInitCode_EmptyModuleProducesHeaderOnly(t *testing.T) {
	want := []byte{
		0x63, 0x00, 0x00, 0x00, 0x04,
		0x80,
		0x60, 0x0F,
		0x60, 0x00,
		0x39,
		0x60, 0x00,
		0xF3,
		0x00,
		0xEF, 0xF0, 0x00, 0x00,
	}
	if got := BuildInitCode(nil); !bytes.Equal(want, got) {
		t.Errorf("unexpected init code, wanted %x, got %x", want, got)
	}
	if got := BuildInitCode([]byte{}); !bytes.Equal(want, got) {
		t.Errorf("unexpected init code for empty slice, wanted %x, got %x", want, got)
	}
}

func TestBuildInitCode_LayoutForModules(t *testing.T) {
	tests := map[string][]byte{
		"single byte": {0x42},
		"wasm header": {0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		"large":       bytes.Repeat([]byte{0xAB}, 70000),
	}

	for name, module := range tests {
		t.Run(name, func(t *testing.T) {
			code := BuildInitCode(module)
			if want, got := HeaderSize+len(module), len(code); want != got {
				t.Fatalf("unexpected size, wanted %d, got %d", want, got)
			}
			length := int(code[1])<<24 | int(code[2])<<16 | int(code[3])<<8 | int(code[4])
			if want, got := len(module)+4, length; want != got {
				t.Errorf("unexpected length operand, wanted %d, got %d", want, got)
			}
			if want, got := []byte{0xEF, 0xF0, 0x00, 0x00}, code[15:19]; !bytes.Equal(want, got) {
				t.Errorf("unexpected discriminant, wanted %x, got %x", want, got)
			}
			if got := code[19:]; !bytes.Equal(module, got) {
				t.Errorf("module image not appended verbatim")
			}
		})
	}
}

func TestBuildInitCode_CodeCopyOffsetPointsAtDiscriminant(t *testing.T) {
	code := BuildInitCode([]byte{1, 2, 3})
	offset := int(code[7])
	length := int(code[1])<<24 | int(code[2])<<16 | int(code[3])<<8 | int(code[4])
	deployed := code[offset : offset+length]
	if !IsModule(deployed) {
		t.Fatalf("copied region %x does not start with the discriminant", deployed)
	}
	module, ok := ModuleFromCode(deployed)
	if !ok || !bytes.Equal(module, []byte{1, 2, 3}) {
		t.Errorf("unexpected module in deployed code: %x", module)
	}
}

func TestParseInitCode_IsInverseOfBuild(t *testing.T) {
	for _, module := range [][]byte{{}, {0x00}, []byte("counter")} {
		got, err := ParseInitCode(BuildInitCode(module))
		if err != nil {
			t.Fatalf("failed to parse init code: %v", err)
		}
		if !bytes.Equal(module, got) {
			t.Errorf("unexpected module, wanted %x, got %x", module, got)
		}
	}
}

func TestParseInitCode_RejectsMalformedCode(t *testing.T) {
	valid := BuildInitCode([]byte{1, 2, 3})
	modify := func(f func(code []byte) []byte) []byte {
		return f(bytes.Clone(valid))
	}

	tests := map[string][]byte{
		"empty":           {},
		"truncated":       valid[:HeaderSize-1],
		"wrong opcode":    modify(func(c []byte) []byte { c[0] = 0x62; return c }),
		"wrong offset":    modify(func(c []byte) []byte { c[7] = 0x10; return c }),
		"wrong version":   modify(func(c []byte) []byte { c[14] = 0x01; return c }),
		"no discriminant": modify(func(c []byte) []byte { c[15] = 0x00; return c }),
		"length too big":  modify(func(c []byte) []byte { c[4]++; return c }),
		"trailing bytes":  append(bytes.Clone(valid), 0xFF),
	}

	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseInitCode(code); !errors.Is(err, ErrInvalidInitCode) {
				t.Errorf("expected ErrInvalidInitCode, got %v", err)
			}
		})
	}
}

func TestIsModule_RequiresDiscriminant(t *testing.T) {
	tests := map[string]struct {
		code []byte
		want bool
	}{
		"empty":        {nil, false},
		"evm code":     {[]byte{0x60, 0x00}, false},
		"prefix only":  {[]byte{0xEF, 0xF0, 0x00}, false},
		"discriminant": {[]byte{0xEF, 0xF0, 0x00, 0x00}, true},
		"with module":  {[]byte{0xEF, 0xF0, 0x00, 0x00, 0x01}, true},
		"compressed":   {[]byte{0xEF, 0xF0, 0x00, 0x01}, false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := IsModule(test.code); test.want != got {
				t.Errorf("unexpected result, wanted %t, got %t", test.want, got)
			}
		})
	}
}

func TestDiscriminant_ReturnsCopy(t *testing.T) {
	d := Discriminant()
	d[0] = 0
	if !bytes.Equal(Discriminant(), []byte{0xEF, 0xF0, 0x00, 0x00}) {
		t.Errorf("discriminant must not be modifiable through the returned slice")
	}
}
